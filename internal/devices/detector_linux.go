//go:build linux

package devices

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/studioswitch/studioswitch/internal/logging"
)

const sysfsVideoPath = "/sys/class/video4linux"

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

type linuxDetector struct{}

func newDetector() Detector {
	return &linuxDetector{}
}

// FindDevices scans sysfs for video capture nodes. Metadata nodes
// (index > 0 on the same USB device) are skipped.
func (d *linuxDetector) FindDevices() ([]Device, error) {
	entries, err := os.ReadDir(sysfsVideoPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", sysfsVideoPath, err)
	}

	logger := logging.GetLogger("devices")

	var devices []Device
	for _, entry := range entries {
		node := entry.Name()
		if !strings.HasPrefix(node, "video") {
			continue
		}

		indexData, err := os.ReadFile(filepath.Join(sysfsVideoPath, node, "index"))
		if err == nil && strings.TrimSpace(string(indexData)) != "0" {
			continue
		}

		name := node
		if nameData, readErr := os.ReadFile(filepath.Join(sysfsVideoPath, node, "name")); readErr == nil {
			name = strings.TrimSpace(string(nameData))
		}

		devicePath := "/dev/" + node
		if _, statErr := os.Stat(devicePath); statErr != nil {
			logger.Debug("Skipping device without node", "node", node)
			continue
		}

		devices = append(devices, Device{
			ID:   stableID(name, node),
			Path: devicePath,
			Name: name,
		})
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Path < devices[j].Path })
	return devices, nil
}

// DevicePathByID resolves a stable device ID back to its /dev path.
func (d *linuxDetector) DevicePathByID(deviceID string) (string, error) {
	devices, err := d.FindDevices()
	if err != nil {
		return "", err
	}
	for _, dev := range devices {
		if dev.ID == deviceID {
			return dev.Path, nil
		}
	}
	return "", fmt.Errorf("device %q not found", deviceID)
}

// CheckPermission reports whether the device node can be opened for capture.
func (d *linuxDetector) CheckPermission(device Device) bool {
	f, err := os.OpenFile(device.Path, os.O_RDWR, 0)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// stableID derives an identifier that survives node renumbering across
// replug, based on the device name rather than the video index.
func stableID(name, node string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(name), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return node
	}
	return slug
}
