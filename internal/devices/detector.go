// Package devices provides capture device discovery and access checks.
// The switching core consumes it as a capability: discovery enumerates
// devices, the permission check gates session start.
package devices

// Device describes one physical capture device.
type Device struct {
	ID   string `json:"id"`
	Path string `json:"path"`
	Name string `json:"name"`
}

// Detector provides platform-specific device detection.
type Detector interface {
	// FindDevices returns all currently available capture devices.
	FindDevices() ([]Device, error)

	// DevicePathByID returns the device path for a given stable device ID.
	DevicePathByID(deviceID string) (string, error)

	// CheckPermission reports whether the process may open the device
	// for capture. Called before any hardware session is configured.
	CheckPermission(device Device) bool
}

// NewDetector returns the detector for the current platform.
func NewDetector() Detector {
	return newDetector()
}
