//go:build !linux

package devices

import "fmt"

type noopDetector struct{}

func newDetector() Detector {
	return &noopDetector{}
}

func (d *noopDetector) FindDevices() ([]Device, error) {
	return nil, nil
}

func (d *noopDetector) DevicePathByID(deviceID string) (string, error) {
	return "", fmt.Errorf("device detection not supported on this platform")
}

func (d *noopDetector) CheckPermission(Device) bool {
	return false
}
