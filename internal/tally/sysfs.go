package tally

import (
	"fmt"
	"os"
	"path/filepath"
)

const sysfsLEDPath = "/sys/class/leds"

// sysfs implements Controller using the Linux sysfs LED interface.
type sysfs struct {
	leds map[Light]string // light role -> sysfs LED name
}

func newSysfs(leds map[Light]string) *sysfs {
	return &sysfs{leds: leds}
}

// Set controls a light's state and optional pattern.
func (s *sysfs) Set(light Light, enabled bool, pattern string) error {
	sysfsName, ok := s.leds[light]
	if !ok {
		return fmt.Errorf("light %q not supported on this board", light)
	}

	ledPath := filepath.Join(sysfsLEDPath, sysfsName)
	if _, err := os.Stat(ledPath); os.IsNotExist(err) {
		return fmt.Errorf("LED %q not found at %s", light, ledPath)
	}

	if pattern != "" {
		triggerPath := filepath.Join(ledPath, "trigger")
		var triggerValue string
		switch pattern {
		case "solid":
			triggerValue = "none"
		case "blink", "heartbeat":
			triggerValue = "heartbeat"
		default:
			triggerValue = pattern // raw trigger names pass through
		}
		if err := os.WriteFile(triggerPath, []byte(triggerValue), 0644); err != nil {
			return fmt.Errorf("failed to set LED trigger: %w", err)
		}
	}

	brightness := "0"
	if enabled {
		brightness = "1"
	}
	brightnessPath := filepath.Join(ledPath, "brightness")
	if err := os.WriteFile(brightnessPath, []byte(brightness), 0644); err != nil {
		return fmt.Errorf("failed to set LED brightness: %w", err)
	}
	return nil
}

// Available returns the lights this board maps to LEDs.
func (s *sysfs) Available() []Light {
	lights := make([]Light, 0, len(s.leds))
	for light := range s.leds {
		lights = append(lights, light)
	}
	return lights
}
