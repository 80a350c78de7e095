// Package tally drives tally lights from switcher state: the program
// light while a camera is live, the preview light while one is cued.
// On boards without LEDs a no-op controller keeps the wiring intact.
package tally

// Light identifies a tally light role.
type Light string

// Tally lights.
const (
	LightProgram Light = "program"
	LightPreview Light = "preview"
)

// Controller abstracts tally light hardware across boards.
type Controller interface {
	// Set turns a light on or off with an optional pattern: "solid",
	// "blink", or "" for no pattern change.
	Set(light Light, enabled bool, pattern string) error

	// Available returns the lights this controller can drive.
	Available() []Light
}
