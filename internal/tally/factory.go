package tally

import (
	"log/slog"
	"os"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// New creates a tally controller based on board detection, falling
// back to a no-op controller when no LED support is found.
func New(logger *slog.Logger) Controller {
	boardModel := detectBoard()
	logger.Info("Detecting board for tally control", "board_model", boardModel)

	switch {
	case strings.Contains(boardModel, "NanoPC-T6"):
		logger.Info("Detected NanoPC-T6, using sysfs tally controller")
		return newSysfs(map[Light]string{
			LightProgram: "usr_led",
			LightPreview: "sys_led",
		})

	case strings.Contains(boardModel, "Orange Pi"):
		logger.Info("Detected Orange Pi, using sysfs tally controller")
		return newSysfs(map[Light]string{
			LightProgram: "blue_led",
			LightPreview: "green_led",
		})

	case strings.Contains(boardModel, "Raspberry Pi"):
		logger.Info("Detected Raspberry Pi, using sysfs tally controller")
		return newSysfs(map[Light]string{
			LightProgram: "ACT",
		})

	default:
		logger.Info("No tally support detected, using no-op controller",
			"board_model", boardModel)
		return newNoop(logger)
	}
}

// detectBoard reads the device tree model to identify the board.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}
	// Device tree model contains null bytes, trim them
	return strings.TrimRight(string(data), "\x00")
}
