package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studioswitch/studioswitch/internal/media"
)

// CreateProbeCmd creates the probe command.
func CreateProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Inspect a media file",
		Long:  `Probes a media file with ffprobe and prints the video dimensions and duration the player would use.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			info, err := media.Probe(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("resolution: %dx%d\n", info.Width, info.Height)
			fmt.Printf("duration:   %s\n", info.Duration)
			return nil
		},
	}
}
