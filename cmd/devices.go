package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/studioswitch/studioswitch/internal/devices"
)

// CreateDevicesCmd creates the devices command.
func CreateDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List capture devices",
		Long:  `Lists the video capture devices available on this system with their stable IDs and device paths.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			detector := devices.NewDetector()
			found, err := detector.FindDevices()
			if err != nil {
				return fmt.Errorf("device discovery failed: %w", err)
			}
			if len(found) == 0 {
				fmt.Println("No capture devices found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPATH\tNAME\tACCESS")
			for _, dev := range found {
				access := "ok"
				if !detector.CheckPermission(dev) {
					access = "denied"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", dev.ID, dev.Path, dev.Name, access)
			}
			return w.Flush()
		},
	}
}
