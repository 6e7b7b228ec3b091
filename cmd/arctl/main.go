// arctl inspects and prepares the files an arcalib session reads: OBJ meshes
// and calibration files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "arctl",
	Short:         "arcalib file utility",
	Long:          `Inspect OBJ meshes and camera calibration files, and write starter calibrations and configs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	meshCmd.AddCommand(meshInfoCmd)
	calibCmd.AddCommand(calibShowCmd, calibInitCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(meshCmd, calibCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
