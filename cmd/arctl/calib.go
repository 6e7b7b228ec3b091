package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/Faultbox/arcalib/internal/calibration"
	"github.com/Faultbox/arcalib/internal/camera"
)

var calibCmd = &cobra.Command{
	Use:   "calib",
	Short: "Work with calibration files",
}

var calibShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Print the camera matrix and distortion of a calibration file",
	Args:  cobra.ExactArgs(1),
	RunE:  runCalibShow,
}

var calibInitCmd = &cobra.Command{
	Use:   "init <file>",
	Short: "Write a nominal calibration for an uncalibrated camera",
	Long: `Writes a calibration file with focal length equal to the image width,
the principal point at the image center and no distortion.`,
	Args: cobra.ExactArgs(1),
	RunE: runCalibInit,
}

var (
	initWidth  int
	initHeight int
	initForce  bool
)

func init() {
	calibInitCmd.Flags().IntVar(&initWidth, "width", 640, "image width in pixels")
	calibInitCmd.Flags().IntVar(&initHeight, "height", 480, "image height in pixels")
	calibInitCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing file")
}

func runCalibShow(cmd *cobra.Command, args []string) error {
	model, err := calibration.LoadModel(args[0])
	if err != nil {
		return err
	}
	k, d := model.Intrinsics, model.Distortion
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "File:        %s\n", args[0])
	fmt.Fprintf(out, "Focal:       fx=%g fy=%g\n", k.Fx(), k.Fy())
	fmt.Fprintf(out, "Center:      cx=%g cy=%g\n", k.Cx(), k.Cy())
	if k.Skew() != 0 {
		fmt.Fprintf(out, "Skew:        %g\n", k.Skew())
	}
	fmt.Fprintf(out, "Radial:      k1=%g k2=%g k3=%g\n", d.K1(), d.K2(), d.K3())
	fmt.Fprintf(out, "Tangential:  p1=%g p2=%g\n", d.P1(), d.P2())
	return nil
}

func runCalibInit(cmd *cobra.Command, args []string) error {
	if initWidth <= 0 || initHeight <= 0 {
		return fmt.Errorf("image size must be positive, got %dx%d", initWidth, initHeight)
	}
	path := args[0]
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	result := camera.Calibration{Intrinsics: camera.NominalIntrinsics(initWidth, initHeight)}
	if err := calibration.Persist(path, result); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote nominal %dx%d calibration to %s\n", initWidth, initHeight, path)
	return nil
}
