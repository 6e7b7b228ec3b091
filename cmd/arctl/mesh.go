package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/Faultbox/arcalib/pkg/formats"
)

var meshCmd = &cobra.Command{
	Use:   "mesh",
	Short: "Work with OBJ meshes",
}

var meshInfoCmd = &cobra.Command{
	Use:   "info <file.obj>",
	Short: "Show mesh statistics and validate face indices",
	Args:  cobra.ExactArgs(1),
	RunE:  runMeshInfo,
}

func runMeshInfo(cmd *cobra.Command, args []string) error {
	mesh, err := formats.LoadOBJ(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "File:       %s\n", args[0])
	fmt.Fprintf(out, "Vertices:   %d\n", len(mesh.Vertices))
	fmt.Fprintf(out, "TexCoords:  %d\n", len(mesh.TexCoords))
	fmt.Fprintf(out, "Normals:    %d\n", len(mesh.Normals))
	fmt.Fprintf(out, "Faces:      %d\n", len(mesh.Faces))

	if len(mesh.Vertices) > 0 {
		lo, hi := bounds(mesh)
		fmt.Fprintf(out, "Bounds:     [%g %g %g] .. [%g %g %g]\n", lo[0], lo[1], lo[2], hi[0], hi[1], hi[2])
	}

	sides := make(map[int]int)
	for _, f := range mesh.Faces {
		sides[len(f.VertexIndices)]++
	}
	for n := 1; n <= maxKey(sides); n++ {
		if c := sides[n]; c > 0 {
			fmt.Fprintf(out, "  %d-gons:   %d\n", n, c)
		}
	}

	if err := mesh.Validate(); err != nil {
		return fmt.Errorf("mesh is not usable: %w", err)
	}
	fmt.Fprintln(out, "Status:     OK")
	return nil
}

func bounds(m *formats.Mesh) (lo, hi [3]float64) {
	for i := range lo {
		lo[i], hi[i] = math.Inf(1), math.Inf(-1)
	}
	for _, v := range m.Vertices {
		for i, c := range [3]float64{v.X, v.Y, v.Z} {
			lo[i] = math.Min(lo[i], c)
			hi[i] = math.Max(hi[i], c)
		}
	}
	return lo, hi
}

func maxKey(m map[int]int) int {
	n := 0
	for k := range m {
		n = max(n, k)
	}
	return n
}
