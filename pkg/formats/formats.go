// Package formats provides parsers and writers for the text files the AR
// session reads and produces.
package formats

// Note: OBJ (Wavefront mesh) is implemented in obj.go
// Note: the calibration data layout is implemented in calib.go
