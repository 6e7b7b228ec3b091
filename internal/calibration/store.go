// Package calibration accumulates chessboard correspondences across frames,
// runs intrinsic calibration once enough views are collected, and persists
// the result in the calibration text format.
package calibration

import (
	"errors"
	"fmt"
	"image"

	"github.com/Faultbox/arcalib/internal/camera"
	"github.com/Faultbox/arcalib/pkg/formats"
	"github.com/Faultbox/arcalib/pkg/geom"
)

// MinSamples is the number of recorded views required before calibrating.
const MinSamples = 5

// Sample store errors.
var (
	ErrInsufficientSamples = errors.New("not enough calibration samples")
	ErrMismatchedSample    = errors.New("image and object point counts differ")
)

// Sample is one frame's detected image points paired with the target points
// they correspond to, element by element.
type Sample struct {
	ImagePoints  []geom.Vec2
	ObjectPoints []geom.Vec3
}

// NewSample copies the point sets into a Sample, rejecting sets of
// different length.
func NewSample(image []geom.Vec2, object []geom.Vec3) (Sample, error) {
	if len(image) != len(object) {
		return Sample{}, fmt.Errorf("%w: %d image, %d object", ErrMismatchedSample, len(image), len(object))
	}
	return Sample{
		ImagePoints:  append([]geom.Vec2(nil), image...),
		ObjectPoints: append([]geom.Vec3(nil), object...),
	}, nil
}

// Calibrator is the calibration routine the store delegates to.
type Calibrator interface {
	Calibrate(objectSets [][]geom.Vec3, imageSets [][]geom.Vec2, imageSize image.Point) (camera.Calibration, error)
}

// Store is an append-only log of samples. It is owned by the frame loop and
// is not safe for concurrent use.
type Store struct {
	calibrator Calibrator
	minSamples int
	samples    []Sample
}

// NewStore creates an empty store. minSamples below MinSamples is raised to
// MinSamples.
func NewStore(c Calibrator, minSamples int) *Store {
	if minSamples < MinSamples {
		minSamples = MinSamples
	}
	return &Store{calibrator: c, minSamples: minSamples}
}

// RecordSample appends a sample and returns the new sample count.
func (s *Store) RecordSample(sample Sample) int {
	s.samples = append(s.samples, sample)
	return len(s.samples)
}

// Len returns the number of recorded samples.
func (s *Store) Len() int {
	return len(s.samples)
}

// MinSamples returns the sample count Calibrate requires.
func (s *Store) MinSamples() int {
	return s.minSamples
}

// Calibrate runs calibration over every recorded sample. Samples are kept,
// so calibrating again later reuses them together with any new ones.
func (s *Store) Calibrate(imageSize image.Point) (camera.Calibration, error) {
	if len(s.samples) < s.minSamples {
		return camera.Calibration{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientSamples, len(s.samples), s.minSamples)
	}

	objectSets := make([][]geom.Vec3, len(s.samples))
	imageSets := make([][]geom.Vec2, len(s.samples))
	for i, sample := range s.samples {
		objectSets[i] = sample.ObjectPoints
		imageSets[i] = sample.ImagePoints
	}

	result, err := s.calibrator.Calibrate(objectSets, imageSets, imageSize)
	if err != nil {
		return camera.Calibration{}, fmt.Errorf("calibrating %d samples: %w", len(s.samples), err)
	}
	return result, nil
}

// Persist writes a calibration result to path, replacing existing content.
func Persist(path string, result camera.Calibration) error {
	data := formats.CalibrationData{
		CameraMatrix:      [9]float64(result.Intrinsics),
		Distortion:        result.Distortion[:],
		ReprojectionError: result.ReprojectionError,
	}
	return formats.SaveCalibration(path, data)
}

// Load reads the intrinsics and distortion written by Persist.
func Load(path string) (camera.Intrinsics, camera.Distortion, error) {
	data, err := formats.LoadCalibration(path)
	if err != nil {
		return camera.Intrinsics{}, camera.Distortion{}, err
	}
	var d camera.Distortion
	copy(d[:], data.Distortion)
	return camera.Intrinsics(data.CameraMatrix), d, nil
}

// LoadModel is Load returning a camera.Model.
func LoadModel(path string) (camera.Model, error) {
	k, d, err := Load(path)
	if err != nil {
		return camera.Model{}, err
	}
	return camera.Model{Intrinsics: k, Distortion: d}, nil
}
