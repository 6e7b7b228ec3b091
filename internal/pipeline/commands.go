package pipeline

import (
	"go.uber.org/zap"

	"github.com/Faultbox/arcalib/internal/calibration"
	"github.com/Faultbox/arcalib/internal/logger"
)

// CaptureSample records the current detection as a calibration sample.
// Frames without a detection are ignored.
func (p *Pipeline) CaptureSample() {
	if !p.found {
		logger.Info("no chessboard in view; sample not captured")
		return
	}
	sample, err := calibration.NewSample(p.corners, p.board)
	if err != nil {
		logger.Error("capturing sample", zap.Error(err))
		return
	}
	n := p.store.RecordSample(sample)
	p.metrics.SamplesCaptured.Add(1)
	logger.Info("saved calibration image", zap.Int("corners", len(p.corners)), zap.Int("samples", n))
}

// Calibrate calibrates from every sample so far, switches to the new model
// and persists it.
func (p *Pipeline) Calibrate() {
	result, err := p.store.Calibrate(p.frame.Bounds().Size())
	if err != nil {
		p.metrics.CalibrationErrors.Add(1)
		logger.Error("calibration failed", zap.Error(err),
			zap.Int("samples", p.store.Len()), zap.Int("required", p.store.MinSamples()))
		return
	}

	p.metrics.Calibrations.Add(1)
	p.metrics.SetReprojectionError(result.ReprojectionError)
	p.SetModel(result.Model())
	logger.Info("calibration done",
		zap.Float64("reprojection_error", result.ReprojectionError),
		zap.Stringer("camera_matrix", result.Intrinsics),
		zap.Float64s("distortion", result.Distortion[:]))

	if p.opts.CalibrationFile == "" {
		return
	}
	if err := calibration.Persist(p.opts.CalibrationFile, result); err != nil {
		logger.Error("failed to save calibration data", zap.String("file", p.opts.CalibrationFile), zap.Error(err))
		return
	}
	logger.Info("calibration data saved", zap.String("file", p.opts.CalibrationFile))
}

// Snapshot saves the frame once all overlays are drawn.
func (p *Pipeline) Snapshot() {
	p.snapshotPending = true
}
