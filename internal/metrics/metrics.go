// Package metrics exposes session counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters updated by the frame pipeline.
type Metrics struct {
	FramesRead        atomic.Uint64
	FramesDetected    atomic.Uint64
	PosesSolved       atomic.Uint64
	SamplesCaptured   atomic.Uint64
	Calibrations      atomic.Uint64
	CalibrationErrors atomic.Uint64
	PyramidShrinks    atomic.Uint64
	MeshFacesSkipped  atomic.Uint64
	Snapshots         atomic.Uint64
	ReadErrors        atomic.Uint64

	// Stored as math.Float64bits.
	reprojectionError atomic.Uint64
	frameLatencyUs    atomic.Uint64

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.register()
	return m
}

func (m *Metrics) register() {
	counters := []struct {
		name, help string
		v          *atomic.Uint64
	}{
		{"arcalib_frames_read_total", "Frames read from the source", &m.FramesRead},
		{"arcalib_frames_detected_total", "Frames with a detected calibration target", &m.FramesDetected},
		{"arcalib_poses_solved_total", "Frames with a solved target pose", &m.PosesSolved},
		{"arcalib_samples_captured_total", "Calibration samples recorded", &m.SamplesCaptured},
		{"arcalib_calibrations_total", "Successful calibrations", &m.Calibrations},
		{"arcalib_calibration_errors_total", "Failed calibration attempts", &m.CalibrationErrors},
		{"arcalib_pyramid_shrinks_total", "Frames where the pyramid was shrunk to fit the board", &m.PyramidShrinks},
		{"arcalib_mesh_faces_skipped_total", "Mesh faces skipped for out-of-range vertex indices", &m.MeshFacesSkipped},
		{"arcalib_snapshots_total", "Annotated frames saved", &m.Snapshots},
		{"arcalib_read_errors_total", "Frame source read errors", &m.ReadErrors},
	}
	for _, c := range counters {
		v := c.v
		m.registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: c.name, Help: c.help},
			func() float64 { return float64(v.Load()) },
		))
	}

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "arcalib_reprojection_error_pixels",
			Help: "RMS reprojection error of the last successful calibration",
		},
		func() float64 { return loadFloat(&m.reprojectionError) },
	))
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "arcalib_frame_latency_seconds",
			Help: "Processing time of the last frame",
		},
		func() float64 { return float64(m.frameLatencyUs.Load()) / 1e6 },
	))
}

// SetReprojectionError records the error of the latest calibration.
func (m *Metrics) SetReprojectionError(v float64) {
	storeFloat(&m.reprojectionError, v)
}

// ReprojectionError returns the value last set.
func (m *Metrics) ReprojectionError() float64 {
	return loadFloat(&m.reprojectionError)
}

// UpdateFrameLatency records how long the last frame took.
func (m *Metrics) UpdateFrameLatency(d time.Duration) {
	m.frameLatencyUs.Store(uint64(d.Microseconds()))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
