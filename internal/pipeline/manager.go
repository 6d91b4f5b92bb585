package pipeline

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kozaktomas/chronoface/internal/bucket"
	"github.com/kozaktomas/chronoface/internal/config"
	"github.com/kozaktomas/chronoface/internal/detect"
	"github.com/kozaktomas/chronoface/internal/exifmeta"
)

// FaceService is the inference backend the pipeline depends on. Implemented
// by detect.Client.
type FaceService interface {
	Ping(ctx context.Context) error
	Detect(ctx context.Context, imageData []byte) ([]detect.Detection, error)
	Embed(ctx context.Context, imageData []byte) ([]float32, error)
}

// Manager owns all runs in the process. Runs are kept in memory for the
// lifetime of the server; there is no persistence across restarts.
type Manager struct {
	mu       sync.RWMutex
	runs     map[string]*RunContext
	channels map[string]*EventChannel

	faces FaceService
	cfg   *config.Config

	// captureTime reads a photo's timestamp; swapped out in tests.
	captureTime func(path string) (time.Time, string)
}

// NewManager creates a run manager backed by the given inference service.
func NewManager(cfg *config.Config, faces FaceService) *Manager {
	return &Manager{
		runs:        make(map[string]*RunContext),
		channels:    make(map[string]*EventChannel),
		faces:       faces,
		cfg:         cfg,
		captureTime: exifmeta.ReadCaptureTime,
	}
}

// Get returns a run by id.
func (m *Manager) Get(runID string) (*RunContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, nil
}

// GetChannel returns the event channel of a run.
func (m *Manager) GetChannel(runID string) (*EventChannel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return ch, nil
}

// Runs returns all known runs, newest first.
func (m *Manager) Runs() []*RunContext {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*RunContext, 0, len(m.runs))
	for _, run := range m.runs {
		out = append(out, run)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].StartedAt().After(out[i].StartedAt()) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

// StartRun validates the request, registers a new run and launches the
// pipeline in the background. The returned run is already registered so
// its status and event channel can be read immediately.
func (m *Manager) StartRun(params RunParameters) (*RunContext, error) {
	if err := m.validate(params); err != nil {
		return nil, err
	}
	if err := m.faces.Ping(context.Background()); err != nil {
		return nil, err
	}

	run := m.register(params)
	runsStarted.Inc()

	go m.runWorker(run)
	return run, nil
}

// RunOnce executes the whole pipeline synchronously. Used by the CLI where
// there is no server to poll; events still flow through the run's channel.
func (m *Manager) RunOnce(ctx context.Context, params RunParameters) (*RunContext, error) {
	if err := m.validate(params); err != nil {
		return nil, err
	}
	if err := m.faces.Ping(ctx); err != nil {
		return nil, err
	}

	run := m.register(params)
	runsStarted.Inc()

	if err := m.execute(ctx, run); err != nil {
		return run, err
	}
	return run, nil
}

func (m *Manager) validate(params RunParameters) error {
	info, err := os.Stat(params.Folder)
	if err != nil {
		return fmt.Errorf("%w: folder %q not found", ErrInvalidRequest, params.Folder)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %q is not a directory", ErrInvalidRequest, params.Folder)
	}
	if _, err := bucket.Parse(string(params.Bucket)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

func (m *Manager) register(params RunParameters) *RunContext {
	run := newRunContext(uuid.New().String(), params)
	run.channel = NewEventChannel()

	m.mu.Lock()
	m.runs[run.RunID] = run
	m.channels[run.RunID] = run.channel
	m.mu.Unlock()
	return run
}

// runWorker drives one run to completion in the background.
func (m *Manager) runWorker(run *RunContext) {
	if err := m.execute(context.Background(), run); err != nil {
		log.Error().Err(err).Str("run_id", run.RunID).Msg("pipeline run failed")
	}
}

// execute runs all pipeline phases and publishes the terminal event. Any
// phase error or panic moves the run to the error phase.
func (m *Manager) execute(ctx context.Context, run *RunContext) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pipeline panic: %v", rec)
		}
		if err != nil {
			run.Errors = append(run.Errors, err.Error())
			m.publishPhase(run, PhaseError, err.Error())
			run.channel.Publish("error", map[string]string{
				"run_id": run.RunID,
				"error":  err.Error(),
			})
			runsFailed.Inc()
			return
		}
		m.publishPhase(run, PhaseDone, "Processing complete")
		run.channel.Publish("done", map[string]string{"run_id": run.RunID})
		runsCompleted.Inc()
	}()

	logger := log.With().Str("run_id", run.RunID).Logger()
	logger.Info().
		Str("folder", run.Parameters.Folder).
		Str("bucket", string(run.Parameters.Bucket)).
		Msg("starting pipeline run")

	if err := m.scanPhase(ctx, run); err != nil {
		return fmt.Errorf("scan phase: %w", err)
	}
	if err := m.detectPhase(ctx, run); err != nil {
		return fmt.Errorf("detect phase: %w", err)
	}
	if err := m.clusterPhase(run); err != nil {
		return fmt.Errorf("cluster phase: %w", err)
	}

	logger.Info().
		Int("photos", len(run.PhotoOrder)).
		Int("faces", len(run.FaceOrder)).
		Int("skipped", len(run.Skipped)).
		Int("clusters", len(run.Clusters)).
		Msg("pipeline run finished")
	return nil
}

// publishPhase updates the run phase and emits a phase event.
func (m *Manager) publishPhase(run *RunContext, phase Phase, message string) {
	run.UpdatePhase(phase, message)
	run.channel.Publish("phase", run.Status())
}

// publishProgress emits a progress event with the current counters.
func (m *Manager) publishProgress(run *RunContext) {
	run.channel.Publish("progress", run.Status())
}
