// Package app wires capture, recognition and the detection sinks into the
// running facewatch pipeline.
package app

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/ayusman/facewatch/internal/alert"
	"github.com/ayusman/facewatch/internal/capture"
	"github.com/ayusman/facewatch/internal/pipeline"
	"github.com/ayusman/facewatch/internal/recognizer"
	"github.com/ayusman/facewatch/internal/store"
)

// Pipeline timing constants.
const (
	// DefaultFPS is the consumer loop rate when Config.FPS is unset.
	DefaultFPS = 30
	// ShutdownTimeout bounds how long Stop waits for in-flight alerts.
	ShutdownTimeout = 5 * time.Second
)

// ErrNotStarted is returned by Run before Start succeeded.
var ErrNotStarted = errors.New("app not started")

// Config holds the collaborators of an App. Camera and Recognizer are
// required; every sink is optional.
type Config struct {
	Camera     capture.Camera
	Recognizer recognizer.Recognizer

	Journal   pipeline.Journal
	Snapshots pipeline.SnapshotSaver
	// Alerts is nil when no alert channel is configured.
	Alerts       alert.Sender
	Cooldown     time.Duration
	AlertWorkers int
	Caption      string

	// Store, when set, receives every dispatched detection and alert outcome.
	Store     *store.Store
	Observers []pipeline.Observer

	// FPS is the consumer loop rate.
	FPS int
	// Preview keeps an overlaid JPEG of the latest frame for PreviewJPEG.
	Preview bool

	// Closers are released by Stop after the pipeline has drained.
	Closers []io.Closer
}

// App is the running pipeline: a capture source, a single recognition worker,
// the orchestrator and the sink dispatcher.
type App struct {
	config Config

	source   *capture.Source
	executor *pipeline.Executor
	orch     *pipeline.Orchestrator
	throttle *pipeline.AlertThrottle
	pool     *pipeline.TaskPool
	disp     *pipeline.Dispatcher

	mu      sync.Mutex
	started bool
	stopped bool
	startAt time.Time

	previewMu sync.RWMutex
	preview   []byte
}

// New assembles an App from config. Nothing runs until Start.
func New(config Config) *App {
	if config.FPS <= 0 {
		config.FPS = DefaultFPS
	}

	a := &App{
		config:   config,
		source:   capture.NewSource(config.Camera),
		executor: pipeline.NewExecutor(config.Recognizer),
		throttle: pipeline.NewAlertThrottle(config.Cooldown),
		pool:     pipeline.NewTaskPool(config.AlertWorkers),
	}
	a.orch = pipeline.NewOrchestrator(a.executor)

	alerts := config.Alerts
	observers := append([]pipeline.Observer(nil), config.Observers...)
	if config.Store != nil {
		if alerts != nil {
			alerts = recordAlerts(config.Store, alerts)
		}
		observers = append(observers, recordDetections(config.Store))
	}

	a.disp = &pipeline.Dispatcher{
		Journal:   config.Journal,
		Snapshots: config.Snapshots,
		Alerts:    alerts,
		Throttle:  a.throttle,
		Pool:      a.pool,
		Observers: observers,
		Caption:   config.Caption,
	}

	if alerts == nil {
		log.Println("app: alerting disabled, no alert channel configured")
	}
	return a
}

// Start opens the camera and begins capture. A device failure is returned
// before any loop runs.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return nil
	}
	if a.stopped {
		return errors.New("app already stopped")
	}
	if err := a.source.Start(); err != nil {
		return err
	}

	a.started = true
	a.startAt = time.Now()
	log.Println("app: pipeline started")
	return nil
}

// Stop halts capture, abandons any running recognition, waits up to
// ShutdownTimeout for background alerts and releases every collaborator.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return
	}
	a.stopped = true

	a.source.Stop()
	a.executor.Close()

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := a.pool.Shutdown(ctx); err != nil {
		log.Printf("app: alert tasks still running at shutdown: %v", err)
	}

	if err := a.config.Recognizer.Close(); err != nil {
		log.Printf("app: error closing recognizer: %v", err)
	}
	for i := len(a.config.Closers) - 1; i >= 0; i-- {
		if err := a.config.Closers[i].Close(); err != nil {
			log.Printf("app: error closing %T: %v", a.config.Closers[i], err)
		}
	}

	log.Println("app: pipeline stopped")
}

// Stats is a point-in-time view of every pipeline counter.
type Stats struct {
	Uptime   string                 `json:"uptime"`
	Capture  capture.SourceStats    `json:"capture"`
	Pipeline pipeline.Stats         `json:"pipeline"`
	Alerts   pipeline.PoolStats     `json:"alerts"`
	Tracked  int                    `json:"tracked_identities"`
	Last     []recognizer.Detection `json:"last_detections"`
}

// Stats returns the current counters.
func (a *App) Stats() Stats {
	a.mu.Lock()
	startAt := a.startAt
	a.mu.Unlock()

	var uptime time.Duration
	if !startAt.IsZero() {
		uptime = time.Since(startAt).Round(time.Second)
	}

	return Stats{
		Uptime:   uptime.String(),
		Capture:  a.source.Stats(),
		Pipeline: a.orch.Stats(),
		Alerts:   a.pool.Stats(),
		Tracked:  a.throttle.Len(),
		Last:     a.orch.Cached().Detections,
	}
}

// PreviewJPEG returns the latest overlaid frame, if preview encoding is on
// and a frame has been processed.
func (a *App) PreviewJPEG() ([]byte, bool) {
	a.previewMu.RLock()
	defer a.previewMu.RUnlock()
	return a.preview, a.preview != nil
}

// Throttle returns the alert cooldown table.
func (a *App) Throttle() *pipeline.AlertThrottle {
	return a.throttle
}

// Orchestrator returns the recognition orchestrator.
func (a *App) Orchestrator() *pipeline.Orchestrator {
	return a.orch
}
