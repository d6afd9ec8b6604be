package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"lasdesk/internal/client"
	"lasdesk/internal/events"
	"lasdesk/internal/processing"
	"lasdesk/internal/shared/telemetry"
	"lasdesk/internal/views"
)

var (
	// ErrJobFailed is returned by Watch when the server reports an error step.
	ErrJobFailed = errors.New("processing failed")
	// ErrConnectionLost is returned by Watch when the event stream drops.
	ErrConnectionLost = errors.New("event stream lost; run `lasctl files watch` to resume")
	// ErrNoActiveJob is returned by Watch when nothing is being processed.
	ErrNoActiveJob = errors.New("no file is being processed")
)

// App is one lasctl process: the REST client, the durable processing
// state and the stream bound to it.
type App struct {
	Config  Config
	API     *client.Client
	Store   *processing.Store
	Cache   *processing.LogCache
	Stream  *processing.StreamClient
	Tracker *processing.Tracker
	Toasts  *Toaster

	out     io.Writer
	confirm views.Confirmer
	logger  telemetry.Logger

	stopFinish func()
}

// NewApp wires an App from cfg. The active job is restored from the
// snapshot in cfg.StateDir.
func NewApp(cfg Config, out io.Writer, confirm views.Confirmer) (*App, error) {
	logger := telemetry.Default()
	cache, err := processing.NewLogCache(cfg.LogCacheSize, cfg.LogRetention)
	if err != nil {
		return nil, err
	}
	api := client.New(cfg.APIURL, cfg.Timeout, logger)
	store := processing.NewStore(&processing.FileSnapshotStore{Dir: cfg.StateDir}, logger)
	transport := processing.NewSSETransport(api.EventsURL(), api.StreamHTTPClient(), logger)
	stream := processing.NewStreamClient(transport, cache, store, logger)
	tracker := processing.NewTracker(store, stream, cache, logger)

	out = &syncWriter{w: out}
	a := &App{
		Config:  cfg,
		API:     api,
		Store:   store,
		Cache:   cache,
		Stream:  stream,
		Tracker: tracker,
		Toasts:  NewToaster(out),
		out:     out,
		confirm: confirm,
		logger:  logger,
	}
	a.stopFinish = tracker.OnFinish(a.finished)
	return a, nil
}

// Deps returns the collaborators for list and detail views.
func (a *App) Deps() views.Deps {
	return views.Deps{
		API:         a.API,
		Coordinator: views.NewCoordinator(a.Toasts, a.confirm, a.logger),
		Notifier:    a.Toasts,
		Store:       a.Store,
		Cache:       a.Cache,
		Tracker:     a.Tracker,
	}
}

// Close stops the tracker and the stream.
func (a *App) Close() {
	a.stopFinish()
	a.Tracker.Close()
	a.Stream.Close()
}

func (a *App) finished(fileID int64, e processing.LogEntry) {
	switch {
	case e.Step == events.StepDone:
		a.Toasts.Success(fmt.Sprintf("File %d processed", fileID))
	case e.Local:
		a.Toasts.Error(fmt.Sprintf("File %d: %s", fileID, e.Message))
	default:
		a.Toasts.Error(fmt.Sprintf("File %d failed: %s", fileID, e.Message))
	}
}

// Watch follows fileID until its job finishes, printing each log line
// with the current progress. Interrupting leaves the job in the snapshot.
func (a *App) Watch(ctx context.Context, fileID int64) error {
	finished := make(chan processing.LogEntry, 1)
	a.Stream.Listen(func(id int64, e processing.LogEntry) {
		if id != fileID {
			return
		}
		progress := a.Store.Active().Progress
		if e.Step == events.StepDone {
			progress = 100
		}
		fmt.Fprintln(a.out, ProgressBar(progress), EntryLine(e))
		if !e.Terminal() {
			return
		}
		select {
		case finished <- e:
		default:
		}
	})

	if last, ok := a.Cache.Last(fileID); ok && last.Terminal() && !last.Local {
		if last.Step == events.StepDone {
			fmt.Fprintln(a.out, ProgressBar(100), EntryLine(last))
		}
		return outcome(last)
	}
	if !a.Store.Active().IsActive(fileID) {
		return ErrNoActiveJob
	}
	if f, err := a.API.GetFile(ctx, fileID); err == nil && f.Processed {
		a.Store.SetActive(nil, 0)
		fmt.Fprintln(a.out, ProgressBar(100), "already processed")
		return nil
	} else if client.IsNotFound(err) {
		a.Store.SetActive(nil, 0)
		return fmt.Errorf("file %d: %w", fileID, err)
	}

	detach := a.Tracker.Attach()
	defer detach()

	ticker := time.NewTicker(a.Config.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-finished:
			return outcome(e)
		case <-ticker.C:
			// Events sent before the stream connected are not replayed.
			f, err := a.API.GetFile(ctx, fileID)
			if err != nil || !f.Processed {
				continue
			}
			if a.Store.Active().IsActive(fileID) {
				a.Store.SetActive(nil, 0)
			}
			fmt.Fprintln(a.out, ProgressBar(100), "processed")
			return nil
		}
	}
}

func outcome(e processing.LogEntry) error {
	switch {
	case e.Step == events.StepDone:
		return nil
	case e.Local:
		return ErrConnectionLost
	default:
		return fmt.Errorf("%w: %s", ErrJobFailed, e.Message)
	}
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
