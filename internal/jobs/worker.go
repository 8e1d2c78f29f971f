package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Worker is a background job that runs until its context ends.
type Worker interface {
	Start(ctx context.Context)
	Name() string
}

// BaseWorker runs a unit of work on a fixed interval.
type BaseWorker struct {
	name     string
	interval time.Duration
	log      *slog.Logger
}

// DefaultInterval replaces a non-positive polling interval.
const DefaultInterval = time.Minute

func NewBaseWorker(name string, interval time.Duration, log *slog.Logger) BaseWorker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return BaseWorker{
		name:     name,
		interval: interval,
		log:      log.With("worker", name),
	}
}

func (w *BaseWorker) Name() string { return w.name }

// Poll runs work once immediately and then on every tick until ctx is cancelled.
// A failed run is logged and retried on the next tick.
func (w *BaseWorker) Poll(ctx context.Context, work func(context.Context) error) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("worker started", "interval", w.interval)
	w.run(ctx, work)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopping")
			return
		case <-ticker.C:
			w.run(ctx, work)
		}
	}
}

func (w *BaseWorker) run(ctx context.Context, work func(context.Context) error) {
	if err := work(ctx); err != nil && ctx.Err() == nil {
		w.log.Error("worker run failed", "err", err)
	}
}

// Group starts workers together and waits for all of them to return.
type Group struct {
	wg sync.WaitGroup
}

func (g *Group) Go(ctx context.Context, w Worker) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		w.Start(ctx)
	}()
}

func (g *Group) Wait() { g.wg.Wait() }
