package prefs

import (
	"context"
	"time"

	"github.com/sweeney/sensor-node/internal/component"
	"github.com/sweeney/sensor-node/internal/logging"
)

// flushTimeout bounds one flush so a stuck disk cannot stall the loop forever.
const flushTimeout = 2 * time.Second

// Flusher is the component that writes pending preferences.
type Flusher struct {
	component.Base
	component.Polling

	store *Store
	log   *logging.Logger
	where string
}

// NewFlusher flushes store every interval and at shutdown. where describes
// the backend for DumpConfig.
func NewFlusher(store *Store, interval time.Duration, where string, log *logging.Logger) *Flusher {
	return &Flusher{
		Base:    component.NewBase("preferences"),
		Polling: component.NewPolling(interval),
		store:   store,
		log:     log.Component("preferences"),
		where:   where,
	}
}

// SetupPriority runs before the components that restore from preferences.
func (f *Flusher) SetupPriority() float64 { return component.PriorityBus }

func (f *Flusher) Update() { f.flush() }

func (f *Flusher) OnShutdown() { f.flush() }

func (f *Flusher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	n, err := f.store.Flush(ctx)
	if err != nil {
		f.Status().SetWarning()
		f.log.Warn("preferences flush failed", "error", err, "pending", len(f.store.Pending()))
		return
	}
	f.Status().ClearWarning()
	if n > 0 {
		f.log.Debug("preferences flushed", "keys", n)
	}
}

func (f *Flusher) DumpConfig(log *logging.Logger) {
	log.Info("preferences",
		"backend", f.where,
		"flush_interval", component.FormatInterval(f.UpdateInterval()))
}
