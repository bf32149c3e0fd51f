package eventlogger

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

type Worker struct {
	eventCh chan Event
	logger  EventLogger
	log     zerolog.Logger
	dropped atomic.Int64
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewWorker(logger EventLogger, bufferSize int, log zerolog.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		eventCh: make(chan Event, bufferSize),
		logger:  logger,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (w *Worker) Start() {
	w.wg.Go(func() {
		for {
			select {
			case <-w.ctx.Done():
				w.log.Info().Int("remaining_events", len(w.eventCh)).Msg("draining events before shutdown")
				for len(w.eventCh) > 0 {
					event := <-w.eventCh
					if err := w.logger.Save(context.Background(), event); err != nil {
						w.log.Error().Stack().Err(err).Str("event_type", event.Type).Msg("failed to save event during shutdown")
					}
				}
				return
			case event := <-w.eventCh:
				if err := w.logger.Save(w.ctx, event); err != nil {
					w.log.Error().Stack().Err(err).Str("event_type", event.Type).Msg("failed to save event")
				}
			}
		}
	})
}

// Log never blocks; when the buffer is full the event is dropped.
func (w *Worker) Log(event Event) {
	select {
	case w.eventCh <- event:
	default:
		w.dropped.Add(1)
		w.log.Warn().Str("event_type", event.Type).Msg("event channel full, dropping event")
	}
}

// Dropped counts events lost to a full buffer.
func (w *Worker) Dropped() int64 {
	return w.dropped.Load()
}

func (w *Worker) Shutdown() {
	w.cancel()
	w.wg.Wait()
}
