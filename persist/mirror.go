package persist

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/billbatista/acasinha-diary/catalog"
	"github.com/billbatista/acasinha-diary/ledger"
	"github.com/billbatista/acasinha-diary/settings"
)

type write func(ctx context.Context) error

// Mirror copies in-memory state to storage in the background. Only the latest
// pending snapshot per collection is written; a failed write is logged and
// left for the next snapshot to overwrite.
type Mirror struct {
	adapter *Adapter
	log     zerolog.Logger

	mu      sync.Mutex
	pending map[string]write
	waiters []chan struct{}
	errs    []error
	closed  bool

	wake   chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewMirror(adapter *Adapter, log zerolog.Logger) *Mirror {
	ctx, cancel := context.WithCancel(context.Background())
	return &Mirror{
		adapter: adapter,
		log:     log,
		pending: make(map[string]write),
		wake:    make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (m *Mirror) Start() {
	m.wg.Go(func() {
		for {
			select {
			case <-m.ctx.Done():
				m.drain()
				return
			case <-m.wake:
				m.drain()
			}
		}
	})
}

// The Save methods never block; callers may hold their own locks.

func (m *Mirror) SaveDayLogs(logs ledger.Logs) {
	m.enqueue(KeyDayLogs, func(ctx context.Context) error {
		return m.adapter.SaveDayLogs(ctx, logs)
	})
}

func (m *Mirror) SaveCustomProducts(products map[string]catalog.FoodProduct) {
	m.enqueue(KeyCustomProducts, func(ctx context.Context) error {
		return m.adapter.SaveCustomProducts(ctx, products)
	})
}

func (m *Mirror) SaveSettings(s settings.Settings) {
	m.enqueue(KeySettings, func(ctx context.Context) error {
		return m.adapter.SaveSettings(ctx, s)
	})
}

func (m *Mirror) SaveFavorites(state catalog.FavoritesState) {
	m.enqueue(KeyFavorites, func(ctx context.Context) error {
		return m.adapter.SaveFavorites(ctx, state)
	})
}

func (m *Mirror) enqueue(key string, w write) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.log.Warn().Str("key", key).Msg("mirror closed, dropping write")
		return
	}
	m.pending[key] = w
	m.mu.Unlock()
	m.signal()
}

func (m *Mirror) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Flush waits until everything enqueued so far has been written and returns
// the write errors seen since the previous Flush.
func (m *Mirror) Flush(ctx context.Context) error {
	done := make(chan struct{})
	m.mu.Lock()
	if m.closed {
		err := m.takeErrsLocked()
		m.mu.Unlock()
		return err
	}
	m.waiters = append(m.waiters, done)
	m.mu.Unlock()
	m.signal()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.takeErrsLocked()
}

// Close writes whatever is still pending and stops the worker.
func (m *Mirror) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.takeErrsLocked()
}

// drain writes with a background context so a shutdown in the middle of a
// batch does not abort it.
func (m *Mirror) drain() {
	ctx := context.Background()
	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			waiters := m.waiters
			m.waiters = nil
			m.mu.Unlock()
			for _, w := range waiters {
				close(w)
			}
			return
		}
		batch := m.pending
		m.pending = make(map[string]write)
		m.mu.Unlock()

		keys := make([]string, 0, len(batch))
		for k := range batch {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := batch[k](ctx); err != nil {
				m.log.Error().Stack().Err(err).Str("key", k).Msg("failed to mirror collection")
				m.mu.Lock()
				m.errs = append(m.errs, err)
				m.mu.Unlock()
			}
		}
	}
}

func (m *Mirror) takeErrsLocked() error {
	err := errors.Join(m.errs...)
	m.errs = nil
	return err
}
