package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultMemoSize is the number of values kept in a Memo's front cache.
const DefaultMemoSize = 1024

// Memo is a read-through cache over a ByteStore.
//
// The backing store is initialized at most once, asynchronously, by Start
// or the first Load. Loads and stores block until that initialization has
// finished. Store failures, including a failed Init, are logged at Warn and
// reported as cache misses; the in-process front cache keeps working.
//
// Memo is safe for concurrent use.
type Memo struct {
	backing ByteStore
	log     *slog.Logger
	front   *lru.Cache

	once    sync.Once
	ready   chan struct{}
	initErr error

	hits     atomic.Int64
	misses   atomic.Int64
	failures atomic.Int64
}

// MemoStats reports Memo activity.
type MemoStats struct {
	Hits     int64
	Misses   int64
	Failures int64
	Cached   int
}

// NewMemo wraps backing with a front cache of size entries (DefaultMemoSize
// if size <= 0). A nil backing store makes the memo purely in-process.
func NewMemo(backing ByteStore, size int, log *slog.Logger) *Memo {
	if size <= 0 {
		size = DefaultMemoSize
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	front, err := lru.New(size)
	if err != nil {
		// lru.New fails only for non-positive sizes.
		panic(err)
	}
	return &Memo{
		backing: backing,
		log:     log.With(slog.String("component", "memo")),
		front:   front,
		ready:   make(chan struct{}),
	}
}

// Start begins initializing the backing store in a new goroutine. Only the
// first call has an effect.
func (m *Memo) Start(ctx context.Context) {
	m.once.Do(func() {
		go m.init(context.WithoutCancel(ctx))
	})
}

func (m *Memo) init(ctx context.Context) {
	defer close(m.ready)
	if m.backing == nil {
		return
	}
	if err := m.backing.Init(ctx); err != nil {
		m.initErr = err
		m.log.Warn("byte store init failed, memo is in-process only", slog.Any("err", err))
	}
}

// Ready returns a channel closed once initialization has finished.
func (m *Memo) Ready() <-chan struct{} { return m.ready }

// Err returns the initialization error, if any. It is only meaningful after
// Ready is closed.
func (m *Memo) Err() error {
	select {
	case <-m.ready:
		return m.initErr
	default:
		return nil
	}
}

// Wait starts initialization if needed and blocks until it has finished or
// ctx is done.
func (m *Memo) Wait(ctx context.Context) error {
	m.Start(ctx)
	select {
	case <-m.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Memo) usable(ctx context.Context) bool {
	if err := m.Wait(ctx); err != nil {
		return false
	}
	return m.backing != nil && m.initErr == nil
}

// Load returns the value for key from the front cache or the backing store.
func (m *Memo) Load(ctx context.Context, key string) ([]byte, bool) {
	if v, ok := m.front.Get(key); ok {
		m.hits.Add(1)
		return v.([]byte), true
	}
	if !m.usable(ctx) {
		m.misses.Add(1)
		return nil, false
	}

	data, ok, err := m.backing.Get(ctx, key)
	if err != nil {
		m.failures.Add(1)
		m.misses.Add(1)
		m.log.Warn("byte store get failed", slog.String("key", key), slog.Any("err", err))
		return nil, false
	}
	if !ok {
		m.misses.Add(1)
		return nil, false
	}
	m.hits.Add(1)
	m.front.Add(key, data)
	return data, true
}

// Store records data under key in the front cache and the backing store.
// Callers must not modify data afterwards.
func (m *Memo) Store(ctx context.Context, key string, data []byte) {
	m.front.Add(key, data)
	if !m.usable(ctx) {
		return
	}
	if err := m.backing.Write(ctx, key, data); err != nil {
		m.failures.Add(1)
		m.log.Warn("byte store write failed", slog.String("key", key), slog.Any("err", err))
	}
}

// Stats returns a snapshot of the memo counters.
func (m *Memo) Stats() MemoStats {
	return MemoStats{
		Hits:     m.hits.Load(),
		Misses:   m.misses.Load(),
		Failures: m.failures.Load(),
		Cached:   m.front.Len(),
	}
}
