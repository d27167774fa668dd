package store

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryGetWrite(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if _, ok, err := m.Get(ctx, "a"); ok || err != nil {
		t.Errorf("Get(missing) = ok %v, err %v; want false, nil", ok, err)
	}

	data := []byte{1, 2, 3}
	if err := m.Write(ctx, "a", data); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	data[0] = 9

	got, ok, err := m.Get(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("Get(a) = ok %v, err %v", ok, err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("Get(a) = %v, want [1 2 3]", got)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestMemoryClosed(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.Close()

	if err := m.Write(ctx, "a", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Write after Close error = %v, want ErrClosed", err)
	}
	if _, _, err := m.Get(ctx, "a"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get after Close error = %v, want ErrClosed", err)
	}
}

func TestMemoryConcurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			_ = m.Write(ctx, key, []byte{byte(i)})
			_, _, _ = m.Get(ctx, key)
		}(i)
	}
	wg.Wait()
	if m.Len() != 16 {
		t.Errorf("Len() = %d, want 16", m.Len())
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache", "arcs.sqlite")
	s := NewSQLite(path, nil)
	if err := s.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer s.Close()

	if _, ok, err := s.Get(ctx, "k"); ok || err != nil {
		t.Errorf("Get(missing) = ok %v, err %v; want false, nil", ok, err)
	}
	if err := s.Write(ctx, "k", []byte("first")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := s.Write(ctx, "k", []byte("second")); err != nil {
		t.Fatalf("Write(overwrite) error = %v", err)
	}
	got, ok, err := s.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get(k) = ok %v, err %v", ok, err)
	}
	if string(got) != "second" {
		t.Errorf("Get(k) = %q, want %q", got, "second")
	}
	n, err := s.Count(ctx)
	if err != nil || n != 1 {
		t.Errorf("Count() = %d, %v; want 1, nil", n, err)
	}
}

func TestSQLitePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "arcs.sqlite")

	s := NewSQLite(path, nil)
	if err := s.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := s.Write(ctx, "k", []byte{7}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s2 := NewSQLite(path, nil)
	if err := s2.Init(ctx); err != nil {
		t.Fatalf("reopen Init() error = %v", err)
	}
	defer s2.Close()
	got, ok, err := s2.Get(ctx, "k")
	if err != nil || !ok || !bytes.Equal(got, []byte{7}) {
		t.Errorf("Get after reopen = %v, %v, %v; want [7], true, nil", got, ok, err)
	}
}

func TestSQLiteUninitialized(t *testing.T) {
	s := NewSQLite(filepath.Join(t.TempDir(), "x.sqlite"), nil)
	if _, _, err := s.Get(context.Background(), "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get before Init error = %v, want ErrClosed", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close before Init error = %v, want nil", err)
	}
}

func TestSQLiteEmptyPath(t *testing.T) {
	if err := NewSQLite("  ", nil).Init(context.Background()); err == nil {
		t.Error("Init with empty path should fail")
	}
}

// flakyStore fails every operation and counts Init calls.
type flakyStore struct {
	inits   atomic.Int32
	initErr error
	gate    chan struct{}
}

func (f *flakyStore) Init(context.Context) error {
	f.inits.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return f.initErr
}

func (f *flakyStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk on fire")
}

func (f *flakyStore) Write(context.Context, string, []byte) error {
	return errors.New("disk on fire")
}

func TestMemoFrontCache(t *testing.T) {
	ctx := context.Background()
	backing := NewMemory()
	m := NewMemo(backing, 4, nil)

	if _, ok := m.Load(ctx, "k"); ok {
		t.Fatal("Load(missing) should miss")
	}
	m.Store(ctx, "k", []byte{1})

	got, ok := m.Load(ctx, "k")
	if !ok || !bytes.Equal(got, []byte{1}) {
		t.Errorf("Load(k) = %v, %v; want [1], true", got, ok)
	}
	if backing.Len() != 1 {
		t.Errorf("backing Len() = %d, want 1", backing.Len())
	}

	st := m.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Cached != 1 {
		t.Errorf("Stats() = %+v, want 1 hit, 1 miss, 1 cached", st)
	}
}

func TestMemoReadsThrough(t *testing.T) {
	ctx := context.Background()
	backing := NewMemory()
	_ = backing.Write(ctx, "k", []byte{5})

	m := NewMemo(backing, 0, nil)
	got, ok := m.Load(ctx, "k")
	if !ok || !bytes.Equal(got, []byte{5}) {
		t.Errorf("Load(k) = %v, %v; want [5], true", got, ok)
	}
	if m.Stats().Cached != 1 {
		t.Errorf("Cached = %d, want 1 after read-through", m.Stats().Cached)
	}
}

func TestMemoFailuresAreMisses(t *testing.T) {
	ctx := context.Background()
	m := NewMemo(&flakyStore{}, 4, nil)

	if _, ok := m.Load(ctx, "k"); ok {
		t.Error("Load from failing store should miss")
	}
	m.Store(ctx, "k", []byte{1})
	if got, ok := m.Load(ctx, "k"); !ok || got[0] != 1 {
		t.Errorf("Load after Store = %v, %v; want front-cache hit", got, ok)
	}
	if f := m.Stats().Failures; f != 2 {
		t.Errorf("Failures = %d, want 2", f)
	}
}

func TestMemoInitOnce(t *testing.T) {
	f := &flakyStore{initErr: errors.New("no disk")}
	m := NewMemo(f, 4, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Load(ctx, "k")
		}()
	}
	wg.Wait()

	if n := f.inits.Load(); n != 1 {
		t.Errorf("Init called %d times, want 1", n)
	}
	if m.Err() == nil {
		t.Error("Err() = nil, want init error")
	}
	// A failed init leaves the backing store unused.
	if n := m.Stats().Failures; n != 0 {
		t.Errorf("Failures = %d, want 0", n)
	}
}

func TestMemoWaitsForInit(t *testing.T) {
	f := &flakyStore{gate: make(chan struct{})}
	m := NewMemo(f, 4, nil)
	m.Start(context.Background())

	select {
	case <-m.Ready():
		t.Fatal("Ready closed before Init returned")
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := m.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
	}

	close(f.gate)
	if err := m.Wait(context.Background()); err != nil {
		t.Errorf("Wait() after init error = %v", err)
	}
}

func TestMemoNilBacking(t *testing.T) {
	ctx := context.Background()
	m := NewMemo(nil, 2, nil)
	m.Store(ctx, "a", []byte{1})
	if _, ok := m.Load(ctx, "a"); !ok {
		t.Error("Load(a) should hit the front cache")
	}
	m.Store(ctx, "b", []byte{2})
	m.Store(ctx, "c", []byte{3})
	if _, ok := m.Load(ctx, "a"); ok {
		t.Error("Load(a) should miss after eviction")
	}
}
