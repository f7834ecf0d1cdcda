package wind

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLoader struct {
	mu    sync.Mutex
	calls map[int]int
	fail  map[int]bool
}

func (c *countingLoader) load(level int) (*Grid, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = map[int]int{}
	}
	c.calls[level]++
	if c.fail[level] {
		return nil, errors.New("boom")
	}
	return NewGrid([]float64{0, 1}, []float64{0, 1},
		[][]float64{{float64(level), 0}, {0, 0}},
		[][]float64{{0, 0}, {0, 0}}, Meta{})
}

func (c *countingLoader) count(level int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[level]
}

func TestStoreCachesAndEvicts(t *testing.T) {
	loader := &countingLoader{}
	s := NewStore([]int{0, 1, 2}, loader.load, 2, nil)
	ctx := context.Background()

	g, err := s.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, g.U[0][0])

	again, err := s.Load(ctx, 1)
	require.NoError(t, err)
	assert.Same(t, g, again)
	assert.Equal(t, 1, loader.count(1))

	_, _ = s.Load(ctx, 0)
	_, _ = s.Load(ctx, 1) // 1 becomes most recent
	_, _ = s.Load(ctx, 2) // evicts 0
	assert.True(t, s.Cached(1))
	assert.True(t, s.Cached(2))
	assert.False(t, s.Cached(0))

	_, _ = s.Load(ctx, 0)
	assert.Equal(t, 2, loader.count(0))
}

func TestStoreUnknownLevel(t *testing.T) {
	s := NewStore([]int{0, 5}, (&countingLoader{}).load, 4, nil)
	_, err := s.Load(context.Background(), 3)
	assert.ErrorIs(t, err, ErrUnknownLevel)
	assert.True(t, s.Has(5))
	assert.False(t, s.Has(3))
	assert.Equal(t, []int{0, 5}, s.Levels())
}

func TestStoreLoadFailureNotCached(t *testing.T) {
	loader := &countingLoader{fail: map[int]bool{1: true}}
	s := NewStore([]int{0, 1}, loader.load, 4, nil)

	_, err := s.Load(context.Background(), 1)
	assert.Error(t, err)
	assert.False(t, s.Cached(1))
	_, err = s.Load(context.Background(), 1)
	assert.Error(t, err)
	assert.Equal(t, 2, loader.count(1))
}

func TestStoreConcurrentLoadsShareOneRead(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	load := func(level int) (*Grid, error) {
		calls.Add(1)
		<-release
		return (&countingLoader{}).load(level)
	}
	s := NewStore([]int{7}, load, 1, nil)

	var wg sync.WaitGroup
	grids := make([]*Grid, 8)
	for k := range grids {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			grids[k], _ = s.Load(context.Background(), 7)
		}(k)
	}
	for calls.Load() == 0 {
		runtime.Gosched()
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, g := range grids {
		assert.Same(t, grids[0], g)
	}
}

func TestStoreLoadCancelledWaiterStillCaches(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	load := func(level int) (*Grid, error) {
		calls.Add(1)
		<-release
		return (&countingLoader{}).load(level)
	}
	s := NewStore([]int{2}, load, 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.Load(ctx, 2)
		done <- err
	}()
	for calls.Load() == 0 {
		runtime.Gosched()
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(release)
	g, err := s.Load(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2.0, g.U[0][0])
	assert.True(t, s.Cached(2))
	assert.Equal(t, int32(1), calls.Load())
}

func TestStorePrefetch(t *testing.T) {
	loader := &countingLoader{fail: map[int]bool{3: true}}
	s := NewStore([]int{0, 1, 2, 3, 4}, loader.load, 10, nil)

	s.Prefetch(context.Background(), 1, 3)
	assert.False(t, s.Cached(0))
	assert.False(t, s.Cached(1))
	assert.True(t, s.Cached(2))
	assert.False(t, s.Cached(3), "failed loads are skipped")
	assert.True(t, s.Cached(4))

	s.Prefetch(context.Background(), 42, 3) // unknown level is a no-op
	assert.Equal(t, 0, loader.count(0))
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	g := makeGrid(t, []float64{-10, 10}, []float64{0, 10, 20}, func(lat, lon float64) (float64, float64) {
		return lon, lat
	})
	require.NoError(t, WriteManifest(dir, Manifest{Levels: []int{0, 3}}))
	require.NoError(t, SaveGrid(filepath.Join(dir, LevelFile(0)), g))
	require.NoError(t, SaveGrid(filepath.Join(dir, LevelFile(3)), g.Scale(2)))
	assert.FileExists(t, filepath.Join(dir, "uv_level_003.json"))

	s, err := OpenStore(dir, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, s.Levels())

	three, err := s.Load(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 40.0, three.U[0][2])
	assert.Equal(t, -20.0, three.V[0][0])
}

func TestOpenStoreErrors(t *testing.T) {
	_, err := OpenStore(t.TempDir(), 2, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)

	dir := t.TempDir()
	require.NoError(t, WriteManifest(dir, Manifest{}))
	_, err = OpenStore(dir, 2, nil)
	assert.Error(t, err)
}
