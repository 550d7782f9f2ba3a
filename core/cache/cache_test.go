package cache

import (
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestResolveComputesOnce(t *testing.T) {
	c := New[string, string, int]()

	var calls atomic.Int32
	compute := func() int {
		calls.Add(1)
		return 42
	}

	require.Equal(t, 42, c.Resolve("owner", "k", compute))
	require.Equal(t, 42, c.Resolve("owner", "k", compute))
	require.EqualValues(t, 1, calls.Load())

	require.Equal(t, 42, c.Resolve("other", "k", compute))
	require.EqualValues(t, 2, calls.Load())
}

func TestResolveConcurrent(t *testing.T) {
	c := New[string, int, int]()

	const (
		workers = 32
		keys    = 4
	)

	var (
		calls   atomic.Int32
		release = make(chan struct{})
	)

	var g errgroup.Group
	results := make([]int, workers)
	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			results[i] = c.Resolve("owner", i%keys, func() int {
				calls.Add(1)
				<-release
				return i % keys
			})
			return nil
		})
	}
	close(release)
	require.NoError(t, g.Wait())

	require.EqualValues(t, keys, calls.Load())
	for i, r := range results {
		require.Equal(t, i%keys, r)
	}
	require.Equal(t, keys, c.Len("owner"))
}

func TestNegativeResultsAreStored(t *testing.T) {
	c := New[string, string, *int]()

	calls := 0
	compute := func() *int {
		calls++
		return nil
	}

	require.Nil(t, c.Resolve("owner", "missing", compute))
	require.Nil(t, c.Resolve("owner", "missing", compute))
	require.Equal(t, 1, calls)

	v, ok := c.Get("owner", "missing")
	require.True(t, ok)
	require.Nil(t, v)
}

func TestResolveOrSkip(t *testing.T) {
	c := New[string, string, string]()

	calls := 0
	compute := func() (string, bool) {
		calls++
		return "denied", false
	}

	require.Equal(t, "denied", c.ResolveOrSkip("owner", "k", compute))
	require.Equal(t, "denied", c.ResolveOrSkip("owner", "k", compute))
	require.Equal(t, 2, calls)
	require.Zero(t, c.Len("owner"))

	_, ok := c.Get("owner", "k")
	require.False(t, ok)

	require.Equal(t, "granted", c.ResolveOrSkip("owner", "k", func() (string, bool) {
		return "granted", true
	}))
	require.Equal(t, "granted", c.ResolveOrSkip("owner", "k", compute))
	require.Equal(t, 2, calls)
}

func TestSkipWithWaiters(t *testing.T) {
	c := New[string, string, int]()

	var (
		calls   atomic.Int32
		started = make(chan struct{})
		release = make(chan struct{})
		wg      sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.ResolveOrSkip("owner", "k", func() (int, bool) {
			calls.Add(1)
			close(started)
			<-release
			return 0, false
		})
	}()
	<-started

	var got int
	wg.Add(1)
	go func() {
		defer wg.Done()
		got = c.ResolveOrSkip("owner", "k", func() (int, bool) {
			calls.Add(1)
			return 7, true
		})
	}()
	close(release)
	wg.Wait()

	require.Equal(t, 7, got)
	require.EqualValues(t, 2, calls.Load())
}

func TestPanicLeavesEntryEmpty(t *testing.T) {
	c := New[string, string, int]()

	require.Panics(t, func() {
		c.Resolve("owner", "k", func() int { panic("boom") })
	})

	_, ok := c.Get("owner", "k")
	require.False(t, ok)

	require.Equal(t, 1, c.Resolve("owner", "k", func() int { return 1 }))
	v, ok := c.Get("owner", "k")
	require.True(t, ok)
	require.Equal(t, 1, v)
}

func TestOwners(t *testing.T) {
	var c Cache[string, int, int]
	require.Empty(t, c.Owners())
	require.Zero(t, c.Len("a"))

	c.Resolve("a", 1, func() int { return 1 })
	c.Resolve("b", 1, func() int { return 1 })
	c.Resolve("b", 2, func() int { return 2 })

	owners := c.Owners()
	sort.Strings(owners)
	require.Equal(t, []string{"a", "b"}, owners)
	require.Equal(t, 1, c.Len("a"))
	require.Equal(t, 2, c.Len("b"))
}
