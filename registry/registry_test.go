package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndGet(t *testing.T) {
	r := New[int]()

	isNew, err := r.Register("a", 1)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = r.Register("a", 2)
	require.NoError(t, err)
	assert.False(t, isNew)

	v, ok := r.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	_, err = r.Register("", 3)
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestGetOrCreateCallsCreatorOnce(t *testing.T) {
	r := New[string]()
	var calls int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := r.GetOrCreate("k", func() (string, error) {
				mu.Lock()
				calls++
				mu.Unlock()
				return "v", nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "v", v)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, calls)

	_, err := r.GetOrCreate("bad", func() (string, error) { return "", errors.New("boom") })
	assert.Error(t, err)
	_, ok := r.Get("bad")
	assert.False(t, ok)
}

func TestUpdate(t *testing.T) {
	r := New[int]()
	assert.ErrorIs(t, r.Update("missing", func(v int) (int, error) { return v, nil }), ErrNotFound)

	_, _ = r.Register("n", 1)
	require.NoError(t, r.Update("n", func(v int) (int, error) { return v + 1, nil }))
	v, _ := r.Get("n")
	assert.Equal(t, 2, v)
}

func TestDeleteIfMatchesIdentity(t *testing.T) {
	type conn struct{ id int }
	r := New[*conn]()
	first, second := &conn{1}, &conn{2}
	_, _ = r.Register("db", second)

	assert.False(t, r.DeleteIf("db", func(c *conn) bool { return c == first }))
	assert.Equal(t, 1, r.Len())
	assert.True(t, r.DeleteIf("db", func(c *conn) bool { return c == second }))
	assert.Equal(t, 0, r.Len())
}

func TestDrainAndNames(t *testing.T) {
	r := New[int]()
	_, _ = r.Register("b", 2)
	_, _ = r.Register("a", 1)
	assert.Equal(t, []string{"a", "b"}, r.Names())

	item, ok := r.Delete("b")
	assert.True(t, ok)
	assert.Equal(t, 2, item)

	all := r.Drain()
	assert.Equal(t, map[string]int{"a": 1}, all)
	assert.Equal(t, 0, r.Len())
}
