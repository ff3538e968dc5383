package notifications

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeRegistry_Register(t *testing.T) {
	t.Parallel()

	r := NewTypeRegistry()

	added, err := r.Register(testType)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = r.Register(testType)
	require.NoError(t, err, "same renderer is idempotent")
	assert.False(t, added)

	_, err = r.Register(NotificationType{Name: testType.Name, Renderer: "html"})
	assert.ErrorIs(t, err, ErrTypeConflict)

	_, err = r.Register(NotificationType{Name: "bad name", Renderer: "json"})
	assert.ErrorIs(t, err, ErrInvalidTypeName)

	_, err = r.Register(NotificationType{Name: "no.renderer"})
	assert.ErrorIs(t, err, ErrUnknownRenderer)
}

func TestTypeRegistry_Get(t *testing.T) {
	t.Parallel()

	r := NewTypeRegistry()
	_, err := r.Register(NotificationType{Name: "b", Renderer: "json", RendererContext: map[string]any{"k": 1}})
	require.NoError(t, err)
	_, err = r.Register(NotificationType{Name: "a", Renderer: "json"})
	require.NoError(t, err)

	got, err := r.Get("b")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": 1}, got.RendererContext)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownType)

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)
	assert.Equal(t, "b", all[1].Name)
}

func TestTypeRegistry_ConcurrentRegister(t *testing.T) {
	t.Parallel()

	r := NewTypeRegistry()
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		added int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := r.Register(testType)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				added++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, added)
	assert.Len(t, r.All(), 1)
}
