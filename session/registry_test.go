package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/qrstudio/payload"
	"github.com/openclaw/qrstudio/render"
)

func TestRegistry_Lifecycle(t *testing.T) {
	r := NewRegistry(render.NewRenderer(), DefaultDefaults(), time.Hour, testLogger())

	a := r.Create()
	b := r.Create()
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, r.Len())

	got, ok := r.Get(a.ID)
	require.True(t, ok)
	assert.Same(t, a, got)

	assert.True(t, r.Delete(a.ID))
	assert.False(t, r.Delete(a.ID))
	_, ok = r.Get(a.ID)
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Sweep(t *testing.T) {
	r := NewRegistry(render.NewRenderer(), DefaultDefaults(), time.Minute, testLogger())

	idle := r.Create()
	active := r.Create()
	require.NoError(t, active.SetKind(payload.KindURL))

	assert.Equal(t, 0, r.Sweep(time.Now()))

	// Both are idle an hour from now.
	assert.Equal(t, 2, r.Sweep(time.Now().Add(time.Hour)))
	_, ok := r.Get(idle.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_SweepDisabled(t *testing.T) {
	r := NewRegistry(render.NewRenderer(), DefaultDefaults(), 0, testLogger())
	r.Create()
	assert.Equal(t, 0, r.Sweep(time.Now().Add(24*time.Hour)))
	assert.Equal(t, 1, r.Len())
}

func TestStartJanitor_StopsWithContext(t *testing.T) {
	r := NewRegistry(render.NewRenderer(), DefaultDefaults(), time.Minute, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	StartJanitor(ctx, r, time.Second, testLogger())
	cancel()
	r.Create()
	assert.Equal(t, 1, r.Len())
}
