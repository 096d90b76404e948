package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	r.Register("user-1", "sess-1")

	id, ok := r.Lookup("user-1")
	assert.True(t, ok)
	assert.Equal(t, "sess-1", id)
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := NewRegistry()

	r.Register("user-1", "sess-1")
	r.Register("user-1", "sess-2")

	id, _ := r.Lookup("user-1")
	assert.Equal(t, "sess-2", id)
	assert.Equal(t, 1, r.Count())

	// The replaced session is no longer live
	assert.False(t, r.IsLive("sess-1"))
	assert.True(t, r.IsLive("sess-2"))
}

func TestRegistry_Release(t *testing.T) {
	r := NewRegistry()

	r.Register("user-1", "sess-1")
	r.Release("user-1")

	_, ok := r.Lookup("user-1")
	assert.False(t, ok)
	assert.False(t, r.IsLive("sess-1"))
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_ReleaseUnknownUser(t *testing.T) {
	r := NewRegistry()
	r.Release("nobody")
	assert.Equal(t, 0, r.Count())
}
