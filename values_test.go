package sessionstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionValues_InsertionOrder(t *testing.T) {
	v := NewValues()
	v.Set("c", 1)
	v.Set("a", 2)
	v.Set("b", 3)

	assert.Equal(t, []string{"c", "a", "b"}, v.Keys())

	// Overwriting keeps the original position.
	v.Set("a", 99)
	assert.Equal(t, []string{"c", "a", "b"}, v.Keys())
	got, ok := v.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 99, got)
}

func TestSessionValues_Delete(t *testing.T) {
	v := NewValues()
	v.Set("a", 1)
	v.Set("b", 2)
	v.Set("c", 3)

	v.Delete("b")
	assert.Equal(t, []string{"a", "c"}, v.Keys())
	assert.Equal(t, 2, v.Len())

	_, ok := v.Get("b")
	assert.False(t, ok)

	// Deleting an absent key is harmless.
	v.Delete("missing")
	assert.Equal(t, 2, v.Len())
}
