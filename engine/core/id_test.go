package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmachat/pharmachat/engine/core"
)

func TestID_IsZero(t *testing.T) {
	t.Run("Should return true for zero-value ID", func(t *testing.T) {
		var id core.ID
		assert.True(t, id.IsZero())
	})
	t.Run("Should return false for generated ID", func(t *testing.T) {
		assert.False(t, core.MustNewID().IsZero())
	})
}

func TestNewID(t *testing.T) {
	t.Run("Should generate unique, parseable IDs", func(t *testing.T) {
		id1, err := core.NewID()
		require.NoError(t, err)
		id2, err := core.NewID()
		require.NoError(t, err)
		assert.NotEqual(t, id1, id2)
		parsed, err := core.ParseID(id1.String())
		require.NoError(t, err)
		assert.Equal(t, id1, parsed)
	})
	t.Run("Should reject malformed IDs", func(t *testing.T) {
		_, err := core.ParseID("not-a-uuid")
		assert.Error(t, err)
	})
}

func TestCloneMap(t *testing.T) {
	t.Run("Should copy entries without aliasing", func(t *testing.T) {
		src := map[string]int{"a": 1}
		dst := core.CloneMap(src)
		dst["a"] = 2
		assert.Equal(t, 1, src["a"])
	})
	t.Run("Should preserve nil", func(t *testing.T) {
		assert.Nil(t, core.CloneMap[string, int](nil))
	})
}
