package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeWindow(t *testing.T) {
	t.Run("missing hash", func(t *testing.T) {
		w, err := decodeWindow("k", map[string]string{})
		require.NoError(t, err)
		assert.Nil(t, w)
	})

	t.Run("stored window", func(t *testing.T) {
		start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
		w, err := decodeWindow("searchKeyword:u1", map[string]string{
			"start": "1777636800000",
			"count": "4",
		})
		require.NoError(t, err)
		assert.Equal(t, "searchKeyword:u1", w.Key)
		assert.True(t, start.Equal(w.WindowStart))
		assert.Equal(t, 4, w.Count)
	})

	t.Run("corrupt values", func(t *testing.T) {
		_, err := decodeWindow("k", map[string]string{"start": "soon", "count": "1"})
		assert.Error(t, err)
		_, err = decodeWindow("k", map[string]string{"start": "1", "count": "many"})
		assert.Error(t, err)
	})
}
