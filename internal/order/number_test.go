package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomNumberGenerator(t *testing.T) {
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	t.Run("default_prefix", func(t *testing.T) {
		n, err := RandomNumberGenerator{}.Next(now)
		require.NoError(t, err)
		assert.Regexp(t, `^SS25[0-9A-Z]{6}$`, n)
	})

	t.Run("custom_prefix", func(t *testing.T) {
		n, err := RandomNumberGenerator{Prefix: "QA"}.Next(time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Regexp(t, `^QA09[0-9A-Z]{6}$`, n)
	})

	t.Run("distinct", func(t *testing.T) {
		seen := make(map[string]struct{})
		for i := 0; i < 200; i++ {
			n, err := RandomNumberGenerator{}.Next(now)
			require.NoError(t, err)
			seen[n] = struct{}{}
		}
		assert.Greater(t, len(seen), 190)
	})
}
