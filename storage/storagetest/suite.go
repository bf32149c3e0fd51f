// Package storagetest runs the same behaviour checks against every KV driver.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billbatista/acasinha-diary/storage"
)

// Run expects makeKV to return an empty, isolated store.
func Run(t *testing.T, makeKV func(t *testing.T) storage.KV) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		kv := makeKV(t)
		_, err := kv.Get(ctx, "dayLogs")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("set overwrites", func(t *testing.T) {
		kv := makeKV(t)
		require.NoError(t, kv.Set(ctx, "dayLogs", []byte(`{"a":1}`)))
		require.NoError(t, kv.Set(ctx, "dayLogs", []byte(`{}`)))

		got, err := kv.Get(ctx, "dayLogs")
		require.NoError(t, err)
		assert.Equal(t, `{}`, string(got))
	})

	t.Run("keys are independent", func(t *testing.T) {
		kv := makeKV(t)
		require.NoError(t, kv.Set(ctx, "app:version", []byte(`3`)))
		require.NoError(t, kv.Set(ctx, "settings", []byte(`{"units":"metric"}`)))

		v, err := kv.Get(ctx, "app:version")
		require.NoError(t, err)
		assert.Equal(t, `3`, string(v))
	})

	t.Run("delete", func(t *testing.T) {
		kv := makeKV(t)
		require.NoError(t, kv.Set(ctx, "favorites", []byte(`[]`)))
		require.NoError(t, kv.Delete(ctx, "favorites"))
		require.NoError(t, kv.Delete(ctx, "favorites"))

		_, err := kv.Get(ctx, "favorites")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("health", func(t *testing.T) {
		kv := makeKV(t)
		assert.NoError(t, kv.HealthCheck(ctx))
	})
}
