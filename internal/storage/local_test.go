package storage_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/straye-as/fms-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalStorage_PutOpenRemove(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewLocalStorage(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	key, size, err := store.Put(ctx, "/invoice/42/", "Invoice.XLSX", "application/vnd.ms-excel", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)
	assert.True(t, strings.HasPrefix(key, "invoice/42/"))
	assert.True(t, strings.HasSuffix(key, ".xlsx"))

	other, _, err := store.Put(ctx, "invoice/42", "Invoice.XLSX", "", strings.NewReader("again"))
	require.NoError(t, err)
	assert.NotEqual(t, key, other, "every upload gets its own key")

	body, err := store.Open(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, body.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Remove(ctx, key))
	require.NoError(t, store.Remove(ctx, key), "removing twice is fine")

	_, err = store.Open(ctx, key)
	assert.True(t, errors.Is(err, storage.ErrObjectNotFound))
}

func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewLocalStorage(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	for _, key := range []string{"", "/etc/passwd", "../outside.txt", "shipment//x.pdf", "a/../../b"} {
		_, err := store.Open(ctx, key)
		assert.Error(t, err, key)
		assert.False(t, errors.Is(err, storage.ErrObjectNotFound), key)
	}
}
