package service_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/service"
	"github.com/straye-as/fms-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachments_UploadDownloadDelete(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	shipment := testutil.CreateSeaShipment(t, env.Services)

	attachment, err := env.Services.Attachments.Upload(ctx, "Shipment", shipment.ID, "../../Packing List.PDF", "application/pdf",
		strings.NewReader("%PDF-1.7 packing list"))
	require.NoError(t, err)
	assert.Equal(t, "shipment", attachment.RefType)
	assert.Equal(t, "Packing List.PDF", attachment.FileName)
	assert.Equal(t, int64(21), attachment.SizeBytes)
	assert.True(t, strings.HasPrefix(attachment.StoragePath, "shipment/"+shipment.ID.String()+"/"))
	assert.True(t, strings.HasSuffix(attachment.StoragePath, ".pdf"))

	listed, err := env.Services.Attachments.List(ctx, "shipment", shipment.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	_, body, err := env.Services.Attachments.Download(ctx, attachment.ID)
	require.NoError(t, err)
	content, err := io.ReadAll(body)
	require.NoError(t, body.Close())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 packing list", string(content))

	require.NoError(t, env.Services.Attachments.Delete(ctx, attachment.ID))
	_, err = env.Services.Attachments.Get(ctx, attachment.ID)
	assert.True(t, errors.Is(err, service.ErrNotFound))
	_, err = env.Store.Open(ctx, attachment.StoragePath)
	assert.Error(t, err, "stored bytes are removed with the record")
}

func TestAttachments_Rejections(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	shipment := testutil.CreateSeaShipment(t, env.Services)

	tests := []struct {
		name     string
		refType  string
		refID    uuid.UUID
		filename string
		data     io.Reader
		target   error
	}{
		{"unknown ref type", "spaceship", shipment.ID, "a.txt", strings.NewReader("x"), domain.ErrValidation},
		{"missing owner", "invoice", uuid.New(), "a.txt", strings.NewReader("x"), domain.ErrReferentialIntegrity},
		{"empty filename", "shipment", shipment.ID, "  ", strings.NewReader("x"), domain.ErrValidation},
		{"over the size limit", "shipment", shipment.ID, "big.bin", bytes.NewReader(make([]byte, 1024*1024+1)), domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Services.Attachments.Upload(ctx, tt.refType, tt.refID, tt.filename, "", tt.data)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}

	listed, err := env.Services.Attachments.List(ctx, "shipment", shipment.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}
