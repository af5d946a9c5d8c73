package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/portfolio/internal/domain"
	"github.com/totegamma/portfolio/internal/infra/database/models"
)

func TestContactRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewContactRepository(newTestDB(t))

	msg := &models.ContactMessage{Name: "alice", Email: "alice@example.com", Message: "hi"}
	require.NoError(t, repo.Create(ctx, msg))
	require.NotEmpty(t, msg.ID)

	unread, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	require.NoError(t, repo.MarkRead(ctx, msg.ID, true))
	unread, err = repo.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, unread)

	assert.ErrorIs(t, repo.MarkRead(ctx, "missing", true), domain.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, msg.ID))
	assert.ErrorIs(t, repo.Delete(ctx, msg.ID), domain.ErrNotFound)
}

func TestAdminRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAdminRepository(newTestDB(t))

	admin := &models.Admin{Email: "me@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, admin))

	got, err := repo.GetByEmail(ctx, "me@example.com")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUploadRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUploadRepository(newTestDB(t))

	require.NoError(t, repo.Save(ctx, &models.Upload{Key: "k.png", ContentType: "image/png", Size: 3, URL: "/files/k.png"}))
	require.NoError(t, repo.Save(ctx, &models.Upload{Key: "k.png", ContentType: "image/png", Size: 4, URL: "/files/k.png"}))

	uploads, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.EqualValues(t, 4, uploads[0].Size)

	require.NoError(t, repo.Delete(ctx, "k.png"))
	assert.ErrorIs(t, repo.Delete(ctx, "k.png"), domain.ErrNotFound)
}
