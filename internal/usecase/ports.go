package usecase

import (
	"context"
	"io"

	"github.com/totegamma/portfolio"
	"github.com/totegamma/portfolio/internal/domain"
	"github.com/totegamma/portfolio/internal/infra/database/models"
	"github.com/totegamma/portfolio/internal/utils"
)

// OrderedRepository defines the ordered collection operations for one table.
type OrderedRepository[T any, PT any] interface {
	Collection() domain.Collection
	Append(ctx context.Context, row PT) error
	Swap(ctx context.Context, idA, idB string) (PT, PT, error)
	MoveToPosition(ctx context.Context, id string, target int, apply func(PT) error) (PT, error)
	Update(ctx context.Context, id string, apply func(PT) error, directOrder *int) (PT, error)
	DeleteAndCompact(ctx context.Context, id string) (PT, error)
	SetMembership(ctx context.Context, id string, in bool) (PT, error)
	List(ctx context.Context) ([]T, error)
	ListAll(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string, subsetOnly bool) (PT, error)
	Positions(ctx context.Context) (utils.OrderedKVMap[int], error)
	Normalize(ctx context.Context) (int, error)
}

// ContactRepository defines storage operations for contact form messages.
type ContactRepository interface {
	Create(ctx context.Context, msg *models.ContactMessage) error
	List(ctx context.Context, unreadOnly bool) ([]models.ContactMessage, error)
	MarkRead(ctx context.Context, id string, read bool) error
	Delete(ctx context.Context, id string) error
}

// UploadRepository keeps track of stored objects.
type UploadRepository interface {
	Save(ctx context.Context, upload *models.Upload) error
	List(ctx context.Context) ([]models.Upload, error)
	Delete(ctx context.Context, key string) error
}

// ObjectStorage stores file blobs and hands out public URLs.
type ObjectStorage interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// ListCache holds serialized public listings.
type ListCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Delete(key string)
}

// Notifier is told about every committed mutation.
type Notifier interface {
	Notify(ctx context.Context, event portfolio.Event)
}
