package usecase

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/totegamma/portfolio"
	"github.com/totegamma/portfolio/internal/domain"
	"github.com/totegamma/portfolio/internal/infra/database/models"
)

// MaxUploadSize bounds a single stored object.
const MaxUploadSize = 10 << 20

var allowedUploadTypes = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/svg+xml":   ".svg",
	"application/pdf": ".pdf",
}

type UploadUsecase struct {
	repo     UploadRepository
	storage  ObjectStorage
	notifier Notifier
}

func NewUploadUsecase(repo UploadRepository, storage ObjectStorage, notifier Notifier) *UploadUsecase {
	return &UploadUsecase{repo: repo, storage: storage, notifier: notifier}
}

// Upload stores body under a key derived from its content hash. The declared
// content type is only trusted when it agrees with the sniffed one.
func (uc *UploadUsecase) Upload(ctx context.Context, filename, contentType string, body io.Reader) (*models.Upload, error) {
	ctx, span := tracer.Start(ctx, "Usecase.Upload.Upload")
	defer span.End()

	data, err := io.ReadAll(io.LimitReader(body, MaxUploadSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, domain.ValidationError{Field: "file", Reason: "is empty"}
	}
	if len(data) > MaxUploadSize {
		return nil, domain.ValidationError{Field: "file", Reason: fmt.Sprintf("exceeds %d bytes", MaxUploadSize)}
	}

	ctype := resolveContentType(filename, contentType, data)
	ext, ok := allowedUploadTypes[ctype]
	if !ok {
		return nil, domain.ValidationError{Field: "file", Reason: "unsupported content type " + ctype}
	}

	sum := xxh3.Hash128(data).Bytes()
	key := hex.EncodeToString(sum[:]) + ext
	url, err := uc.storage.Put(ctx, key, ctype, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	upload := &models.Upload{
		Key:         key,
		ContentType: ctype,
		Size:        int64(len(data)),
		URL:         url,
	}
	if err := uc.repo.Save(ctx, upload); err != nil {
		return nil, err
	}

	uc.notify(ctx, portfolio.ActionCreate, key)
	return upload, nil
}

func (uc *UploadUsecase) List(ctx context.Context) ([]models.Upload, error) {
	return uc.repo.List(ctx)
}

func (uc *UploadUsecase) Delete(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "Usecase.Upload.Delete")
	defer span.End()

	if err := uc.repo.Delete(ctx, key); err != nil {
		return err
	}
	if err := uc.storage.Delete(ctx, key); err != nil {
		return err
	}

	uc.notify(ctx, portfolio.ActionDelete, key)
	return nil
}

func (uc *UploadUsecase) notify(ctx context.Context, action portfolio.Action, key string) {
	if uc.notifier == nil {
		return
	}
	uc.notifier.Notify(ctx, portfolio.Event{
		Resource: portfolio.ResourceUploads,
		Action:   action,
		IDs:      []string{key},
		At:       time.Now().UTC(),
	})
}

func resolveContentType(filename, declared string, data []byte) string {
	sniffed := http.DetectContentType(data)
	if mt, _, err := mime.ParseMediaType(sniffed); err == nil {
		sniffed = mt
	}

	// svg sniffs as text/xml or text/plain
	if strings.EqualFold(path.Ext(filename), ".svg") && strings.HasPrefix(sniffed, "text/") {
		return "image/svg+xml"
	}
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt == sniffed {
		return mt
	}
	return sniffed
}
