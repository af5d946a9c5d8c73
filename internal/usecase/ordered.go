package usecase

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/totegamma/portfolio"
	"github.com/totegamma/portfolio/internal/domain"
	"github.com/totegamma/portfolio/internal/infra/database/models"
	"github.com/totegamma/portfolio/internal/utils"
)

var tracer = otel.Tracer("usecase")

// Model is satisfied by pointers to ordered models.
type Model[T any] interface {
	*T
	Row() *models.Ordered
}

type gated interface {
	InSubset() bool
	SetInSubset(bool)
}

type storageKeyed interface {
	StorageKeys() []string
}

// updateEnvelope holds the ordering fields of an update body. Everything
// else in the body is content.
type updateEnvelope struct {
	Order      *int  `json:"order"`
	ShouldSwap bool  `json:"shouldSwap"`
	Approved   *bool `json:"approved"`
}

func ListCacheKey(resource string) string {
	return "portfolio:list:" + resource
}

type OrderedUsecase[T any, PT Model[T]] struct {
	repo     OrderedRepository[T, PT]
	cache    ListCache
	notifier Notifier
	storage  ObjectStorage
	resource string
}

func NewOrderedUsecase[T any, PT Model[T]](
	repo OrderedRepository[T, PT],
	cache ListCache,
	notifier Notifier,
	storage ObjectStorage,
) *OrderedUsecase[T, PT] {
	return &OrderedUsecase[T, PT]{
		repo:     repo,
		cache:    cache,
		notifier: notifier,
		storage:  storage,
		resource: repo.Collection().Resource,
	}
}

func (uc *OrderedUsecase[T, PT]) Resource() string {
	return uc.resource
}

func (uc *OrderedUsecase[T, PT]) Gated() bool {
	return uc.repo.Collection().Gated()
}

// PublicList returns the JSON encoded ordered subset, served from cache when possible.
func (uc *OrderedUsecase[T, PT]) PublicList(ctx context.Context) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Usecase.Ordered.PublicList")
	defer span.End()
	span.SetAttributes(attribute.String("resource", uc.resource))

	key := ListCacheKey(uc.resource)
	if uc.cache != nil {
		if cached, ok := uc.cache.Get(key); ok {
			span.SetAttributes(attribute.Bool("cached", true))
			return cached, nil
		}
	}

	rows, err := uc.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []T{}
	}

	body, err := json.Marshal(rows)
	if err != nil {
		return nil, err
	}
	if uc.cache != nil {
		uc.cache.Set(key, body)
	}
	return body, nil
}

func (uc *OrderedUsecase[T, PT]) ListAll(ctx context.Context) ([]T, error) {
	return uc.repo.ListAll(ctx)
}

// Get returns a row. Non-admin callers only see rows of the ordered subset.
func (uc *OrderedUsecase[T, PT]) Get(ctx context.Context, id string, admin bool) (PT, error) {
	return uc.repo.Get(ctx, id, !admin)
}

func (uc *OrderedUsecase[T, PT]) Positions(ctx context.Context) (utils.OrderedKVMap[int], error) {
	return uc.repo.Positions(ctx)
}

// Create decodes body into a new row and appends it.
func (uc *OrderedUsecase[T, PT]) Create(ctx context.Context, body []byte) (PT, error) {
	ctx, span := tracer.Start(ctx, "Usecase.Ordered.Create")
	defer span.End()

	row := PT(new(T))
	if err := decode(body, row); err != nil {
		return nil, err
	}
	row.Row().ID = ""
	row.Row().CreatedAt = time.Time{}
	if err := uc.repo.Append(ctx, row); err != nil {
		return nil, err
	}

	uc.changed(ctx, portfolio.ActionCreate, row.Row().ID)
	return row, nil
}

// Submit appends a row on behalf of an anonymous visitor. Gated rows always
// start outside the ordered subset.
func (uc *OrderedUsecase[T, PT]) Submit(ctx context.Context, body []byte) (PT, error) {
	ctx, span := tracer.Start(ctx, "Usecase.Ordered.Submit")
	defer span.End()

	row := PT(new(T))
	g, ok := any(row).(gated)
	if !ok || !uc.Gated() {
		return nil, domain.ValidationError{Reason: uc.resource + " do not accept submissions"}
	}
	if err := decode(body, row); err != nil {
		return nil, err
	}
	g.SetInSubset(false)
	row.Row().ID = ""
	row.Row().CreatedAt = time.Time{}

	if err := uc.repo.Append(ctx, row); err != nil {
		return nil, err
	}

	uc.changed(ctx, portfolio.ActionCreate, row.Row().ID)
	return row, nil
}

// Update merges body into the stored row. {"order": n, "shouldSwap": true}
// moves the row to position n by swapping with its current holder; an order
// without shouldSwap is written directly. On gated resources "approved"
// moves the row into or out of the ordered subset afterwards.
func (uc *OrderedUsecase[T, PT]) Update(ctx context.Context, id string, body []byte) (PT, error) {
	ctx, span := tracer.Start(ctx, "Usecase.Ordered.Update")
	defer span.End()
	span.SetAttributes(attribute.String("resource", uc.resource), attribute.String("id", id))

	var env updateEnvelope
	if err := decode(body, &env); err != nil {
		return nil, err
	}

	var previousKeys []string
	apply := func(row PT) error {
		previousKeys = storageKeys(row)
		return decode(body, row)
	}

	var (
		row    PT
		err    error
		action = portfolio.ActionUpdate
	)
	if env.ShouldSwap {
		if env.Order == nil {
			return nil, domain.ValidationError{Field: "order", Reason: "is required when shouldSwap is set"}
		}
		row, err = uc.repo.MoveToPosition(ctx, id, *env.Order, apply)
		action = portfolio.ActionReorder
	} else {
		row, err = uc.repo.Update(ctx, id, apply, env.Order)
	}
	if err != nil {
		return nil, err
	}

	uc.removeObjects(ctx, previousKeys, storageKeys(row))

	if env.Approved != nil && uc.Gated() {
		if g, ok := any(row).(gated); ok && g.InSubset() != *env.Approved {
			row, err = uc.repo.SetMembership(ctx, id, *env.Approved)
			if err != nil {
				return nil, err
			}
			action = approvalAction(*env.Approved)
		}
	}

	uc.changed(ctx, action, id)
	return row, nil
}

func (uc *OrderedUsecase[T, PT]) Swap(ctx context.Context, idA, idB string) (PT, PT, error) {
	ctx, span := tracer.Start(ctx, "Usecase.Ordered.Swap")
	defer span.End()

	a, b, err := uc.repo.Swap(ctx, idA, idB)
	if err != nil {
		return nil, nil, err
	}

	uc.changed(ctx, portfolio.ActionReorder, idA, idB)
	return a, b, nil
}

// Delete removes the row, compacts the ordering and drops the objects it referenced.
func (uc *OrderedUsecase[T, PT]) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Usecase.Ordered.Delete")
	defer span.End()

	row, err := uc.repo.DeleteAndCompact(ctx, id)
	if err != nil {
		return err
	}

	uc.removeObjects(ctx, storageKeys(row), nil)
	uc.changed(ctx, portfolio.ActionDelete, id)
	return nil
}

func (uc *OrderedUsecase[T, PT]) SetApproval(ctx context.Context, id string, approved bool) (PT, error) {
	ctx, span := tracer.Start(ctx, "Usecase.Ordered.SetApproval")
	defer span.End()

	row, err := uc.repo.SetMembership(ctx, id, approved)
	if err != nil {
		return nil, err
	}

	uc.changed(ctx, approvalAction(approved), id)
	return row, nil
}

func (uc *OrderedUsecase[T, PT]) Normalize(ctx context.Context) (int, error) {
	moved, err := uc.repo.Normalize(ctx)
	if err != nil {
		return 0, err
	}
	if moved > 0 {
		uc.changed(ctx, portfolio.ActionReorder)
	}
	return moved, nil
}

func (uc *OrderedUsecase[T, PT]) changed(ctx context.Context, action portfolio.Action, ids ...string) {
	if uc.cache != nil {
		uc.cache.Delete(ListCacheKey(uc.resource))
	}
	if uc.notifier != nil {
		uc.notifier.Notify(ctx, portfolio.Event{
			Resource: uc.resource,
			Action:   action,
			IDs:      ids,
			At:       time.Now().UTC(),
		})
	}
}

// removeObjects deletes every key in before that is no longer in after.
func (uc *OrderedUsecase[T, PT]) removeObjects(ctx context.Context, before, after []string) {
	if uc.storage == nil {
		return
	}
	for _, key := range before {
		if slices.Contains(after, key) {
			continue
		}
		if err := uc.storage.Delete(ctx, key); err != nil {
			zap.L().Warn("failed to delete stored object",
				zap.String("resource", uc.resource),
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
}

func storageKeys(row any) []string {
	if k, ok := row.(storageKeyed); ok {
		return k.StorageKeys()
	}
	return nil
}

func approvalAction(approved bool) portfolio.Action {
	if approved {
		return portfolio.ActionApprove
	}
	return portfolio.ActionUnapprove
}

func decode(body []byte, v any) error {
	if len(body) == 0 {
		return domain.ValidationError{Reason: "request body is empty"}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return domain.ValidationError{Reason: "invalid JSON: " + err.Error()}
	}
	return nil
}
