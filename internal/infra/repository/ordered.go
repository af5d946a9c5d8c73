package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/portfolio"
	"github.com/totegamma/portfolio/internal/domain"
	"github.com/totegamma/portfolio/internal/infra/database"
	"github.com/totegamma/portfolio/internal/infra/database/models"
	"github.com/totegamma/portfolio/internal/utils"
)

var tracer = otel.Tracer("repository")

// Row is the constraint satisfied by pointers to ordered models.
type Row[T any] interface {
	*T
	Row() *models.Ordered
	Validate() error
}

// gated rows expose the in-memory side of a domain.Membership column.
type gated interface {
	InSubset() bool
	SetInSubset(bool)
}

// OrderedRepository maintains a dense 1..N display order over the ordered
// subset of one table. Every mutation runs in a single transaction.
type OrderedRepository[T any, PT Row[T]] struct {
	db         *gorm.DB
	collection domain.Collection
	singular   string
	txOptions  *sql.TxOptions
}

func NewOrderedRepository[T any, PT Row[T]](db *gorm.DB, collection domain.Collection) *OrderedRepository[T, PT] {
	return &OrderedRepository[T, PT]{
		db:         db,
		collection: collection,
		singular:   portfolio.Singular(collection.Resource),
	}
}

// WithIsolation sets the isolation level every transaction is opened with.
func (r *OrderedRepository[T, PT]) WithIsolation(level sql.IsolationLevel) *OrderedRepository[T, PT] {
	r.txOptions = &sql.TxOptions{Isolation: level}
	return r
}

func (r *OrderedRepository[T, PT]) Collection() domain.Collection {
	return r.collection
}

// Append inserts row at the end of the ordered subset. The id and creation
// time are always assigned here; any carried by row are ignored, as is its order.
func (r *OrderedRepository[T, PT]) Append(ctx context.Context, row PT) error {
	ctx, span := tracer.Start(ctx, "Repository.Ordered.Append")
	defer span.End()
	span.SetAttributes(attribute.String("resource", r.collection.Resource))

	if err := row.Validate(); err != nil {
		return err
	}

	base := row.Row()
	base.ID = uuid.NewString()
	base.CreatedAt = time.Time{}
	base.UpdatedAt = time.Time{}

	return r.transaction(ctx, "append", func(tx *gorm.DB) error {
		base.SortOrder = domain.SentinelOrder
		if r.inSubset(row) {
			last, err := r.maxOrder(tx)
			if err != nil {
				return err
			}
			base.SortOrder = last + 1
		}
		return tx.Create(row).Error
	})
}

// Swap exchanges the orders of two rows of the ordered subset.
func (r *OrderedRepository[T, PT]) Swap(ctx context.Context, idA, idB string) (PT, PT, error) {
	ctx, span := tracer.Start(ctx, "Repository.Ordered.Swap")
	defer span.End()
	span.SetAttributes(
		attribute.String("resource", r.collection.Resource),
		attribute.String("first", idA),
		attribute.String("second", idB),
	)

	if idA == idB {
		return nil, nil, domain.SelfSwapError{ID: idA}
	}

	var a, b PT
	err := r.transaction(ctx, "swap", func(tx *gorm.DB) error {
		var err error
		a, err = r.find(tx, idA, "first", true)
		if err != nil {
			return err
		}
		b, err = r.find(tx, idB, "second", true)
		if err != nil {
			return err
		}

		orderA, orderB := a.Row().SortOrder, b.Row().SortOrder
		now := time.Now()
		if err := r.setOrder(tx, a, orderB, now); err != nil {
			return err
		}
		return r.setOrder(tx, b, orderA, now)
	})
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// MoveToPosition applies apply to the row and then swaps it with whichever
// row currently holds target. When the row already holds target only the
// content update happens.
func (r *OrderedRepository[T, PT]) MoveToPosition(ctx context.Context, id string, target int, apply func(PT) error) (PT, error) {
	ctx, span := tracer.Start(ctx, "Repository.Ordered.MoveToPosition")
	defer span.End()
	span.SetAttributes(
		attribute.String("resource", r.collection.Resource),
		attribute.String("id", id),
		attribute.Int("target", target),
	)

	var row PT
	err := r.transaction(ctx, "move", func(tx *gorm.DB) error {
		var err error
		row, err = r.find(tx, id, "", true)
		if err != nil {
			return err
		}

		holder := PT(new(T))
		err = r.scope(tx, true, true).
			Where("sort_order = ?", target).
			Order("created_at ASC").
			Take(holder).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.TargetNotFoundError{Resource: r.singular, Order: target}
		}
		if err != nil {
			return err
		}

		current := row.Row().SortOrder
		if err := r.applyContent(row, apply); err != nil {
			return err
		}

		if holder.Row().ID == row.Row().ID {
			return tx.Omit(r.protectedColumns()...).Save(row).Error
		}

		row.Row().SortOrder = target
		if err := tx.Omit(r.protectedColumns()...).Save(row).Error; err != nil {
			return err
		}
		return r.setOrder(tx, holder, current, row.Row().UpdatedAt)
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Update applies a content change. A non-nil directOrder is written as is,
// without any contiguity check.
func (r *OrderedRepository[T, PT]) Update(ctx context.Context, id string, apply func(PT) error, directOrder *int) (PT, error) {
	ctx, span := tracer.Start(ctx, "Repository.Ordered.Update")
	defer span.End()
	span.SetAttributes(attribute.String("resource", r.collection.Resource), attribute.String("id", id))

	if directOrder != nil && *directOrder < 0 {
		return nil, domain.ValidationError{Field: "order", Reason: "must not be negative"}
	}

	var row PT
	err := r.transaction(ctx, "update", func(tx *gorm.DB) error {
		var err error
		row, err = r.find(tx, id, "", false)
		if err != nil {
			return err
		}
		if err := r.applyContent(row, apply); err != nil {
			return err
		}
		if directOrder != nil {
			row.Row().SortOrder = *directOrder
		}
		return tx.Omit(r.protectedColumns()...).Save(row).Error
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// DeleteAndCompact removes the row and shifts every subset row above it down
// by one. Rows outside the subset are removed without compaction.
func (r *OrderedRepository[T, PT]) DeleteAndCompact(ctx context.Context, id string) (PT, error) {
	ctx, span := tracer.Start(ctx, "Repository.Ordered.DeleteAndCompact")
	defer span.End()
	span.SetAttributes(attribute.String("resource", r.collection.Resource), attribute.String("id", id))

	var row PT
	err := r.transaction(ctx, "delete", func(tx *gorm.DB) error {
		var err error
		row, err = r.find(tx, id, "", false)
		if err != nil {
			return err
		}

		if err := tx.Delete(row).Error; err != nil {
			return err
		}

		if !r.inSubset(row) {
			return nil
		}
		return r.compact(tx, row.Row().SortOrder)
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// SetMembership moves a row into or out of the ordered subset. Entering
// appends the row; leaving resets its order to the sentinel and closes the
// gap it leaves behind.
func (r *OrderedRepository[T, PT]) SetMembership(ctx context.Context, id string, in bool) (PT, error) {
	ctx, span := tracer.Start(ctx, "Repository.Ordered.SetMembership")
	defer span.End()
	span.SetAttributes(
		attribute.String("resource", r.collection.Resource),
		attribute.String("id", id),
		attribute.Bool("in", in),
	)

	membership := r.collection.Membership
	if membership == nil {
		return nil, domain.ValidationError{Reason: r.collection.Resource + " are not approval gated"}
	}

	var row PT
	err := r.transaction(ctx, "membership", func(tx *gorm.DB) error {
		var err error
		row, err = r.find(tx, id, "", false)
		if err != nil {
			return err
		}
		g, ok := any(row).(gated)
		if !ok {
			return errors.Errorf("%T does not expose its membership", row)
		}
		base := row.Row()
		now := time.Now()

		if in {
			if g.InSubset() && base.SortOrder != domain.SentinelOrder {
				return nil
			}
			last, err := r.maxOrder(tx)
			if err != nil {
				return err
			}
			g.SetInSubset(true)
			base.SortOrder = last + 1
			base.UpdatedAt = now
			return tx.Model(row).Updates(map[string]any{
				membership.Column: membership.In,
				"sort_order":      base.SortOrder,
				"updated_at":      now,
			}).Error
		}

		wasIn := g.InSubset()
		if !wasIn && base.SortOrder == domain.SentinelOrder {
			return nil
		}
		// an unapproved row may carry a directly written order; it holds no
		// slot in the subset, so there is no gap to close
		vacated := base.SortOrder
		g.SetInSubset(false)
		base.SortOrder = domain.SentinelOrder
		base.UpdatedAt = now
		err = tx.Model(row).Updates(map[string]any{
			membership.Column: membership.Out,
			"sort_order":      domain.SentinelOrder,
			"updated_at":      now,
		}).Error
		if err != nil {
			return err
		}
		if !wasIn {
			return nil
		}
		return r.compact(tx, vacated)
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// List returns the ordered subset sorted by order.
func (r *OrderedRepository[T, PT]) List(ctx context.Context) ([]T, error) {
	ctx, span := tracer.Start(ctx, "Repository.Ordered.List")
	defer span.End()

	var rows []T
	err := r.scope(r.db.WithContext(ctx), true, false).
		Order("sort_order ASC, created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "list "+r.collection.Resource)
	}
	return rows, nil
}

// ListAll returns every row: the ordered subset first, then the rest by age.
func (r *OrderedRepository[T, PT]) ListAll(ctx context.Context) ([]T, error) {
	ctx, span := tracer.Start(ctx, "Repository.Ordered.ListAll")
	defer span.End()

	var rows []T
	err := r.scope(r.db.WithContext(ctx), false, false).
		Order("sort_order = 0 ASC, sort_order ASC, created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "list all "+r.collection.Resource)
	}
	return rows, nil
}

func (r *OrderedRepository[T, PT]) Get(ctx context.Context, id string, subsetOnly bool) (PT, error) {
	ctx, span := tracer.Start(ctx, "Repository.Ordered.Get")
	defer span.End()

	row := PT(new(T))
	err := r.scope(r.db.WithContext(ctx), subsetOnly, false).
		Where("id = ?", id).
		Take(row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError{Resource: r.singular}
	}
	if err != nil {
		return nil, errors.Wrap(err, "get "+r.singular)
	}
	return row, nil
}

// Positions maps every subset row id to its order, serialized in order.
func (r *OrderedRepository[T, PT]) Positions(ctx context.Context) (utils.OrderedKVMap[int], error) {
	ctx, span := tracer.Start(ctx, "Repository.Ordered.Positions")
	defer span.End()

	type position struct {
		ID        string
		SortOrder int
	}
	var rows []position
	err := r.scope(r.db.WithContext(ctx), true, false).
		Select("id, sort_order").
		Order("sort_order ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "positions "+r.collection.Resource)
	}

	result := make(utils.OrderedKVMap[int], len(rows))
	for _, p := range rows {
		result[p.ID] = utils.OrderedKV[int]{Value: p.SortOrder, Order: int64(p.SortOrder)}
	}
	return result, nil
}

// Normalize rewrites the subset orders to 1..N, keeping the current relative
// order (ties broken by creation time). It returns the number of rows moved.
func (r *OrderedRepository[T, PT]) Normalize(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "Repository.Ordered.Normalize")
	defer span.End()

	moved := 0
	err := r.transaction(ctx, "normalize", func(tx *gorm.DB) error {
		var rows []T
		err := r.scope(tx, true, true).
			Order("sort_order = 0 ASC, sort_order ASC, created_at ASC").
			Find(&rows).Error
		if err != nil {
			return err
		}
		now := time.Now()
		for i := range rows {
			row := PT(&rows[i])
			if row.Row().SortOrder == i+1 {
				continue
			}
			if err := r.setOrder(tx, row, i+1, now); err != nil {
				return err
			}
			moved++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

func (r *OrderedRepository[T, PT]) transaction(ctx context.Context, name string, fn func(tx *gorm.DB) error) error {
	var opts []*sql.TxOptions
	if r.txOptions != nil {
		opts = append(opts, r.txOptions)
	}

	err := r.db.WithContext(ctx).Transaction(fn, opts...)
	if err == nil || isPrecondition(err) {
		return err
	}
	return domain.TransactionFailure{Err: errors.Wrapf(err, "%s %s", name, r.singular)}
}

func isPrecondition(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrSelfSwap) ||
		errors.Is(err, domain.ErrTargetNotFound) ||
		errors.Is(err, domain.ErrValidation)
}

// scope starts a query on the table, optionally restricted to the ordered
// subset and locked for update. Row locks are only taken on postgres.
func (r *OrderedRepository[T, PT]) scope(tx *gorm.DB, subsetOnly, lock bool) *gorm.DB {
	q := tx.Model(PT(new(T)))
	if lock && tx.Dialector.Name() == database.DriverPostgres {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if subsetOnly {
		if filter := r.collection.SubsetFilter(); filter != nil {
			q = q.Where(filter)
		}
	}
	return q
}

// find loads a row for mutation. Swap partners must belong to the subset;
// other mutations may target any row.
func (r *OrderedRepository[T, PT]) find(tx *gorm.DB, id, side string, subsetOnly bool) (PT, error) {
	row := PT(new(T))
	err := r.scope(tx, subsetOnly, true).Where("id = ?", id).Take(row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError{Resource: r.singular, Side: side}
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *OrderedRepository[T, PT]) maxOrder(tx *gorm.DB) (int, error) {
	var last int
	err := r.scope(tx, true, false).
		Select("COALESCE(MAX(sort_order), 0)").
		Scan(&last).Error
	return last, err
}

func (r *OrderedRepository[T, PT]) setOrder(tx *gorm.DB, row PT, order int, now time.Time) error {
	base := row.Row()
	base.SortOrder = order
	base.UpdatedAt = now
	return tx.Model(row).Updates(map[string]any{
		"sort_order": order,
		"updated_at": now,
	}).Error
}

// compact closes the gap left at vacated.
func (r *OrderedRepository[T, PT]) compact(tx *gorm.DB, vacated int) error {
	if vacated <= domain.SentinelOrder {
		return nil
	}
	return r.scope(tx, true, false).
		Where("sort_order > ?", vacated).
		Updates(map[string]any{
			"sort_order": gorm.Expr("sort_order - 1"),
			"updated_at": time.Now(),
		}).Error
}

func (r *OrderedRepository[T, PT]) inSubset(row PT) bool {
	if !r.collection.Gated() {
		return true
	}
	g, ok := any(row).(gated)
	return ok && g.InSubset()
}

// applyContent runs apply and restores every field the ordering protocol owns.
func (r *OrderedRepository[T, PT]) applyContent(row PT, apply func(PT) error) error {
	if apply == nil {
		return row.Validate()
	}

	saved := *row.Row()
	var member bool
	g, isGated := any(row).(gated)
	if isGated {
		member = g.InSubset()
	}

	if err := apply(row); err != nil {
		return err
	}

	base := row.Row()
	base.ID = saved.ID
	base.SortOrder = saved.SortOrder
	base.CreatedAt = saved.CreatedAt
	if isGated {
		g.SetInSubset(member)
	}
	return row.Validate()
}

func (r *OrderedRepository[T, PT]) protectedColumns() []string {
	cols := []string{"id", "created_at"}
	if r.collection.Membership != nil {
		cols = append(cols, r.collection.Membership.Column)
	}
	return cols
}
