package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// ActionTokens persists action tokens. The primary key is the opaque token
// string itself, so this repository talks to bun directly instead of going
// through the uuid-keyed generic repository.
type ActionTokens interface {
	Create(ctx context.Context, record *ActionToken) (*ActionToken, error)
	GetByID(ctx context.Context, id string) (*ActionToken, error)
	// Consume deletes the token and reports whether this caller won the
	// delete. Two racing redemptions may both read the token as present;
	// only one observes consumed=true.
	Consume(ctx context.Context, id string) (bool, error)
	// DeleteExpired reclaims every token past its expires_at and returns
	// how many rows were swept.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type actionTokens struct {
	db *bun.DB
}

var _ ActionTokens = (*actionTokens)(nil)

func NewActionTokensRepository(db *bun.DB) ActionTokens {
	return &actionTokens{db: db}
}

func (r *actionTokens) Create(ctx context.Context, record *ActionToken) (*ActionToken, error) {
	if record.CreatedAt == nil {
		now := time.Now()
		record.CreatedAt = &now
	}

	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to persist action token")
	}

	return record, nil
}

func (r *actionTokens) GetByID(ctx context.Context, id string) (*ActionToken, error) {
	record := &ActionToken{}
	err := r.db.NewSelect().Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"token_id": id})
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load action token")
	}

	return record, nil
}

func (r *actionTokens) Consume(ctx context.Context, id string) (bool, error) {
	res, err := r.db.NewDelete().Model((*ActionToken)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to consume action token")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to read consume result")
	}

	return rows == 1, nil
}

func (r *actionTokens) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.NewDelete().Model((*ActionToken)(nil)).
		Where("expires_at < ?", now).
		Exec(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to delete expired action tokens")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}

	return rows, nil
}
