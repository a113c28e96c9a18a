package wallet

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines wallet link data access. wallet_links is append-only:
// rows are inserted, never updated or deleted.
type Repository interface {
	AppendEvent(ctx context.Context, event *Event) error
	LatestEvent(ctx context.Context, userID uuid.UUID) (*Event, error)
	History(ctx context.Context, userID uuid.UUID) ([]*Event, error)
	ActiveOwner(ctx context.Context, address string) (uuid.UUID, bool, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates wallet repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) AppendEvent(ctx context.Context, event *Event) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallet_links (id, user_id, address, event, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, event.ID, event.UserID, event.Address, string(event.Event), event.CreatedAt)
	return err
}

func (r *repository) LatestEvent(ctx context.Context, userID uuid.UUID) (*Event, error) {
	var event Event
	err := r.db.GetContext(ctx, &event, `
		SELECT * FROM wallet_links
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoWallet
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) History(ctx context.Context, userID uuid.UUID) ([]*Event, error) {
	var events []*Event
	err := r.db.SelectContext(ctx, &events, `
		SELECT * FROM wallet_links
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	return events, err
}

// ActiveOwner finds which user, if any, currently has the address linked.
// Each user's link state is their latest event for any address.
func (r *repository) ActiveOwner(ctx context.Context, address string) (uuid.UUID, bool, error) {
	var owner uuid.UUID
	err := r.db.GetContext(ctx, &owner, `
		SELECT user_id FROM (
			SELECT DISTINCT ON (user_id) user_id, address, event
			FROM wallet_links
			ORDER BY user_id, created_at DESC
		) latest
		WHERE address = $1 AND event != 'disconnect'
		LIMIT 1
	`, address)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return owner, true, nil
}
