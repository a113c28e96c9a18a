package wallet

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Connect links a wallet to a user. Linking over an existing link appends a
// change event; the old address stays in the history forever.
func (s *Service) Connect(ctx context.Context, userID uuid.UUID, address string) (*Event, error) {
	if !addressRe.MatchString(address) {
		return nil, ErrInvalidWallet
	}
	address = strings.ToLower(address)

	owner, taken, err := s.repo.ActiveOwner(ctx, address)
	if err != nil {
		return nil, err
	}
	if taken && owner != userID {
		return nil, ErrWalletTaken
	}

	eventType := EventConnect
	latest, err := s.repo.LatestEvent(ctx, userID)
	if err != nil && !errors.Is(err, ErrNoWallet) {
		return nil, err
	}
	if latest != nil && latest.Event != EventDisconnect {
		if latest.Address == address {
			return nil, ErrSameWallet
		}
		eventType = EventChange
	}

	event := &Event{
		ID:        uuid.New(),
		UserID:    userID,
		Address:   address,
		Event:     eventType,
		CreatedAt: time.Now(),
	}
	if err := s.repo.AppendEvent(ctx, event); err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("address", address).
		Str("event", string(eventType)).
		Msg("wallet linked")
	return event, nil
}

// Disconnect unlinks the user's wallet by appending a disconnect event.
func (s *Service) Disconnect(ctx context.Context, userID uuid.UUID) error {
	latest, err := s.repo.LatestEvent(ctx, userID)
	if err != nil {
		return err
	}
	if latest.Event == EventDisconnect {
		return ErrNoWallet
	}

	event := &Event{
		ID:        uuid.New(),
		UserID:    userID,
		Address:   latest.Address,
		Event:     EventDisconnect,
		CreatedAt: time.Now(),
	}
	if err := s.repo.AppendEvent(ctx, event); err != nil {
		return err
	}

	log.Info().Str("user_id", userID.String()).Str("address", latest.Address).Msg("wallet disconnected")
	return nil
}

// ActiveWallet returns the user's currently linked address.
func (s *Service) ActiveWallet(ctx context.Context, userID uuid.UUID) (string, error) {
	latest, err := s.repo.LatestEvent(ctx, userID)
	if err != nil {
		return "", err
	}
	if latest.Event == EventDisconnect {
		return "", ErrNoWallet
	}
	return latest.Address, nil
}

// History returns the user's full link history, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]*Event, error) {
	return s.repo.History(ctx, userID)
}
