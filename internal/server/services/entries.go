package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/dmitrijs2005/passvault/internal/server/models"
	"github.com/dmitrijs2005/passvault/internal/server/repositories/entries"
	"github.com/dmitrijs2005/passvault/internal/server/vault"
	"github.com/google/uuid"
)

// EntryService stores vault entries for a principal. Secret fields are sealed
// before they reach the repository and opened on the way out.
type EntryService struct {
	repo   entries.Repository
	sealer *vault.Sealer
	logger logging.Logger
}

func NewEntryService(repo entries.Repository, sealer *vault.Sealer, logger logging.Logger) *EntryService {
	return &EntryService{repo: repo, sealer: sealer, logger: logger.With("module", "entries")}
}

// Create assigns a fresh ID to e and stores it under userID.
func (s *EntryService) Create(ctx context.Context, userID string, e models.Entry) (*models.Entry, error) {
	e.ID = uuid.NewString()
	e.UserID = userID
	if err := validateEntry(&e); err != nil {
		return nil, err
	}

	sealed, err := s.sealer.Seal(e)
	if err != nil {
		return nil, fmt.Errorf("seal entry: %w", err)
	}
	if err := s.repo.Create(ctx, &sealed); err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	e.CreatedAt, e.UpdatedAt = sealed.CreatedAt, sealed.UpdatedAt

	s.logger.Info(ctx, "entry created", "user_id", userID, "entry_id", e.ID)
	return &e, nil
}

// Update replaces the entry id of userID with e.
func (s *EntryService) Update(ctx context.Context, userID, id string, e models.Entry) (*models.Entry, error) {
	e.ID = id
	e.UserID = userID
	if err := validateEntry(&e); err != nil {
		return nil, err
	}

	sealed, err := s.sealer.Seal(e)
	if err != nil {
		return nil, fmt.Errorf("seal entry: %w", err)
	}
	if err := s.repo.Update(ctx, &sealed); err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}
	e.CreatedAt, e.UpdatedAt = sealed.CreatedAt, sealed.UpdatedAt
	return &e, nil
}

func (s *EntryService) Get(ctx context.Context, userID, id string) (*models.Entry, error) {
	stored, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	opened, err := s.sealer.Open(*stored)
	if err != nil {
		return nil, fmt.Errorf("open entry: %w", err)
	}
	return &opened, nil
}

// List returns every entry of userID opened. One unreadable entry fails the
// whole call rather than returning a partial vault.
func (s *EntryService) List(ctx context.Context, userID string) ([]*models.Entry, error) {
	stored, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	result := make([]*models.Entry, 0, len(stored))
	for _, e := range stored {
		opened, err := s.sealer.Open(*e)
		if err != nil {
			return nil, fmt.Errorf("open entry: %w", err)
		}
		result = append(result, &opened)
	}
	return result, nil
}

func (s *EntryService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	s.logger.Info(ctx, "entry deleted", "user_id", userID, "entry_id", id)
	return nil
}

func validateEntry(e *models.Entry) error {
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		return fmt.Errorf("%w: title is required", common.ErrorValidation)
	}
	return nil
}
