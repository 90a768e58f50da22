// Package entry implements the entry lifecycle: create, view, edit lookup and
// authorized update with optional rename. It talks to storage only through
// the lenient Repository contract.
//
// Uniqueness checks and renames are check-then-act sequences over separate
// storage calls; two concurrent requests for the same ID can race.
package entry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pagebin/internal/id"
	"pagebin/internal/security"
	"pagebin/internal/storage"
)

const maxIDAttempts = 5

// Repository is the storage contract the service depends on.
type Repository interface {
	LoadEntry(ctx context.Context, id string) (*storage.Entry, bool)
	SaveEntry(ctx context.Context, entry *storage.Entry) bool
	DeleteEntry(ctx context.Context, id string) bool
}

// IDGenerator produces fresh IDs and edit codes.
type IDGenerator interface {
	ID(ctx context.Context) (string, error)
	EditCode(ctx context.Context) (string, error)
}

// OutcomeRecorder receives one call per finished operation.
type OutcomeRecorder interface {
	ObserveOutcome(op, outcome string)
}

// Config wires a Service.
type Config struct {
	Repo     Repository
	IDs      IDGenerator
	Logger   *slog.Logger
	Metrics  OutcomeRecorder
	Reserved []string
	Now      func() time.Time
}

// Service orchestrates entry operations.
type Service struct {
	repo     Repository
	ids      IDGenerator
	logger   *slog.Logger
	metrics  OutcomeRecorder
	reserved map[string]struct{}
	now      func() time.Time
}

// NewService builds a Service. Repo is required; IDs defaults to a
// crypto-backed generator.
func NewService(cfg Config) (*Service, error) {
	if cfg.Repo == nil {
		return nil, fmt.Errorf("new entry service: repository required")
	}
	if cfg.IDs == nil {
		cfg.IDs = id.New(0, 0)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	reserved := make(map[string]struct{}, len(cfg.Reserved))
	for _, name := range cfg.Reserved {
		reserved[strings.ToLower(name)] = struct{}{}
	}
	return &Service{
		repo:     cfg.Repo,
		ids:      cfg.IDs,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		reserved: reserved,
		now:      cfg.Now,
	}, nil
}

// CreateRequest carries the fields of a create form.
type CreateRequest struct {
	Content   string
	CustomURL string
	EditCode  string
}

// Created is the result of a successful create.
type Created struct {
	ID       string
	EditCode string
	// RevealEditCode is set when the code was generated and must be shown
	// to the creator once.
	RevealEditCode bool
}

// Create stores a new entry under a sanitized custom URL or a generated ID.
func (s *Service) Create(ctx context.Context, req CreateRequest) (res Created, err error) {
	defer func() { s.record("create", err) }()

	if isBlank(req.Content) {
		return Created{}, ErrEmptyContent
	}

	entryID, err := s.chooseID(ctx, req.CustomURL)
	if err != nil {
		return Created{}, err
	}

	code := strings.TrimSpace(req.EditCode)
	reveal := false
	if code == "" {
		code, err = s.ids.EditCode(ctx)
		if err != nil {
			return Created{}, fmt.Errorf("generate edit code: %w: %w", ErrBackend, err)
		}
		reveal = true
	}

	now := s.now()
	e := &storage.Entry{
		ID:        entryID,
		Content:   req.Content,
		EditCode:  code,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !s.repo.SaveEntry(ctx, e) {
		return Created{}, ErrSaveFailed
	}

	s.logger.Info("entry created", "id", entryID, "custom", strings.TrimSpace(req.CustomURL) != "")
	return Created{ID: entryID, EditCode: code, RevealEditCode: reveal}, nil
}

func (s *Service) chooseID(ctx context.Context, customURL string) (string, error) {
	if raw := strings.TrimSpace(customURL); raw != "" {
		entryID := id.Sanitize(raw)
		if entryID == "" {
			return "", ErrInvalidURL
		}
		if s.taken(ctx, entryID) {
			return "", ErrURLTaken
		}
		return entryID, nil
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		entryID, err := s.ids.ID(ctx)
		if err != nil {
			return "", fmt.Errorf("generate id: %w: %w", ErrBackend, err)
		}
		if !s.taken(ctx, entryID) {
			return entryID, nil
		}
		s.logger.Debug("generated id collided", "id", entryID, "attempt", attempt+1)
	}
	return "", ErrURLTaken
}

// View returns the stored content verbatim.
func (s *Service) View(ctx context.Context, entryID string) (content string, err error) {
	defer func() { s.record("view", err) }()

	e, ok := s.repo.LoadEntry(ctx, entryID)
	if !ok {
		return "", ErrNotFound
	}
	return e.Content, nil
}

// FetchForEdit returns the entry without its edit code.
func (s *Service) FetchForEdit(ctx context.Context, entryID string) (pub storage.PublicEntry, err error) {
	defer func() { s.record("fetch", err) }()

	e, ok := s.repo.LoadEntry(ctx, entryID)
	if !ok {
		return storage.PublicEntry{}, ErrNotFound
	}
	return e.Public(), nil
}

// UpdateRequest carries the fields of an update form.
type UpdateRequest struct {
	ID          string
	EditCode    string
	Content     string
	NewEditCode string
	NewURL      string
}

// Update applies an authorized edit and returns the entry's final ID.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (finalID string, err error) {
	defer func() { s.record("update", err) }()

	e, ok := s.repo.LoadEntry(ctx, req.ID)
	if !ok {
		return "", ErrNotFound
	}
	if !security.MatchEditCode(e.EditCode, req.EditCode) {
		s.logger.Warn("edit code rejected", "id", req.ID)
		return "", ErrUnauthorized
	}
	if isBlank(req.Content) {
		return "", ErrEmptyContent
	}

	var previous *storage.Entry
	if raw := strings.TrimSpace(req.NewURL); raw != "" {
		target := id.Sanitize(raw)
		if target == "" {
			return "", ErrInvalidURL
		}
		if target != e.ID {
			if s.taken(ctx, target) {
				return "", ErrURLTaken
			}
			if !s.repo.DeleteEntry(ctx, e.ID) {
				return "", fmt.Errorf("rename %s: %w", e.ID, ErrBackend)
			}
			snapshot := *e
			previous = &snapshot
			e.ID = target
		}
	}

	e.Content = req.Content
	if code := strings.TrimSpace(req.NewEditCode); code != "" {
		e.EditCode = code
	}
	e.UpdatedAt = s.now()

	if !s.repo.SaveEntry(ctx, e) {
		if previous != nil && !s.repo.SaveEntry(ctx, previous) {
			s.logger.Error("restore after failed rename", "id", previous.ID, "target", e.ID)
		}
		return "", ErrSaveFailed
	}

	if previous != nil {
		s.logger.Info("entry renamed", "from", previous.ID, "to", e.ID)
	} else {
		s.logger.Info("entry updated", "id", e.ID)
	}
	return e.ID, nil
}

func (s *Service) taken(ctx context.Context, entryID string) bool {
	if _, ok := s.reserved[strings.ToLower(entryID)]; ok {
		return true
	}
	_, ok := s.repo.LoadEntry(ctx, entryID)
	return ok
}

func (s *Service) record(op string, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveOutcome(op, outcome(err))
}

func isBlank(v string) bool {
	return strings.TrimSpace(v) == ""
}
