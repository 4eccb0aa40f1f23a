package task

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"

	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/identity"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/task/entity"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/task/repo"
	"github.com/ovaphlow/pitchfork/service-task-tracker/pkg/database"
	"github.com/ovaphlow/pitchfork/service-task-tracker/pkg/utilities"
)

// sentinel errors for common failure modes
var (
	ErrNotFound         = errors.New("task not found")
	ErrAssigneeNotFound = errors.New("assignee not found")
	ErrUnknownCaller    = errors.New("caller identity does not exist")
	ErrForbidden        = errors.New("caller is not involved in the task")
)

type Config struct {
	// StrictUpdate limits updates to the task's creator and assignee.
	StrictUpdate bool
}

// ConfigFromEnv reads TASKS_STRICT_UPDATE.
func ConfigFromEnv() Config {
	return Config{StrictUpdate: os.Getenv("TASKS_STRICT_UPDATE") == "1"}
}

// Service encapsulates task rules and depends on a repo.
type Service struct {
	repo       *repo.TaskRepo
	identities *identity.Service
	ids        *utilities.IDGenerator
	cfg        Config
	Clock      clockwork.Clock
}

// NewService constructs a Service; r may be nil to build one from db.
func NewService(db *sqlx.DB, r *repo.TaskRepo, identities *identity.Service, ids *utilities.IDGenerator, cfg Config) *Service {
	if r == nil {
		r = repo.NewTaskRepo(db)
	}
	return &Service{repo: r, identities: identities, ids: ids, cfg: cfg, Clock: clockwork.NewRealClock()}
}

// Repo exposes the underlying repository for schema management.
func (s *Service) Repo() *repo.TaskRepo { return s.repo }

func (s *Service) now() time.Time {
	return s.Clock.Now().UTC().Truncate(time.Microsecond)
}

// Create stores a task created by callerID. Nothing is written when the
// assignee cannot be resolved.
func (s *Service) Create(ctx context.Context, callerID int64, cmd Command) (*entity.Task, error) {
	if _, err := s.identities.FindByID(ctx, callerID); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, ErrUnknownCaller
		}
		return nil, fmt.Errorf("lookup creator: %w", err)
	}
	assigneeID, err := s.resolveAssignee(ctx, cmd.AssigneeLogin)
	if err != nil {
		return nil, err
	}
	now := s.now()
	t := &entity.Task{
		ID:          s.ids.Next(),
		Title:       cmd.Title,
		Description: cmd.Description,
		DueDate:     cmd.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
		Priority:    cmd.Priority,
		Status:      cmd.Status,
		CreatorID:   callerID,
		AssigneeID:  assigneeID,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

// Update replaces the mutable fields of task id. Any authenticated caller
// may update any task unless StrictUpdate is set.
func (s *Service) Update(ctx context.Context, callerID, id int64, cmd Command) (*entity.Task, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cfg.StrictUpdate && !existing.Involves(callerID) {
		return nil, ErrForbidden
	}
	assigneeID, err := s.resolveAssignee(ctx, cmd.AssigneeLogin)
	if err != nil {
		return nil, err
	}

	updated := *existing
	updated.Title = cmd.Title
	updated.Description = cmd.Description
	updated.DueDate = cmd.DueDate
	updated.Priority = cmd.Priority
	updated.Status = cmd.Status
	updated.AssigneeID = assigneeID
	updated.UpdatedAt = s.now()
	if !updated.UpdatedAt.After(existing.UpdatedAt) {
		updated.UpdatedAt = existing.UpdatedAt.Add(time.Microsecond)
	}

	rows, err := s.repo.Update(ctx, &updated)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if rows == 0 {
		return nil, ErrNotFound
	}
	return &updated, nil
}

// Get returns one task.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// ListForIdentity returns only tasks id created or is assigned.
func (s *Service) ListForIdentity(ctx context.Context, id int64) ([]entity.Task, error) {
	return s.repo.ListForIdentity(ctx, id)
}

func (s *Service) resolveAssignee(ctx context.Context, login string) (int64, error) {
	u, err := s.identities.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return 0, ErrAssigneeNotFound
		}
		return 0, fmt.Errorf("lookup assignee: %w", err)
	}
	return u.ID, nil
}
