package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/identity/entity"
	identityrepo "github.com/ovaphlow/pitchfork/service-task-tracker/internal/identity/repo"
	"github.com/ovaphlow/pitchfork/service-task-tracker/pkg/database"
	"github.com/ovaphlow/pitchfork/service-task-tracker/pkg/utilities"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
	// IsHash reports whether s already is an encoded hash of this algorithm.
	IsHash(s string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

func (b BcryptHasher) IsHash(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}

var (
	ErrNotFound        = errors.New("identity not found")
	ErrDuplicateLogin  = errors.New("login already in use")
	ErrManagerNotFound = errors.New("manager not found")
	ErrManagerNotRoot  = errors.New("manager is itself a subordinate")
)

// Service is the credential store and hierarchy index over identities.
type Service struct {
	repo   *identityrepo.IdentityRepo
	hasher PasswordHasher
	ids    *utilities.IDGenerator
	Clock  clockwork.Clock

	dummyOnce sync.Once
	dummyHash string
}

func NewService(db *sqlx.DB, r *identityrepo.IdentityRepo, hasher PasswordHasher, ids *utilities.IDGenerator) *Service {
	if r == nil {
		r = identityrepo.NewIdentityRepo(db)
	}
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &Service{repo: r, hasher: hasher, ids: ids, Clock: clockwork.NewRealClock()}
}

// Repo exposes the underlying repository for schema management.
func (s *Service) Repo() *identityrepo.IdentityRepo { return s.repo }

// Create stores a new identity. The password is hashed unless it already
// is a hash, so re-saving a loaded record never double-hashes it.
func (s *Service) Create(ctx context.Context, in entity.NewIdentity, password string) (*entity.Identity, error) {
	if _, err := s.repo.GetByLogin(ctx, in.Login); err == nil {
		return nil, ErrDuplicateLogin
	} else if !database.IsNoRows(err) {
		return nil, fmt.Errorf("lookup login: %w", err)
	}
	// the hierarchy is one level deep: only roots may manage
	if in.ManagerID != nil {
		m, err := s.FindByID(ctx, *in.ManagerID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, ErrManagerNotFound
			}
			return nil, err
		}
		if !m.IsManager() {
			return nil, ErrManagerNotRoot
		}
	}

	hash := password
	if !s.hasher.IsHash(password) {
		h, err := s.hasher.Hash(password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hash = h
	}

	rec := &identityrepo.Record{
		Identity: entity.Identity{
			ID:         s.ids.Next(),
			Login:      in.Login,
			FirstName:  in.FirstName,
			LastName:   in.LastName,
			MiddleName: in.MiddleName,
			ManagerID:  in.ManagerID,
			CreatedAt:  s.Clock.Now().UTC().Truncate(time.Microsecond),
		},
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateLogin
		}
		return nil, fmt.Errorf("insert identity: %w", err)
	}
	out := rec.Identity
	return &out, nil
}

// FindByLogin looks an identity up by exact, case-sensitive login.
func (s *Service) FindByLogin(ctx context.Context, login string) (*entity.Identity, error) {
	i, err := s.repo.GetByLogin(ctx, login)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return i, nil
}

// FindByID looks an identity up by id.
func (s *Service) FindByID(ctx context.Context, id int64) (*entity.Identity, error) {
	i, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return i, nil
}

// VerifyPassword compares plaintext against the stored hash of i.
func (s *Service) VerifyPassword(ctx context.Context, i *entity.Identity, plaintext string) (bool, error) {
	hash, err := s.repo.PasswordHash(ctx, i.ID)
	if err != nil {
		if database.IsNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return s.hasher.Verify(hash, plaintext), nil
}

// SpendVerify runs one comparison against a throwaway hash so a login
// attempt for an unknown account costs the same as a wrong password.
func (s *Service) SpendVerify(plaintext string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(utilities.NewKSUID())
	})
	_ = s.hasher.Verify(s.dummyHash, plaintext)
}

// SubordinatesOf returns every identity whose manager is managerID.
func (s *Service) SubordinatesOf(ctx context.Context, managerID int64) ([]entity.Identity, error) {
	return s.repo.ListByManager(ctx, managerID)
}

// Managers returns every identity without a manager.
func (s *Service) Managers(ctx context.Context) ([]entity.Identity, error) {
	return s.repo.ListRoots(ctx)
}
