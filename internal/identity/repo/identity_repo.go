package repo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/identity/entity"
	"github.com/ovaphlow/pitchfork/service-task-tracker/pkg/database"
)

// Record is an identity row including its password hash.
type Record struct {
	entity.Identity
	PasswordHash string `db:"password_hash"`
}

// IdentityRepo provides data access for the identities table using sqlx.
type IdentityRepo struct {
	db *sqlx.DB
}

func NewIdentityRepo(db *sqlx.DB) *IdentityRepo { return &IdentityRepo{db: db} }

const identityColumns = `id, login, first_name, last_name, middle_name, manager_id, created_at`

// EnsureTable creates the identities table if not exists (idempotent).
func (r *IdentityRepo) EnsureTable(ctx context.Context) error {
	ts := database.TimestampType(r.db.DriverName())
	return database.ExecAll(ctx, r.db,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS identities (
  id BIGINT PRIMARY KEY,
  login VARCHAR(16) NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  middle_name TEXT,
  manager_id BIGINT REFERENCES identities(id),
  created_at %s NOT NULL
)`, ts),
		`CREATE INDEX IF NOT EXISTS idx_identities_manager_id ON identities(manager_id)`,
	)
}

// DropTable removes the identities table.
func (r *IdentityRepo) DropTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DROP TABLE IF EXISTS identities`)
	return err
}

// Create inserts a new identity row. The caller supplies the id.
func (r *IdentityRepo) Create(ctx context.Context, rec *Record) error {
	const q = `INSERT INTO identities (id, login, password_hash, first_name, last_name, middle_name, manager_id, created_at)
		VALUES (:id, :login, :password_hash, :first_name, :last_name, :middle_name, :manager_id, :created_at)`
	_, err := r.db.NamedExecContext(ctx, q, rec)
	return err
}

// GetByLogin returns the identity with exactly this login or sql.ErrNoRows.
func (r *IdentityRepo) GetByLogin(ctx context.Context, login string) (*entity.Identity, error) {
	q := r.db.Rebind(`SELECT ` + identityColumns + ` FROM identities WHERE login = ?`)
	var row entity.Identity
	if err := r.db.GetContext(ctx, &row, q, login); err != nil {
		return nil, err
	}
	return &row, nil
}

// GetByID fetches an identity by primary key or sql.ErrNoRows.
func (r *IdentityRepo) GetByID(ctx context.Context, id int64) (*entity.Identity, error) {
	q := r.db.Rebind(`SELECT ` + identityColumns + ` FROM identities WHERE id = ?`)
	var row entity.Identity
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// PasswordHash returns the stored hash for id or sql.ErrNoRows.
func (r *IdentityRepo) PasswordHash(ctx context.Context, id int64) (string, error) {
	q := r.db.Rebind(`SELECT password_hash FROM identities WHERE id = ?`)
	var hash string
	if err := r.db.GetContext(ctx, &hash, q, id); err != nil {
		return "", err
	}
	return hash, nil
}

// ListByManager returns the direct reports of managerID.
func (r *IdentityRepo) ListByManager(ctx context.Context, managerID int64) ([]entity.Identity, error) {
	q := r.db.Rebind(`SELECT ` + identityColumns + ` FROM identities WHERE manager_id = ? ORDER BY last_name, first_name, id`)
	out := []entity.Identity{}
	if err := r.db.SelectContext(ctx, &out, q, managerID); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRoots returns every identity without a manager.
func (r *IdentityRepo) ListRoots(ctx context.Context) ([]entity.Identity, error) {
	const q = `SELECT ` + identityColumns + ` FROM identities WHERE manager_id IS NULL ORDER BY last_name, first_name, id`
	out := []entity.Identity{}
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}
