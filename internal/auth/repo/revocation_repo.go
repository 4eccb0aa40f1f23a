package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ovaphlow/pitchfork/service-task-tracker/pkg/database"
)

// RevocationRepo stores the ids of access tokens revoked before expiry.
type RevocationRepo struct {
	db *sqlx.DB
}

func NewRevocationRepo(db *sqlx.DB) *RevocationRepo {
	return &RevocationRepo{db: db}
}

// EnsureTable creates the revoked_tokens table if it does not exist.
func (r *RevocationRepo) EnsureTable(ctx context.Context) error {
	ts := database.TimestampType(r.db.DriverName())
	return database.ExecAll(ctx, r.db,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS revoked_tokens (
  jti TEXT PRIMARY KEY,
  identity_id BIGINT NOT NULL,
  expires_at %s NOT NULL
)`, ts),
		`CREATE INDEX IF NOT EXISTS idx_revoked_tokens_expires_at ON revoked_tokens(expires_at)`,
	)
}

// DropTable removes the revoked_tokens table.
func (r *RevocationRepo) DropTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DROP TABLE IF EXISTS revoked_tokens`)
	return err
}

// Save records jti as revoked until expiresAt. Rows whose token has
// expired anyway are purged first; saving the same jti twice is a no-op.
func (r *RevocationRepo) Save(ctx context.Context, jti string, identityID int64, expiresAt, now time.Time) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM revoked_tokens WHERE expires_at < ?`), now); err != nil {
		return err
	}
	q := r.db.Rebind(`INSERT INTO revoked_tokens (jti, identity_id, expires_at) VALUES (?, ?, ?) ON CONFLICT (jti) DO NOTHING`)
	_, err := r.db.ExecContext(ctx, q, jti, identityID, expiresAt)
	return err
}

// IsRevoked reports whether jti has been revoked.
func (r *RevocationRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var n int
	q := r.db.Rebind(`SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?`)
	if err := r.db.GetContext(ctx, &n, q, jti); err != nil {
		return false, err
	}
	return n > 0, nil
}
