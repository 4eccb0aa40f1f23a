// Package schema creates and drops the tables of every repository in
// dependency order.
package schema

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/multierr"

	authrepo "github.com/ovaphlow/pitchfork/service-task-tracker/internal/auth/repo"
	identityrepo "github.com/ovaphlow/pitchfork/service-task-tracker/internal/identity/repo"
	taskrepo "github.com/ovaphlow/pitchfork/service-task-tracker/internal/task/repo"
)

type table interface {
	EnsureTable(ctx context.Context) error
	DropTable(ctx context.Context) error
}

type namedTable struct {
	name string
	t    table
}

// tables lists tables so that referenced ones come first.
func tables(db *sqlx.DB) []namedTable {
	return []namedTable{
		{"identities", identityrepo.NewIdentityRepo(db)},
		{"tasks", taskrepo.NewTaskRepo(db)},
		{"revoked_tokens", authrepo.NewRevocationRepo(db)},
	}
}

// Ensure creates missing tables and indexes. It stops at the first failure.
func Ensure(ctx context.Context, db *sqlx.DB) error {
	for _, nt := range tables(db) {
		if err := nt.t.EnsureTable(ctx); err != nil {
			return fmt.Errorf("ensure %s: %w", nt.name, err)
		}
	}
	return nil
}

// Drop removes every table in reverse order and reports all failures.
func Drop(ctx context.Context, db *sqlx.DB) error {
	ts := tables(db)
	var err error
	for i := len(ts) - 1; i >= 0; i-- {
		if e := ts[i].t.DropTable(ctx); e != nil {
			err = multierr.Append(err, fmt.Errorf("drop %s: %w", ts[i].name, e))
		}
	}
	return err
}
