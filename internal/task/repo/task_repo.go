package repo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/task/entity"
	"github.com/ovaphlow/pitchfork/service-task-tracker/pkg/database"
)

// TaskRepo is the repository for tasks backed by sqlx.
type TaskRepo struct {
	db *sqlx.DB
}

// NewTaskRepo constructs a new TaskRepo with an existing connection.
func NewTaskRepo(db *sqlx.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

const taskColumns = `id, title, description, due_date, created_at, updated_at, priority, status, creator_id, assignee_id`

// EnsureTable ensures the tasks table and its indexes exist. The
// identities table must exist first.
func (r *TaskRepo) EnsureTable(ctx context.Context) error {
	ts := database.TimestampType(r.db.DriverName())
	return database.ExecAll(ctx, r.db,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS tasks (
  id BIGINT PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  due_date %[1]s NOT NULL,
  created_at %[1]s NOT NULL,
  updated_at %[1]s NOT NULL,
  priority VARCHAR(8) NOT NULL CHECK (priority IN ('high', 'medium', 'low')),
  status VARCHAR(16) NOT NULL CHECK (status IN ('todo', 'in_progress', 'done', 'canceled')),
  creator_id BIGINT NOT NULL REFERENCES identities(id),
  assignee_id BIGINT NOT NULL REFERENCES identities(id)
)`, ts),
		`CREATE INDEX IF NOT EXISTS idx_tasks_creator_id ON tasks(creator_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_assignee_id ON tasks(assignee_id)`,
	)
}

// DropTable removes the tasks table.
func (r *TaskRepo) DropTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DROP TABLE IF EXISTS tasks`)
	return err
}

// Create inserts a task.
func (r *TaskRepo) Create(ctx context.Context, t *entity.Task) error {
	const q = `INSERT INTO tasks (` + taskColumns + `)
		VALUES (:id, :title, :description, :due_date, :created_at, :updated_at, :priority, :status, :creator_id, :assignee_id)`
	_, err := r.db.NamedExecContext(ctx, q, t)
	return err
}

// GetByID returns a task or sql.ErrNoRows.
func (r *TaskRepo) GetByID(ctx context.Context, id int64) (*entity.Task, error) {
	q := r.db.Rebind(`SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`)
	var t entity.Task
	if err := r.db.GetContext(ctx, &t, q, id); err != nil {
		return nil, err
	}
	return &t, nil
}

// Update overwrites the mutable columns of t. creator_id and created_at are
// never written. Returns rows affected.
func (r *TaskRepo) Update(ctx context.Context, t *entity.Task) (int64, error) {
	const q = `UPDATE tasks SET title = :title, description = :description, due_date = :due_date,
		updated_at = :updated_at, priority = :priority, status = :status, assignee_id = :assignee_id
		WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, q, t)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListForIdentity returns tasks created by or assigned to id.
func (r *TaskRepo) ListForIdentity(ctx context.Context, id int64) ([]entity.Task, error) {
	q := r.db.Rebind(`SELECT ` + taskColumns + ` FROM tasks WHERE creator_id = ? OR assignee_id = ? ORDER BY due_date, id`)
	out := []entity.Task{}
	if err := r.db.SelectContext(ctx, &out, q, id, id); err != nil {
		return nil, err
	}
	return out, nil
}
