package client

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/identity/entity"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/task"
	taskentity "github.com/ovaphlow/pitchfork/service-task-tracker/internal/task/entity"
)

// SelfLabel labels the session identity in the assignee list.
const SelfLabel = "Me"

// Placeholders for task people whose profile could not be looked up.
const (
	UnknownCreator = "Unknown"
	UnassignedName = "Unassigned"
)

// lookupLimit bounds concurrent user lookups during enrichment.
const lookupLimit = 4

// Assignee is a selectable task assignee. Login is empty when it could not
// be looked up.
type Assignee struct {
	ID    int64
	Label string
	Login string
}

// TaskView is a task with its creator and assignee display names.
type TaskView struct {
	taskentity.Task
	CreatorName  string
	AssigneeName string
}

// Board caches the session's task list. Every successful mutation drops the
// cache and refetches the list from the server.
type Board struct {
	c *Client

	mu     sync.Mutex
	tasks  []taskentity.Task
	loaded bool
}

func NewBoard(c *Client) *Board {
	return &Board{c: c}
}

// Tasks returns the cached list, fetching it on first use.
func (b *Board) Tasks(ctx context.Context) ([]taskentity.Task, error) {
	b.mu.Lock()
	if b.loaded {
		out := append([]taskentity.Task(nil), b.tasks...)
		b.mu.Unlock()
		return out, nil
	}
	b.mu.Unlock()
	list, err := b.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return append([]taskentity.Task(nil), list...), nil
}

// Refresh replaces the cache with the server's list.
func (b *Board) Refresh(ctx context.Context) error {
	_, err := b.fetch(ctx)
	return err
}

func (b *Board) fetch(ctx context.Context) ([]taskentity.Task, error) {
	list, err := b.c.ListTasks(ctx)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			b.Invalidate()
		}
		return nil, err
	}
	if list == nil {
		list = []taskentity.Task{}
	}
	b.mu.Lock()
	b.tasks, b.loaded = list, true
	b.mu.Unlock()
	return list, nil
}

// Invalidate drops the cache; the next Tasks call refetches.
func (b *Board) Invalidate() {
	b.mu.Lock()
	b.tasks, b.loaded = nil, false
	b.mu.Unlock()
}

func (b *Board) Create(ctx context.Context, req task.Request) (*taskentity.Task, error) {
	t, err := b.c.CreateTask(ctx, req)
	return t, b.afterMutation(ctx, err)
}

func (b *Board) Update(ctx context.Context, id int64, req task.Request) (*taskentity.Task, error) {
	t, err := b.c.UpdateTask(ctx, id, req)
	return t, b.afterMutation(ctx, err)
}

func (b *Board) afterMutation(ctx context.Context, err error) error {
	b.Invalidate()
	if err != nil {
		return err
	}
	return b.Refresh(ctx)
}

// Assignees lists the session identity followed by its subordinates with
// their logins. A failed login lookup yields an empty Login for that entry
// only; an unauthenticated session fails the whole call.
func (b *Board) Assignees(ctx context.Context) ([]Assignee, error) {
	me, ok := b.c.Session().Identity()
	if !ok {
		return nil, ErrUnauthenticated
	}
	subs, err := b.c.Subordinates(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Assignee, len(subs)+1)
	out[0] = Assignee{ID: me.UserID, Label: SelfLabel, Login: me.Login}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupLimit)
	for i, sub := range subs {
		out[i+1] = Assignee{ID: sub.ID, Label: DisplayName(sub), Login: sub.Login}
		if sub.Login != "" {
			continue
		}
		g.Go(func() error {
			p, err := b.c.User(gctx, sub.ID)
			if errors.Is(err, ErrUnauthenticated) {
				return err
			}
			if err == nil {
				out[i+1].Login = p.Login
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Views returns the cached tasks with creator and assignee names. Each
// distinct identity is looked up once; a failed lookup degrades to a
// placeholder for the records that reference it. An unauthenticated session
// fails the whole call.
func (b *Board) Views(ctx context.Context) ([]TaskView, error) {
	tasks, err := b.Tasks(ctx)
	if err != nil {
		return nil, err
	}

	var ids []int64
	seen := make(map[int64]bool)
	for _, t := range tasks {
		for _, id := range []int64{t.CreatorID, t.AssigneeID} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	var mu sync.Mutex
	names := make(map[int64]string, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupLimit)
	for _, id := range ids {
		g.Go(func() error {
			p, err := b.c.User(gctx, id)
			if errors.Is(err, ErrUnauthenticated) {
				return err
			}
			if err == nil {
				mu.Lock()
				names[id] = DisplayName(*p)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]TaskView, len(tasks))
	for i, t := range tasks {
		out[i] = TaskView{Task: t, CreatorName: names[t.CreatorID], AssigneeName: names[t.AssigneeID]}
		if out[i].CreatorName == "" {
			out[i].CreatorName = UnknownCreator
		}
		if out[i].AssigneeName == "" {
			out[i].AssigneeName = UnassignedName
		}
	}
	return out, nil
}

// DisplayName formats a profile as "Last First Middle".
func DisplayName(p entity.Profile) string {
	parts := []string{p.LastName, p.FirstName}
	if p.MiddleName != nil {
		parts = append(parts, *p.MiddleName)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
