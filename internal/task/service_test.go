package task

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/identity"
	identityentity "github.com/ovaphlow/pitchfork/service-task-tracker/internal/identity/entity"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/task/entity"
	"github.com/ovaphlow/pitchfork/service-task-tracker/pkg/database"
	"github.com/ovaphlow/pitchfork/service-task-tracker/pkg/utilities"
)

type fixture struct {
	svc        *Service
	identities *identity.Service
	clock      *clockwork.FakeClock
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, DSN: filepath.Join(t.TempDir(), "task.db")})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	ids, err := utilities.NewIDGenerator(3)
	if err != nil {
		t.Fatalf("NewIDGenerator: %v", err)
	}
	ctx := context.Background()
	identities := identity.NewService(db, nil, identity.BcryptHasher{Cost: bcrypt.MinCost}, ids)
	if err := identities.Repo().EnsureTable(ctx); err != nil {
		t.Fatalf("EnsureTable identities: %v", err)
	}
	svc := NewService(db, nil, identities, ids, cfg)
	if err := svc.Repo().EnsureTable(ctx); err != nil {
		t.Fatalf("EnsureTable tasks: %v", err)
	}
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc.Clock = clock
	identities.Clock = clock
	return &fixture{svc: svc, identities: identities, clock: clock}
}

func (f *fixture) identity(t *testing.T, login string, managerID *int64) *identityentity.Identity {
	t.Helper()
	i, err := f.identities.Create(context.Background(), identityentity.NewIdentity{
		Login: login, FirstName: "Test", LastName: login, ManagerID: managerID,
	}, "Passw0rd!")
	if err != nil {
		t.Fatalf("Create identity %s: %v", login, err)
	}
	return i
}

func command(t *testing.T, title, assignee string) Command {
	t.Helper()
	cmd, err := Request{
		Title: title, DueDate: "2026-03-10", Priority: "medium", Status: "todo", Assignee: assignee,
	}.Command()
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	return cmd
}

func TestCreate_CreatorFromCallerAssigneeFromLogin(t *testing.T) {
	f := newFixture(t, Config{})
	boss := f.identity(t, "boss", nil)
	worker := f.identity(t, "worker", &boss.ID)

	got, err := f.svc.Create(context.Background(), boss.ID, command(t, "Write report", "worker"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.CreatorID != boss.ID || got.AssigneeID != worker.ID {
		t.Fatalf("creator/assignee = %d/%d, want %d/%d", got.CreatorID, got.AssigneeID, boss.ID, worker.ID)
	}
	if !got.CreatedAt.Equal(f.clock.Now()) || !got.UpdatedAt.Equal(got.CreatedAt) {
		t.Fatalf("timestamps = %v / %v", got.CreatedAt, got.UpdatedAt)
	}
	stored, err := f.svc.Get(context.Background(), got.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Title != "Write report" || !stored.DueDate.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestCreate_UnknownAssigneeStoresNothing(t *testing.T) {
	f := newFixture(t, Config{})
	boss := f.identity(t, "boss", nil)

	_, err := f.svc.Create(context.Background(), boss.ID, command(t, "Orphan", "nobody"))
	if !errors.Is(err, ErrAssigneeNotFound) {
		t.Fatalf("err = %v, want ErrAssigneeNotFound", err)
	}
	list, err := f.svc.ListForIdentity(context.Background(), boss.ID)
	if err != nil {
		t.Fatalf("ListForIdentity: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("list = %+v, want empty", list)
	}
}

func TestCreate_UnknownCaller(t *testing.T) {
	f := newFixture(t, Config{})
	f.identity(t, "worker", nil)
	if _, err := f.svc.Create(context.Background(), 424242, command(t, "Ghost", "worker")); !errors.Is(err, ErrUnknownCaller) {
		t.Fatalf("err = %v, want ErrUnknownCaller", err)
	}
}

func TestListForIdentity_OnlyInvolvedTasks(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	boss := f.identity(t, "boss", nil)
	alice := f.identity(t, "alice", &boss.ID)
	bob := f.identity(t, "bobby", &boss.ID)

	mustCreate := func(caller int64, title, assignee string) {
		t.Helper()
		if _, err := f.svc.Create(ctx, caller, command(t, title, assignee)); err != nil {
			t.Fatalf("Create %s: %v", title, err)
		}
	}
	mustCreate(boss.ID, "boss to alice", "alice")
	mustCreate(boss.ID, "boss to bobby", "bobby")
	mustCreate(alice.ID, "alice to self", "alice")
	mustCreate(bob.ID, "bobby to boss", "boss")

	for _, who := range []*identityentity.Identity{boss, alice, bob} {
		list, err := f.svc.ListForIdentity(ctx, who.ID)
		if err != nil {
			t.Fatalf("ListForIdentity(%s): %v", who.Login, err)
		}
		for _, task := range list {
			if !task.Involves(who.ID) {
				t.Fatalf("%s sees unrelated task %+v", who.Login, task)
			}
		}
		want := map[string]int{"boss": 3, "alice": 2, "bobby": 2}[who.Login]
		if len(list) != want {
			t.Fatalf("%s sees %d tasks, want %d", who.Login, len(list), want)
		}
	}

	stranger := f.identity(t, "stranger", nil)
	list, err := f.svc.ListForIdentity(ctx, stranger.ID)
	if err != nil || list == nil || len(list) != 0 {
		t.Fatalf("stranger list = %v (%v), want empty non-nil", list, err)
	}
}

func TestUpdate_RefreshesUpdatedAtKeepsCreator(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	boss := f.identity(t, "boss", nil)
	worker := f.identity(t, "worker", &boss.ID)
	created, err := f.svc.Create(ctx, boss.ID, command(t, "Draft", "worker"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	f.clock.Advance(time.Hour)
	cmd := command(t, "Final", "boss")
	cmd.Status = entity.StatusInProgress
	updated, err := f.svc.Update(ctx, worker.ID, created.ID, cmd)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.CreatorID != boss.ID {
		t.Fatalf("creator changed to %d", updated.CreatorID)
	}
	if updated.AssigneeID != boss.ID || updated.Title != "Final" || updated.Status != entity.StatusInProgress {
		t.Fatalf("updated = %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) || !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("timestamps created=%v updated=%v", updated.CreatedAt, updated.UpdatedAt)
	}

	// the clock has not moved, updatedAt still increases
	again, err := f.svc.Update(ctx, worker.ID, created.ID, cmd)
	if err != nil {
		t.Fatalf("second Update: %v", err)
	}
	if !again.UpdatedAt.After(updated.UpdatedAt) {
		t.Fatalf("updatedAt %v not after %v", again.UpdatedAt, updated.UpdatedAt)
	}
	stored, err := f.svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !stored.UpdatedAt.Equal(again.UpdatedAt) || !stored.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("stored timestamps = %v / %v", stored.CreatedAt, stored.UpdatedAt)
	}
}

func TestUpdate_Errors(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	boss := f.identity(t, "boss", nil)
	created, err := f.svc.Create(ctx, boss.ID, command(t, "Draft", "boss"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.svc.Update(ctx, boss.ID, created.ID+1, command(t, "x", "boss")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing task err = %v", err)
	}
	if _, err := f.svc.Update(ctx, boss.ID, created.ID, command(t, "x", "nobody")); !errors.Is(err, ErrAssigneeNotFound) {
		t.Fatalf("unknown assignee err = %v", err)
	}
	stored, _ := f.svc.Get(ctx, created.ID)
	if stored.Title != "Draft" {
		t.Fatalf("failed update changed title to %q", stored.Title)
	}
}

func TestUpdate_StrictModeRejectsOutsiders(t *testing.T) {
	f := newFixture(t, Config{StrictUpdate: true})
	ctx := context.Background()
	boss := f.identity(t, "boss", nil)
	f.identity(t, "worker", &boss.ID)
	outsider := f.identity(t, "outsider", nil)
	created, err := f.svc.Create(ctx, boss.ID, command(t, "Draft", "worker"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.svc.Update(ctx, outsider.ID, created.ID, command(t, "Hijack", "outsider")); !errors.Is(err, ErrForbidden) {
		t.Fatalf("outsider err = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.Update(ctx, boss.ID, created.ID, command(t, "Edited", "worker")); err != nil {
		t.Fatalf("creator update: %v", err)
	}
}

func TestUpdate_AnyCallerByDefault(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	boss := f.identity(t, "boss", nil)
	outsider := f.identity(t, "outsider", nil)
	created, err := f.svc.Create(ctx, boss.ID, command(t, "Draft", "boss"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.Update(ctx, outsider.ID, created.ID, command(t, "Edited", "boss")); err != nil {
		t.Fatalf("Update by outsider: %v", err)
	}
}
