package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"studycycle/backend/internal/db"
	"studycycle/backend/internal/model"
	"studycycle/backend/internal/repository"
	"studycycle/backend/migrations"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})
	if _, err := db.RunMigrations(database, migrations.Files); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database
}

func createUser(t *testing.T, database *sql.DB, id string) {
	t.Helper()
	now := time.Now().UTC()
	err := repository.NewUserRepository(database).Create(context.Background(), &model.User{
		ID:           id,
		Email:        id + "@example.com",
		PasswordHash: "x",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
}

func TestMigrationsApplyOnce(t *testing.T) {
	database := openTestDB(t)
	applied, err := db.RunMigrations(database, migrations.Files)
	if err != nil {
		t.Fatalf("rerun migrations: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("expected no migrations on rerun, got %v", applied)
	}
}

func TestSubjectsListInPlanOrder(t *testing.T) {
	database := openTestDB(t)
	createUser(t, database, "u1")
	repo := repository.NewSubjectRepository(database)
	ctx := context.Background()

	now := time.Now().UTC()
	for i, name := range []string{"Physics", "Algebra"} {
		order, err := repo.NextOrder(ctx, "u1")
		if err != nil {
			t.Fatalf("next order: %v", err)
		}
		if order != i {
			t.Fatalf("expected order %d, got %d", i, order)
		}
		if err := repo.Create(ctx, &model.Subject{
			ID: name, UserID: "u1", Name: name, TimeGoalMinutes: 60, Order: order, CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			t.Fatalf("create subject: %v", err)
		}
	}

	algebra, err := repo.Get(ctx, "u1", "Algebra")
	if err != nil {
		t.Fatalf("get subject: %v", err)
	}
	algebra.Order = -1
	algebra.UpdatedAt = now
	if err := repo.Update(ctx, algebra); err != nil {
		t.Fatalf("update subject: %v", err)
	}

	subjects, err := repo.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list subjects: %v", err)
	}
	if len(subjects) != 2 || subjects[0].ID != "Algebra" || subjects[1].ID != "Physics" {
		t.Fatalf("unexpected order %+v", subjects)
	}

	if err := repo.Delete(ctx, "u1", "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting missing subject, got %v", err)
	}
}

func TestSettingsUpsert(t *testing.T) {
	database := openTestDB(t)
	createUser(t, database, "u1")
	repo := repository.NewSettingsRepository(database)
	ctx := context.Background()

	if _, err := repo.Get(ctx, "u1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	settings := &model.UserSettings{UserID: "u1", Settings: model.DefaultSettings(), UpdatedAt: time.Now().UTC()}
	if err := repo.Upsert(ctx, settings); err != nil {
		t.Fatalf("insert settings: %v", err)
	}
	settings.StudyDurationMinutes = 25
	settings.SoundEnabled = false
	if err := repo.Upsert(ctx, settings); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	got, err := repo.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if got.StudyDurationMinutes != 25 || got.SoundEnabled || got.SoundID != model.DefaultSoundID {
		t.Fatalf("unexpected settings %+v", got)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	database := openTestDB(t)
	repo := repository.NewSnapshotRepository(database)
	ctx := context.Background()

	if _, err := repo.GetTimer(ctx, "u1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	end := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	if err := repo.SaveTimer(ctx, "u1", &model.TimerSnapshot{
		EndAt: &end, Mode: model.ModeBreak, TimeLeftSeconds: 300, IsRunning: true,
		BlockType: model.BlockLongBreak, SequenceIndex: 7, UpdatedAt: end,
	}); err != nil {
		t.Fatalf("save timer: %v", err)
	}
	snap, err := repo.GetTimer(ctx, "u1")
	if err != nil {
		t.Fatalf("get timer: %v", err)
	}
	if snap.EndAt == nil || !snap.EndAt.Equal(end) || !snap.IsRunning || snap.BlockType != model.BlockLongBreak || snap.SequenceIndex != 7 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Completed {
		t.Fatal("running snapshot should not be completed")
	}

	if err := repo.SaveTimer(ctx, "u1", &model.TimerSnapshot{
		Mode: model.ModeIdle, Completed: true, BlockType: model.BlockStudy, SequenceIndex: 8, UpdatedAt: end,
	}); err != nil {
		t.Fatalf("save completed timer: %v", err)
	}
	snap, err = repo.GetTimer(ctx, "u1")
	if err != nil {
		t.Fatalf("get completed timer: %v", err)
	}
	if !snap.Completed || snap.IsRunning || snap.EndAt != nil || snap.SequenceIndex != 8 {
		t.Fatalf("unexpected completed snapshot %+v", snap)
	}

	if err := repo.SaveCycle(ctx, "u1", &model.CycleRecord{
		PlanFingerprint: "fp", CurrentIndex: 2, Progress: map[string]int{"a": 50}, UpdatedAt: end,
	}); err != nil {
		t.Fatalf("save cycle: %v", err)
	}
	rec, err := repo.GetCycle(ctx, "u1")
	if err != nil {
		t.Fatalf("get cycle: %v", err)
	}
	if rec.PlanFingerprint != "fp" || rec.Progress["a"] != 50 || len(rec.History) != 0 {
		t.Fatalf("unexpected cycle record %+v", rec)
	}

	if err := repo.Delete(ctx, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetCycle(ctx, "u1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected deleted cycle, got %v", err)
	}
}
