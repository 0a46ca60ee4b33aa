package database

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"attendance_poll_bot/internal/domain/attendance"
	"attendance_poll_bot/internal/domain/calendar"
)

// openTestDB connects to TEST_DATABASE_URL and resets the tables. Tests are
// skipped when the variable is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping PostgreSQL integration test")
	}
	db, err := NewPostgresConnection(dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := db.ExecContext(ctx, `TRUNCATE holidays, attendance_responses RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return db
}

func TestPostgresResponseRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewPostgresResponseRepository(db)
	date := calendar.NewDate(2025, time.November, 24)
	first := time.Date(2025, time.November, 24, 11, 0, 0, 0, time.UTC)
	start := calendar.MustClock("20:30")

	if _, err := repo.Upsert(ctx, date, attendance.Answer{UserID: 7, DisplayName: "Aki", CanAttend: false}, first); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := repo.Upsert(ctx, date, attendance.Answer{UserID: 8, CanAttend: true}, first); err != nil {
		t.Fatalf("insert second user: %v", err)
	}
	saved, err := repo.Upsert(ctx, date, attendance.Answer{UserID: 7, CanAttend: true, StartTime: &start}, first.Add(time.Minute))
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if saved.DisplayName != "Aki" {
		t.Fatalf("an answer without a name must keep the stored one, got %q", saved.DisplayName)
	}
	if !saved.CreatedAt.Equal(first) || !saved.UpdatedAt.Equal(first.Add(time.Minute)) {
		t.Fatalf("unexpected timestamps: %+v", saved)
	}

	list, err := repo.ListByDate(ctx, date)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].UserID != 7 || list[0].StartTime == nil || *list[0].StartTime != start || list[0].EndTime != nil {
		t.Fatalf("unexpected bucket: %+v", list)
	}
}

func TestPostgresHolidayRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewPostgresHolidayRepository(db)
	d := calendar.NewDate(2025, time.November, 24)

	if err := repo.Put(ctx, d, "初期"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := repo.Put(ctx, d, "振替休日"); err != nil {
		t.Fatalf("relabel: %v", err)
	}
	all, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(all) != 1 || all[d] != "振替休日" {
		t.Fatalf("unexpected holidays: %v", all)
	}
	if err := repo.Delete(ctx, d); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if all, _ := repo.LoadAll(ctx); len(all) != 0 {
		t.Fatalf("expected empty table, got %v", all)
	}
}
