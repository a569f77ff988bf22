package usage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGStoreConsumeLocksRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	start := time.Now().UTC().Add(-time.Hour)
	end := start.Add(7 * 24 * time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"used", "period_start", "period_end"}).AddRow(3, start, end))
	mock.ExpectExec("UPDATE usage_counters SET used").
		WithArgs(4, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u, err := NewPGStore(db).Consume(context.Background(), "user-1", 1, 10, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if u.Used != 4 {
		t.Fatalf("expected used=4, got %d", u.Used)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreConsumeOverLimitRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	start := time.Now().UTC().Add(-time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"used", "period_start", "period_end"}).AddRow(10, start, start.Add(time.Hour*24)))
	mock.ExpectRollback()

	_, err = NewPGStore(db).Consume(context.Background(), "user-1", 1, 10, 24*time.Hour)
	if !errors.Is(err, ErrLimitReached) {
		t.Fatalf("expected ErrLimitReached, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreRefundFloorsAtZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	start := time.Now().UTC().Add(-time.Hour)
	end := start.Add(7 * 24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("GREATEST(used - $1, 0)")).
		WithArgs(1, "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"used", "period_start", "period_end"}).AddRow(2, start, end))

	u, err := NewPGStore(db).Refund(context.Background(), "user-1", 1, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if u.Used != 2 {
		t.Fatalf("expected used=2, got %d", u.Used)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
