package database

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"price-delta/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestInitializeRequiresURL(t *testing.T) {
	if _, err := Initialize("", zerolog.Nop()); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func newMockArchive(t *testing.T) (*Archive, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}
	return NewArchive(db), mock
}

func sampleRun() *models.ReportRun {
	return &models.ReportRun{
		RunID:            "5f0c7a4e-1b7e-4c55-9d43-0b8f3f1f2a10",
		ReportFile:       "price_delta_20261019_080000.csv",
		FilterMode:       "absolute",
		ThresholdRatio:   decimal.RequireFromString("0.05"),
		BenignDifference: decimal.RequireFromString("6.50"),
		SupplierCount:    2,
		RecordCount:      2,
	}
}

func sampleRows(runID string) []models.PriceDeltaRow {
	return []models.PriceDeltaRow{
		{RunID: runID, Position: 1, ProductID: "ABC123", SupplierCode: "ABC", PriceDifference: decimal.RequireFromString("8.00")},
		{RunID: runID, Position: 2, ProductID: "XYZ123", SupplierCode: "XYZ", PriceDifference: decimal.RequireFromString("-30.00")},
	}
}

var (
	insertRun  = regexp.QuoteMeta("INSERT INTO `report_runs`")
	insertRows = regexp.QuoteMeta("INSERT INTO `price_delta_rows`")
)

func TestSaveRun(t *testing.T) {
	archive, mock := newMockArchive(t)
	run := sampleRun()

	mock.ExpectBegin()
	mock.ExpectExec(insertRun).WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(insertRows).WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectCommit()

	if err := archive.SaveRun(context.Background(), run, sampleRows(run.RunID)); err != nil {
		t.Fatalf("SaveRun error: %v", err)
	}
	if run.ID != 7 {
		t.Fatalf("expected run id 7 from the insert, got %d", run.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSaveRunWithoutRows(t *testing.T) {
	archive, mock := newMockArchive(t)
	run := sampleRun()
	run.RecordCount = 0

	mock.ExpectBegin()
	mock.ExpectExec(insertRun).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := archive.SaveRun(context.Background(), run, nil); err != nil {
		t.Fatalf("SaveRun error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSaveRunRollsBackOnRowFailure(t *testing.T) {
	archive, mock := newMockArchive(t)
	run := sampleRun()
	boom := errors.New("table is full")

	mock.ExpectBegin()
	mock.ExpectExec(insertRun).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(insertRows).WillReturnError(boom)
	mock.ExpectRollback()

	err := archive.SaveRun(context.Background(), run, sampleRows(run.RunID))
	if !errors.Is(err, boom) {
		t.Fatalf("expected row insert error, got %v", err)
	}
	if !strings.Contains(err.Error(), run.RunID) {
		t.Fatalf("expected error to name the run, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestHistory(t *testing.T) {
	archive, mock := newMockArchive(t)
	newer := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	older := newer.AddDate(0, 0, -7)

	rows := sqlmock.NewRows([]string{"id", "run_id", "position", "product_id", "supplier_code", "price_difference", "created_at"}).
		AddRow(12, "run-b", 1, "ABC123", "ABC", "8.00", newer).
		AddRow(3, "run-a", 4, "ABC123", "ABC", "-2.50", older)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `price_delta_rows` WHERE product_id = ? ORDER BY created_at DESC,id DESC LIMIT")).
		WillReturnRows(rows)

	got, err := archive.History(context.Background(), "ABC123", 0)
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if len(got) != 2 || got[0].RunID != "run-b" || got[1].RunID != "run-a" {
		t.Fatalf("unexpected history %+v", got)
	}
	if !got[1].PriceDifference.Equal(decimal.RequireFromString("-2.50")) {
		t.Fatalf("unexpected difference %s", got[1].PriceDifference)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestHistoryQueryError(t *testing.T) {
	archive, mock := newMockArchive(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `price_delta_rows`")).WillReturnError(errors.New("gone away"))

	if _, err := archive.History(context.Background(), "ABC123", 5); err == nil || !strings.Contains(err.Error(), "ABC123") {
		t.Fatalf("expected history error naming the product, got %v", err)
	}
}
