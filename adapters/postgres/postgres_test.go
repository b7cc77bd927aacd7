package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/AR-937/framevault-app/domain/customer"
	"github.com/AR-937/framevault-app/domain/download"
	"github.com/DATA-DOG/go-sqlmock"
)

func newMock(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return Wrap(db), mock
}

func testEvent() download.Event {
	return download.Event{
		ID:        "dl-1",
		UserID:    "user-1",
		Image:     json.RawMessage(`{"id":"img_1"}`),
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestCustomerStore_GetByUserID(t *testing.T) {
	now := time.Now().UTC()
	cols := []string{"user_id", "stripe_customer_id", "subscription_id", "total_downloads", "created_at", "updated_at"}

	tests := []struct {
		name      string
		setup     func(sqlmock.Sqlmock)
		wantErr   error
		wantTotal int64
		wantSub   string
	}{
		{
			name: "found",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM stripe_customers").
					WithArgs("user-1").
					WillReturnRows(sqlmock.NewRows(cols).AddRow("user-1", "cus_1", "sub_1", int64(3), now, now))
			},
			wantTotal: 3,
			wantSub:   "sub_1",
		},
		{
			name: "no subscription",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM stripe_customers").
					WithArgs("user-1").
					WillReturnRows(sqlmock.NewRows(cols).AddRow("user-1", "cus_1", "", int64(0), now, now))
			},
		},
		{
			name: "not found",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM stripe_customers").
					WithArgs("user-1").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: customer.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			tt.setup(mock)

			got, err := NewCustomerStore(db).GetByUserID(context.Background(), "user-1")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("GetByUserID() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("GetByUserID() error = %v", err)
			}
			if got.TotalDownloads != tt.wantTotal {
				t.Errorf("TotalDownloads = %d, want %d", got.TotalDownloads, tt.wantTotal)
			}
			if got.SubscriptionID != tt.wantSub {
				t.Errorf("SubscriptionID = %q, want %q", got.SubscriptionID, tt.wantSub)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestCustomerStore_LookupFailure(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT (.+) FROM stripe_customers").
		WillReturnError(errors.New("connection reset"))

	_, err := NewCustomerStore(db).GetByUserID(context.Background(), "user-1")
	if err == nil || errors.Is(err, customer.ErrNotFound) {
		t.Errorf("GetByUserID() error = %v, want a non-not-found error", err)
	}
}

func TestCustomerStore_SetTotalDownloads(t *testing.T) {
	db, mock := newMock(t)
	store := NewCustomerStore(db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE stripe_customers SET total_downloads = \\$1").
		WithArgs(int64(5), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE stripe_customers SET total_downloads = \\$1").
		WithArgs(int64(5), "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.SetTotalDownloads(ctx, "user-1", 5); err != nil {
		t.Fatalf("SetTotalDownloads() error = %v", err)
	}
	if err := store.SetTotalDownloads(ctx, "ghost", 5); !errors.Is(err, customer.ErrNotFound) {
		t.Errorf("SetTotalDownloads(ghost) error = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCustomerStore_IncrementDownloads(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SET total_downloads = total_downloads \\+ 1").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"total_downloads"}).AddRow(int64(9)))

	total, err := NewCustomerStore(db).IncrementDownloads(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("IncrementDownloads() error = %v", err)
	}
	if total != 9 {
		t.Errorf("IncrementDownloads() = %d, want 9", total)
	}
}

func TestDownloadStore_Insert(t *testing.T) {
	db, mock := newMock(t)
	e := testEvent()

	mock.ExpectExec("INSERT INTO downloads").
		WithArgs(e.ID, e.UserID, `{"id":"img_1"}`, e.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM downloads").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))

	store := NewDownloadStore(db)
	if err := store.Insert(context.Background(), e); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	n, err := store.CountByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CountByUser() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CountByUser() = %d, want 1", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDownloadStore_ListByUser(t *testing.T) {
	db, mock := newMock(t)
	older := testEvent()
	newer := testEvent()
	newer.ID = "dl-2"
	newer.CreatedAt = older.CreatedAt.Add(time.Minute)

	cols := []string{"id", "user_id", "image", "created_at"}
	mock.ExpectQuery("SELECT (.+) FROM downloads WHERE user_id = \\$1").
		WithArgs("user-1", 10).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(newer.ID, newer.UserID, `{"id":"img_1"}`, newer.CreatedAt).
			AddRow(older.ID, older.UserID, `{"id":"img_1"}`, older.CreatedAt))
	mock.ExpectQuery("SELECT (.+) FROM downloads WHERE user_id = \\$1").
		WithArgs("user-2", 100).
		WillReturnError(errors.New("connection reset"))

	store := NewDownloadStore(db)
	events, err := store.ListByUser(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(events) != 2 || events[0].ID != "dl-2" || events[1].ID != "dl-1" {
		t.Fatalf("ListByUser() = %+v", events)
	}
	if string(events[0].Image) != `{"id":"img_1"}` {
		t.Errorf("Image = %s", events[0].Image)
	}

	if _, err := store.ListByUser(context.Background(), "user-2", 0); err == nil {
		t.Error("ListByUser() should surface query errors")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLedger_RecordDownload(t *testing.T) {
	db, mock := newMock(t)
	e := testEvent()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO downloads").
		WithArgs(e.ID, e.UserID, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SET total_downloads = total_downloads \\+ 1").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"total_downloads"}).AddRow(int64(4)))
	mock.ExpectCommit()

	total, err := NewLedger(db).RecordDownload(context.Background(), e)
	if err != nil {
		t.Fatalf("RecordDownload() error = %v", err)
	}
	if total != 4 {
		t.Errorf("RecordDownload() = %d, want 4", total)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLedger_RollsBack(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "insert fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO downloads").WillReturnError(errors.New("disk full"))
				mock.ExpectRollback()
			},
		},
		{
			name: "customer missing",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO downloads").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery("SET total_downloads = total_downloads \\+ 1").WillReturnError(sql.ErrNoRows)
				mock.ExpectRollback()
			},
			wantErr: customer.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			tt.setup(mock)

			_, err := NewLedger(db).RecordDownload(context.Background(), testEvent())
			if err == nil {
				t.Fatal("RecordDownload() should fail")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("RecordDownload() error = %v, want %v", err, tt.wantErr)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}
