package order

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
)

var orderCols = []string{"id", "session_id", "provider", "email", "currency", "lines", "quantity", "total", "reference", "authorization_url", "status", "created_at", "updated_at"}

func TestPostgresRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ord := Order{ID: "o1", SessionID: "s1", Provider: "paystack", Email: "a@b.co", Currency: "usd",
		Lines: []Line{{ProductID: 1, Name: "Mat", Quantity: 1}}, Quantity: 1, Total: decimal.NewFromInt(45),
		Reference: "ref-1", AuthorizationURL: "https://pay", Status: StatusPending, CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec("INSERT INTO orders").
		WithArgs("o1", "s1", "paystack", "a@b.co", "usd", sqlmock.AnyArg(), 1, sqlmock.AnyArg(), "ref-1", "https://pay", "pending", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if _, err := NewPostgresRepository(db).Create(ord); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_UpdateStatus(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(orderCols).AddRow("o1", "s1", "paypal", "a@b.co", "gbp", []byte(`[{"productId":2,"quantity":3}]`),
		3, "60.00", "tok", "https://pay", "paid", now, now)
	mock.ExpectQuery("UPDATE orders SET status").WithArgs("paid", now, "tok", "pending").WillReturnRows(rows)

	ord, err := NewPostgresRepository(db).UpdateStatus("tok", StatusPaid, now)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if ord.Status != StatusPaid || len(ord.Lines) != 1 || ord.Lines[0].Quantity != 3 || !ord.Total.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("unexpected order %+v", ord)
	}
}

func TestPostgresRepository_GetByReferenceNotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	mock.ExpectQuery("SELECT .* FROM orders WHERE reference").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	if _, err := NewPostgresRepository(db).GetByReference("missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresRepository_ListBySession(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	now := time.Now().UTC()
	rows := sqlmock.NewRows(orderCols).
		AddRow("o2", "s1", "paystack", "a@b.co", "usd", []byte(`[]`), 1, "10", "r2", "u", "pending", now, now).
		AddRow("o1", "s1", "paystack", "a@b.co", "usd", []byte(`[]`), 1, "10", "r1", "u", "paid", now, now)
	mock.ExpectQuery("SELECT .* FROM orders WHERE session_id").WithArgs("s1").WillReturnRows(rows)

	list, err := NewPostgresRepository(db).ListBySession("s1")
	if err != nil || len(list) != 2 || list[0].ID != "o2" {
		t.Fatalf("unexpected %v %+v", err, list)
	}
}

func TestPostgresRepository_UpdateStatusSettled(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("UPDATE orders SET status").WithArgs("failed", now, "tok", "pending").WillReturnError(sql.ErrNoRows)
	rows := sqlmock.NewRows(orderCols).AddRow("o1", "s1", "paypal", "a@b.co", "gbp", []byte(`[]`),
		3, "60.00", "tok", "https://pay", "paid", now, now)
	mock.ExpectQuery("SELECT .* FROM orders WHERE reference").WithArgs("tok").WillReturnRows(rows)

	ord, err := NewPostgresRepository(db).UpdateStatus("tok", StatusFailed, now)
	if !errors.Is(err, ErrSettled) || ord.Status != StatusPaid {
		t.Fatalf("expected ErrSettled on a paid order, got %v %+v", err, ord)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresRepository_UpdateStatusNotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("UPDATE orders SET status").WithArgs("paid", now, "nope", "pending").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT .* FROM orders WHERE reference").WithArgs("nope").WillReturnError(sql.ErrNoRows)

	if _, err := NewPostgresRepository(db).UpdateStatus("nope", StatusPaid, now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
