package order

import (
	"database/sql"
	"encoding/json"
	"time"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	ordersSchema = `
        CREATE TABLE IF NOT EXISTS orders (
            id                TEXT PRIMARY KEY,
            session_id        TEXT NOT NULL,
            provider          TEXT NOT NULL,
            email             TEXT NOT NULL,
            currency          TEXT NOT NULL,
            lines             JSONB NOT NULL,
            quantity          INT NOT NULL,
            total             NUMERIC(14,2) NOT NULL,
            reference         TEXT NOT NULL UNIQUE,
            authorization_url TEXT NOT NULL,
            status            TEXT NOT NULL,
            created_at        TIMESTAMPTZ NOT NULL,
            updated_at        TIMESTAMPTZ NOT NULL
        )`

	orderColumns = `id, session_id, provider, email, currency, lines, quantity, total, reference, authorization_url, status, created_at, updated_at`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) EnsureSchema() error {
	_, err := r.db.Exec(ordersSchema)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(s rowScanner) (Order, error) {
	var ord Order
	var lines []byte
	err := s.Scan(&ord.ID, &ord.SessionID, &ord.Provider, &ord.Email, &ord.Currency, &lines,
		&ord.Quantity, &ord.Total, &ord.Reference, &ord.AuthorizationURL, &ord.Status, &ord.CreatedAt, &ord.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	if err := json.Unmarshal(lines, &ord.Lines); err != nil {
		return Order{}, err
	}
	return ord, nil
}

func (r *PostgresRepository) Create(ord Order) (Order, error) {
	lines, err := json.Marshal(ord.Lines)
	if err != nil {
		return Order{}, err
	}
	_, err = r.db.Exec(`INSERT INTO orders (`+orderColumns+`)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		ord.ID, ord.SessionID, ord.Provider, ord.Email, ord.Currency, lines, ord.Quantity, ord.Total,
		ord.Reference, ord.AuthorizationURL, ord.Status, ord.CreatedAt, ord.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	return ord, nil
}

func (r *PostgresRepository) GetByReference(reference string) (Order, error) {
	row := r.db.QueryRow(`SELECT `+orderColumns+` FROM orders WHERE reference = $1`, reference)
	ord, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return Order{}, ErrNotFound
	}
	return ord, err
}

func (r *PostgresRepository) UpdateStatus(reference string, status Status, at time.Time) (Order, error) {
	row := r.db.QueryRow(`UPDATE orders SET status = $1, updated_at = $2
        WHERE reference = $3 AND status = $4
        RETURNING `+orderColumns, status, at, reference, StatusPending)
	ord, err := scanOrder(row)
	if err != sql.ErrNoRows {
		return ord, err
	}
	current, err := r.GetByReference(reference)
	if err != nil {
		return Order{}, err
	}
	return current, ErrSettled
}

func (r *PostgresRepository) ListBySession(sessionID string) ([]Order, error) {
	rows, err := r.db.Query(`SELECT `+orderColumns+` FROM orders WHERE session_id = $1 ORDER BY created_at DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		ord, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, ord)
	}
	return orders, rows.Err()
}
