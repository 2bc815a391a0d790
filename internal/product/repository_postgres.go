package product

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresRepository reads the catalog from the `products` table.
// Table layout expected:
//
//	id serial primary key,
//	name text,
//	price_usd numeric, price_naira numeric, price_gbp numeric,
//	image text,
//	category text,
//	in_stock boolean
type PostgresRepository struct {
	db *sql.DB
}

const (
	createProductsTable = `
		CREATE TABLE IF NOT EXISTS products (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			price_usd NUMERIC NOT NULL DEFAULT 0,
			price_naira NUMERIC NOT NULL DEFAULT 0,
			price_gbp NUMERIC NOT NULL DEFAULT 0,
			image TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			in_stock BOOLEAN NOT NULL DEFAULT TRUE
		)
	`
	listProductsQuery = `
		SELECT id, name, price_usd, price_naira, price_gbp, image, category, in_stock
		FROM products
		ORDER BY id
	`
	getProductByIDQuery = `
		SELECT id, name, price_usd, price_naira, price_gbp, image, category, in_stock
		FROM products
		WHERE id = $1
	`
	listProductsByIDsQuery = `
		SELECT id, name, price_usd, price_naira, price_gbp, image, category, in_stock
		FROM products
		WHERE id = ANY($1::int[])
		ORDER BY array_position($1::int[], id)
	`
	listCategoriesQuery = `SELECT DISTINCT category FROM products WHERE category <> '' ORDER BY category`
	countProductsQuery  = `SELECT COUNT(*) FROM products`
	insertProductQuery  = `
		INSERT INTO products (id, name, price_usd, price_naira, price_gbp, image, category, in_stock)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO NOTHING
	`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the products table when missing.
func (r *PostgresRepository) EnsureSchema() error {
	if _, err := r.db.Exec(createProductsTable); err != nil {
		return fmt.Errorf("create products table: %w", err)
	}
	return nil
}

// SeedIfEmpty inserts seed only when the table has no rows. It returns the
// number of inserted products.
func (r *PostgresRepository) SeedIfEmpty(seed []Product) (int, error) {
	var count int
	if err := r.db.QueryRow(countProductsQuery).Scan(&count); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	if count > 0 {
		return 0, nil
	}
	inserted := 0
	for _, p := range seed {
		if _, err := r.db.Exec(insertProductQuery, p.ID, p.Name, p.Price.USD, p.Price.Naira, p.Price.GBP, p.Image, p.Category, p.InStock); err != nil {
			return inserted, fmt.Errorf("seed product %d: %w", p.ID, err)
		}
		inserted++
	}
	return inserted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(s rowScanner) (Product, error) {
	var p Product
	err := s.Scan(&p.ID, &p.Name, &p.Price.USD, &p.Price.Naira, &p.Price.GBP, &p.Image, &p.Category, &p.InStock)
	return p, err
}

func (r *PostgresRepository) List() ([]Product, error) {
	rows, err := r.db.Query(listProductsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetByID(id int) (Product, error) {
	p, err := scanProduct(r.db.QueryRow(getProductByIDQuery, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *PostgresRepository) ListByIDs(ids []int) ([]Product, error) {
	if len(ids) == 0 {
		return []Product{}, nil
	}
	rows, err := r.db.Query(listProductsByIDsQuery, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Product, 0, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Categories() ([]string, error) {
	rows, err := r.db.Query(listCategoriesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
