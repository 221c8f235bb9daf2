package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/cadvision/backend/internal/domain"
)

// SQLiteStore persists product records in a local SQLite database. It is
// both the registration store and the local catalog tier of the cascade.
type SQLiteStore struct {
	conn *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path. Use ":memory:"
// for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{conn: conn}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		vertical TEXT NOT NULL,
		gtin TEXT,
		title TEXT NOT NULL,
		brand TEXT,
		category TEXT,
		subcategory TEXT,
		price TEXT,
		ncm TEXT,
		cest TEXT,
		attributes TEXT,
		fingerprint TEXT,
		confidence REAL NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_products_gtin
		ON products (gtin) WHERE gtin != '';
	CREATE INDEX IF NOT EXISTS idx_products_category ON products (category);
	`
	_, err := s.conn.Exec(query)
	return err
}

// Close releases the underlying connection pool.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// Save inserts a product record. A second record with the same non-empty
// GTIN fails with domain.ErrDuplicateGTIN.
func (s *SQLiteStore) Save(ctx context.Context, p *domain.Product) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	attrs, err := marshalAttributes(p.Attributes)
	if err != nil {
		return fmt.Errorf("failed to encode attributes: %w", err)
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO products
			(id, vertical, gtin, title, brand, category, subcategory,
			 price, ncm, cest, attributes, fingerprint, confidence,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), string(p.Vertical), p.GTIN, p.Title, p.Brand,
		p.Category, p.Subcategory, priceString(p.Price), p.NCM, p.CEST,
		attrs, p.Fingerprint, p.Confidence, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateGTIN, p.GTIN)
		}
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

// Update overwrites an existing record in place. Changing the GTIN to one
// another record already carries fails with domain.ErrDuplicateGTIN.
func (s *SQLiteStore) Update(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()

	attrs, err := marshalAttributes(p.Attributes)
	if err != nil {
		return fmt.Errorf("failed to encode attributes: %w", err)
	}

	res, err := s.conn.ExecContext(ctx, `
		UPDATE products SET
			vertical = ?, gtin = ?, title = ?, brand = ?, category = ?,
			subcategory = ?, price = ?, ncm = ?, cest = ?, attributes = ?,
			fingerprint = ?, confidence = ?, updated_at = ?
		WHERE id = ?`,
		string(p.Vertical), p.GTIN, p.Title, p.Brand, p.Category,
		p.Subcategory, priceString(p.Price), p.NCM, p.CEST, attrs,
		p.Fingerprint, p.Confidence, p.UpdatedAt, p.ID.String())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateGTIN, p.GTIN)
		}
		return fmt.Errorf("failed to update product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// GetByID looks a product up by its record ID.
func (s *SQLiteStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	row := s.conn.QueryRowContext(ctx,
		selectColumns+` FROM products WHERE id = ?`, id.String())
	return scanProduct(row)
}

// FindByGTIN looks a product up by its GTIN code.
func (s *SQLiteStore) FindByGTIN(ctx context.Context, gtin string) (*domain.Product, error) {
	if gtin == "" {
		return nil, domain.ErrRecordNotFound
	}
	row := s.conn.QueryRowContext(ctx,
		selectColumns+` FROM products WHERE gtin = ?`, gtin)
	return scanProduct(row)
}

// List returns a page of products plus the unfiltered-by-page total count.
func (s *SQLiteStore) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	if filter.Category != "" {
		where += " AND category = ?"
		args = append(args, filter.Category)
	}
	if filter.Brand != "" {
		where += " AND brand = ?"
		args = append(args, filter.Brand)
	}

	var total int
	if err := s.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	query := selectColumns + " FROM products" + where +
		" ORDER BY " + orderClause(filter.Sort) + " LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read products: %w", err)
	}
	return products, total, nil
}

// Delete removes a product record by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.conn.ExecContext(ctx,
		`DELETE FROM products WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

const selectColumns = `SELECT id, vertical, gtin, title, brand, category,
	subcategory, price, ncm, cest, attributes, fingerprint, confidence,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p          domain.Product
		id         string
		vertical   string
		price      string
		attributes string
	)
	err := row.Scan(&id, &vertical, &p.GTIN, &p.Title, &p.Brand,
		&p.Category, &p.Subcategory, &price, &p.NCM, &p.CEST,
		&attributes, &p.Fingerprint, &p.Confidence,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}

	p.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid product id %q: %w", id, err)
	}
	p.Vertical = domain.Vertical(vertical)
	if price != "" {
		d, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("invalid stored price %q: %w", price, err)
		}
		p.Price = &d
	}
	if attributes != "" {
		if err := json.Unmarshal([]byte(attributes), &p.Attributes); err != nil {
			return nil, fmt.Errorf("invalid stored attributes: %w", err)
		}
	}
	return &p, nil
}

func orderClause(sort string) string {
	switch sort {
	case "oldest":
		return "created_at ASC"
	case "name":
		return "title COLLATE NOCASE ASC"
	case "name_desc":
		return "title COLLATE NOCASE DESC"
	default:
		return "created_at DESC"
	}
}

func priceString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func marshalAttributes(attrs map[string]string) (string, error) {
	if len(attrs) == 0 {
		return "", nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
