package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_storefront/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"
)

const productColumns = `id, name, price, currency, stock, discontinued, category`

type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(dbPath string) (*CatalogRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every connection to ":memory:" would see its own empty database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &CatalogRepository{db: db}, nil
}

func (r *CatalogRepository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *CatalogRepository) ListProducts(ctx context.Context) ([]domain.ProductSnapshot, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	return scanProducts(rows)
}

// SearchProducts matches query case-insensitively against name and category.
func (r *CatalogRepository) SearchProducts(ctx context.Context, query string) ([]domain.ProductSnapshot, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	stmt := `SELECT ` + productColumns + ` FROM products
		WHERE lower(name) LIKE $1 ESCAPE '\' OR lower(category) LIKE $1 ESCAPE '\'
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, stmt, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return scanProducts(rows)
}

func (r *CatalogRepository) GetProduct(ctx context.Context, id int64) (*domain.ProductSnapshot, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	var p domain.ProductSnapshot
	err := scanProduct(r.db.QueryRowContext(ctx, query, id), &p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return &p, nil
}

// SetDiscontinued flags a product as no longer purchasable.
func (r *CatalogRepository) SetDiscontinued(ctx context.Context, id int64, discontinued bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE products SET discontinued = $1 WHERE id = $2`, discontinued, id)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *CatalogRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner, p *domain.ProductSnapshot) error {
	return row.Scan(
		&p.ID,
		&p.Name,
		&p.Price,
		&p.Currency,
		&p.Stock,
		&p.Discontinued,
		&p.Category,
	)
}

func scanProducts(rows *sql.Rows) ([]domain.ProductSnapshot, error) {
	defer rows.Close()

	products := []domain.ProductSnapshot{}
	for rows.Next() {
		var p domain.ProductSnapshot
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
