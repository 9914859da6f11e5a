package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/FilipeAphrody/cartify/internal/domain"
)

const productColumns = `id, title, description, category, brand, price,
	total_stock, average_review, image_url, image_public_id, created_at, updated_at`

// PostgresProductRepo implements domain.ProductRepository using PostgreSQL.
type PostgresProductRepo struct {
	db *sql.DB
}

// NewPostgresProductRepo creates a new repository instance.
func NewPostgresProductRepo(db *sql.DB) *PostgresProductRepo {
	return &PostgresProductRepo{db: db}
}

func scanProduct(scan func(dest ...any) error) (*domain.Product, error) {
	p := &domain.Product{}
	err := scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.Category,
		&p.Brand,
		&p.Price,
		&p.TotalStock,
		&p.AverageReview,
		&p.Image.URL,
		&p.Image.PublicID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, mapPostgresError(err, "load product")
	}
	return p, nil
}

// Create inserts a new product.
func (r *PostgresProductRepo) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, title, description, category, brand, price,
			total_stock, average_review, image_url, image_public_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		product.ID,
		product.Title,
		product.Description,
		product.Category,
		product.Brand,
		product.Price,
		product.TotalStock,
		product.AverageReview,
		product.Image.URL,
		product.Image.PublicID,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		return mapPostgresError(err, "create product")
	}
	return nil
}

// GetAll returns every product, newest first.
func (r *PostgresProductRepo) GetAll(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapPostgresError(err, "list products")
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPostgresError(err, "list products")
	}
	return products, nil
}

// GetByID retrieves a product by its UUID.
func (r *PostgresProductRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	return scanProduct(row.Scan)
}

// Update overwrites every mutable product field.
func (r *PostgresProductRepo) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET title = $2, description = $3, category = $4, brand = $5, price = $6,
			total_stock = $7, average_review = $8, image_url = $9, image_public_id = $10,
			updated_at = now()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		product.ID,
		product.Title,
		product.Description,
		product.Category,
		product.Brand,
		product.Price,
		product.TotalStock,
		product.AverageReview,
		product.Image.URL,
		product.Image.PublicID,
	)
	if err != nil {
		return mapPostgresError(err, "update product")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a product row.
func (r *PostgresProductRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return mapPostgresError(err, "delete product")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
