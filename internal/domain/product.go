package domain

import (
	"context"
	"time"
)

// ProductImage is a hosted image reference. PublicID addresses the asset on
// the media host for later replacement or deletion.
type ProductImage struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

// Product is a catalog entry.
type Product struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Category      string       `json:"category"`
	Brand         string       `json:"brand"`
	Price         float64      `json:"price"`
	TotalStock    int          `json:"totalStock"`
	AverageReview float64      `json:"averageReview"`
	Image         ProductImage `json:"image"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// ProductRepository defines the contract for catalog persistence.
type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	GetAll(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id string) error
}

// MediaStore uploads and deletes hosted product images.
type MediaStore interface {
	Upload(ctx context.Context, data []byte, filename string) (*ProductImage, error)
	Destroy(ctx context.Context, publicID string) error
}
