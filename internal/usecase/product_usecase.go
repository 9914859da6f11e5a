package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FilipeAphrody/cartify/internal/domain"
)

// ProductInput carries the catalog fields for create and update operations.
type ProductInput struct {
	Title         string
	Description   string
	Category      string
	Brand         string
	Price         float64
	TotalStock    int
	AverageReview float64
}

func (in *ProductInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Brand = strings.TrimSpace(in.Brand)

	if in.Title == "" || in.Description == "" || in.Category == "" || in.Brand == "" {
		return fmt.Errorf("%w: all fields are required", domain.ErrValidation)
	}
	if in.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", domain.ErrValidation)
	}
	if in.TotalStock < 0 {
		return fmt.Errorf("%w: totalStock must not be negative", domain.ErrValidation)
	}
	if in.AverageReview < 0 || in.AverageReview > 5 {
		return fmt.Errorf("%w: averageReview must be between 0 and 5", domain.ErrValidation)
	}
	return nil
}

// ProductUsecase implements catalog CRUD with image hosting on the media
// store.
type ProductUsecase struct {
	products domain.ProductRepository
	media    domain.MediaStore
	logger   *zap.Logger
}

// NewProductUsecase wires the catalog service.
func NewProductUsecase(products domain.ProductRepository, media domain.MediaStore, logger *zap.Logger) *ProductUsecase {
	return &ProductUsecase{products: products, media: media, logger: logger}
}

// Create uploads the image and inserts the product. The image is required.
func (p *ProductUsecase) Create(ctx context.Context, input ProductInput, imageData []byte, filename string) (*domain.Product, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if len(imageData) == 0 {
		return nil, fmt.Errorf("%w: product image is required", domain.ErrValidation)
	}

	image, err := p.media.Upload(ctx, imageData, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: image upload: %v", domain.ErrDependency, err)
	}

	product := &domain.Product{
		ID:            uuid.NewString(),
		Title:         input.Title,
		Description:   input.Description,
		Category:      input.Category,
		Brand:         input.Brand,
		Price:         input.Price,
		TotalStock:    input.TotalStock,
		AverageReview: input.AverageReview,
		Image:         *image,
	}
	if err := p.products.Create(ctx, product); err != nil {
		return nil, err
	}

	p.logger.Info("product created", zap.String("product_id", product.ID), zap.String("title", product.Title))
	return product, nil
}

// GetAll returns the full catalog.
func (p *ProductUsecase) GetAll(ctx context.Context) ([]domain.Product, error) {
	return p.products.GetAll(ctx)
}

// GetByID returns a single product.
func (p *ProductUsecase) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return p.products.GetByID(ctx, id)
}

// Update overwrites the catalog fields and, when new image data is
// provided, replaces the hosted image (destroying the old asset first).
func (p *ProductUsecase) Update(ctx context.Context, id string, input ProductInput, imageData []byte, filename string) (*domain.Product, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	product, err := p.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if len(imageData) > 0 {
		if product.Image.PublicID != "" {
			if err := p.media.Destroy(ctx, product.Image.PublicID); err != nil {
				p.logger.Warn("old image cleanup failed",
					zap.String("product_id", id),
					zap.String("public_id", product.Image.PublicID),
					zap.Error(err))
			}
		}
		image, err := p.media.Upload(ctx, imageData, filename)
		if err != nil {
			return nil, fmt.Errorf("%w: image upload: %v", domain.ErrDependency, err)
		}
		product.Image = *image
	}

	product.Title = input.Title
	product.Description = input.Description
	product.Category = input.Category
	product.Brand = input.Brand
	product.Price = input.Price
	product.TotalStock = input.TotalStock
	product.AverageReview = input.AverageReview

	if err := p.products.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// Delete removes the product and its hosted image.
func (p *ProductUsecase) Delete(ctx context.Context, id string) error {
	product, err := p.products.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if product.Image.PublicID != "" {
		if err := p.media.Destroy(ctx, product.Image.PublicID); err != nil {
			p.logger.Warn("image cleanup failed",
				zap.String("product_id", id),
				zap.String("public_id", product.Image.PublicID),
				zap.Error(err))
		}
	}

	if err := p.products.Delete(ctx, id); err != nil {
		return err
	}

	p.logger.Info("product deleted", zap.String("product_id", id))
	return nil
}
