package http

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/FilipeAphrody/cartify/internal/domain"
	"github.com/FilipeAphrody/cartify/internal/usecase"
)

// maxImageBytes bounds product image uploads.
const maxImageBytes = 10 << 20 // 10 MB

// ProductService is the slice of the catalog usecase the handlers consume.
type ProductService interface {
	Create(ctx context.Context, input usecase.ProductInput, imageData []byte, filename string) (*domain.Product, error)
	GetAll(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Update(ctx context.Context, id string, input usecase.ProductInput, imageData []byte, filename string) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
}

// ProductHandler is the HTTP delivery layer for the catalog.
type ProductHandler struct {
	svc ProductService
}

// NewProductHandler registers the catalog routes. Mutations require auth;
// update and delete additionally require the admin role.
func NewProductHandler(g *echo.Group, svc ProductService, requireAuth echo.MiddlewareFunc) {
	handler := &ProductHandler{svc: svc}
	adminOnly := RequireRole(domain.RoleAdmin)

	g.POST("/createProduct", handler.Create, requireAuth)
	g.GET("/getAllProducts", handler.GetAll)
	g.GET("/getProductById/:id", handler.GetByID)
	g.PUT("/updateProduct/:id", handler.Update, requireAuth, adminOnly)
	g.DELETE("/deleteProduct/:id", handler.Delete, requireAuth, adminOnly)
}

// bindProductForm reads the multipart catalog fields and optional image.
func bindProductForm(c echo.Context) (usecase.ProductInput, []byte, string, error) {
	var input usecase.ProductInput
	input.Title = c.FormValue("title")
	input.Description = c.FormValue("description")
	input.Category = c.FormValue("category")
	input.Brand = c.FormValue("brand")

	var err error
	if raw := c.FormValue("price"); raw != "" {
		if input.Price, err = strconv.ParseFloat(raw, 64); err != nil {
			return input, nil, "", echo.NewHTTPError(http.StatusBadRequest, "price must be a number")
		}
	}
	if raw := c.FormValue("totalStock"); raw != "" {
		if input.TotalStock, err = strconv.Atoi(raw); err != nil {
			return input, nil, "", echo.NewHTTPError(http.StatusBadRequest, "totalStock must be a number")
		}
	}
	if raw := c.FormValue("averageReview"); raw != "" {
		if input.AverageReview, err = strconv.ParseFloat(raw, 64); err != nil {
			return input, nil, "", echo.NewHTTPError(http.StatusBadRequest, "averageReview must be a number")
		}
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		// The image is optional at binding time; usecases decide whether
		// it is required.
		return input, nil, "", nil
	}
	if fileHeader.Size > maxImageBytes {
		return input, nil, "", echo.NewHTTPError(http.StatusBadRequest, "image exceeds the 10MB limit")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return input, nil, "", echo.NewHTTPError(http.StatusBadRequest, "unreadable image upload")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		return input, nil, "", echo.NewHTTPError(http.StatusBadRequest, "unreadable image upload")
	}

	return input, data, fileHeader.Filename, nil
}

// Create inserts a catalog entry with its image.
func (h *ProductHandler) Create(c echo.Context) error {
	input, image, filename, err := bindProductForm(c)
	if err != nil {
		return err
	}

	product, err := h.svc.Create(c.Request().Context(), input, image, filename)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Product created successfully",
		"product": product,
	})
}

// GetAll lists the catalog.
func (h *ProductHandler) GetAll(c echo.Context) error {
	products, err := h.svc.GetAll(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"message":  "Fetched products successfully",
		"products": products,
	})
}

// GetByID fetches a single product.
func (h *ProductHandler) GetByID(c echo.Context) error {
	product, err := h.svc.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Fetched product by Id",
		"product": product,
	})
}

// Update overwrites a catalog entry, optionally replacing its image.
func (h *ProductHandler) Update(c echo.Context) error {
	input, image, filename, err := bindProductForm(c)
	if err != nil {
		return err
	}

	product, err := h.svc.Update(c.Request().Context(), c.Param("id"), input, image, filename)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Product updated successfully",
		"product": product,
	})
}

// Delete removes a catalog entry and its hosted image.
func (h *ProductHandler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Product deleted successfully",
	})
}
