package handler

import (
	"net/http"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/dafibh/fintrack/fintrack-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// CategoryHandler handles category-related HTTP requests
type CategoryHandler struct {
	categoryService *service.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// CategoryRequest represents the create and update category request body
type CategoryRequest struct {
	Name      string `json:"name"`
	TaxAmount string `json:"taxAmount"`
	TaxType   string `json:"taxType"`
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID        int32   `json:"id"`
	Name      string  `json:"name"`
	TaxAmount string  `json:"taxAmount"`
	TaxType   string  `json:"taxType"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
	DeletedAt *string `json:"deletedAt,omitempty"`
}

// DeleteCategoryResponse tells how a category was removed
type DeleteCategoryResponse struct {
	Mode string `json:"mode"`
}

func toCategoryResponse(category *domain.Category) CategoryResponse {
	resp := CategoryResponse{
		ID:        category.ID,
		Name:      category.Name,
		TaxAmount: category.TaxAmount.StringFixed(2),
		TaxType:   string(category.TaxType),
		CreatedAt: formatTime(category.CreatedAt),
		UpdatedAt: formatTime(category.UpdatedAt),
	}
	if category.DeletedAt != nil {
		deletedAt := formatTime(*category.DeletedAt)
		resp.DeletedAt = &deletedAt
	}
	return resp
}

// toInput converts the request body into service input
func (r CategoryRequest) toInput() (service.CategoryInput, []ValidationError) {
	taxAmount, err := decimal.NewFromString(r.TaxAmount)
	if err != nil {
		return service.CategoryInput{}, []ValidationError{
			{Field: "taxAmount", Message: "Must be a valid decimal number"},
		}
	}
	return service.CategoryInput{
		Name:      r.Name,
		TaxAmount: taxAmount,
		TaxType:   domain.TaxType(r.TaxType),
	}, nil
}

// CreateCategory godoc
// @Summary Create a category
// @Description Create a transaction category with its tax rule
// @Tags categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CategoryRequest true "Category creation request"
// @Success 201 {object} CategoryResponse
// @Failure 400 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /categories [post]
func (h *CategoryHandler) CreateCategory(c echo.Context) error {
	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	input, fields := req.toInput()
	if fields != nil {
		return NewValidationError(c, "Invalid tax amount", fields)
	}

	category, err := h.categoryService.Create(c.Request().Context(), input)
	if err != nil {
		return handleServiceError(c, err, "create category")
	}

	log.Info().
		Int32("category_id", category.ID).
		Str("name", category.Name).
		Msg("Category created")

	return c.JSON(http.StatusCreated, toCategoryResponse(category))
}

// GetCategories godoc
// @Summary List categories
// @Description Get all active categories ordered by name
// @Tags categories
// @Produce json
// @Security BearerAuth
// @Success 200 {array} CategoryResponse
// @Router /categories [get]
func (h *CategoryHandler) GetCategories(c echo.Context) error {
	categories, err := h.categoryService.FindAll(c.Request().Context())
	if err != nil {
		return handleServiceError(c, err, "get categories")
	}

	response := make([]CategoryResponse, len(categories))
	for i, category := range categories {
		response[i] = toCategoryResponse(category)
	}
	return c.JSON(http.StatusOK, response)
}

// GetCategory godoc
// @Summary Get a category
// @Description Get a category by ID, including soft-deleted ones
// @Tags categories
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Success 200 {object} CategoryResponse
// @Failure 404 {object} ProblemDetails
// @Router /categories/{id} [get]
func (h *CategoryHandler) GetCategory(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidIDError(c, "id")
	}

	category, err := h.categoryService.Find(c.Request().Context(), id)
	if err != nil {
		return handleServiceError(c, err, "get category")
	}
	return c.JSON(http.StatusOK, toCategoryResponse(category))
}

// UpdateCategory godoc
// @Summary Update a category
// @Description Replace the name and tax rule of a category
// @Tags categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Param request body CategoryRequest true "Category update request"
// @Success 200 {object} CategoryResponse
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /categories/{id} [put]
func (h *CategoryHandler) UpdateCategory(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidIDError(c, "id")
	}

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	input, fields := req.toInput()
	if fields != nil {
		return NewValidationError(c, "Invalid tax amount", fields)
	}

	category, err := h.categoryService.Update(c.Request().Context(), id, input)
	if err != nil {
		return handleServiceError(c, err, "update category")
	}

	log.Info().
		Int32("category_id", category.ID).
		Str("name", category.Name).
		Msg("Category updated")

	return c.JSON(http.StatusOK, toCategoryResponse(category))
}

// CanDeleteCategory godoc
// @Summary Check category deletion
// @Description Tell whether deleting the category would be hard or soft
// @Tags categories
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Success 200 {object} service.DeleteCheck
// @Failure 404 {object} ProblemDetails
// @Router /categories/{id}/can-delete [get]
func (h *CategoryHandler) CanDeleteCategory(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidIDError(c, "id")
	}

	check, err := h.categoryService.CanDelete(c.Request().Context(), id)
	if err != nil {
		return handleServiceError(c, err, "check category deletion")
	}
	return c.JSON(http.StatusOK, check)
}

// DeleteCategory godoc
// @Summary Delete a category
// @Description Hard-delete an unused category or soft-delete a used one
// @Tags categories
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Success 200 {object} DeleteCategoryResponse
// @Failure 404 {object} ProblemDetails
// @Router /categories/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidIDError(c, "id")
	}

	mode, err := h.categoryService.Delete(c.Request().Context(), id)
	if err != nil {
		return handleServiceError(c, err, "delete category")
	}

	log.Info().
		Int32("category_id", id).
		Str("mode", string(mode)).
		Msg("Category deleted")

	return c.JSON(http.StatusOK, DeleteCategoryResponse{Mode: string(mode)})
}
