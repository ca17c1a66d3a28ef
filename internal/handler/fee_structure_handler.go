package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-fee-api/internal/models"
	"github.com/noah-isme/school-fee-api/internal/service"
	appErrors "github.com/noah-isme/school-fee-api/pkg/errors"
	"github.com/noah-isme/school-fee-api/pkg/response"
)

type feeStructureService interface {
	Add(ctx context.Context, req service.CreateFeeStructureRequest) (*models.FeeStructure, error)
	Update(ctx context.Context, id string, req service.UpdateFeeStructureRequest) (*models.FeeStructure, error)
	Get(ctx context.Context, id string) (*models.FeeStructure, bool)
	List(ctx context.Context, query models.FeeStructureQuery) []models.FeeStructure
	Delete(ctx context.Context, id string) error
}

// FeeStructureHandler exposes fee structure endpoints.
type FeeStructureHandler struct {
	fees feeStructureService
}

// NewFeeStructureHandler constructs FeeStructureHandler.
func NewFeeStructureHandler(fees feeStructureService) *FeeStructureHandler {
	return &FeeStructureHandler{fees: fees}
}

// List godoc
// @Summary List fee structures
// @Tags FeeStructures
// @Produce json
// @Security BearerAuth
// @Param class query string false "Keep structures for this class and those without a class"
// @Param search query string false "Search by name or frequency"
// @Success 200 {object} response.Envelope
// @Router /fee-structures [get]
func (h *FeeStructureHandler) List(c *gin.Context) {
	var query models.FeeStructureQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	response.List(c, h.fees.List(c.Request.Context(), query))
}

// Get godoc
// @Summary Get fee structure
// @Tags FeeStructures
// @Produce json
// @Security BearerAuth
// @Param id path string true "Fee structure ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fee-structures/{id} [get]
func (h *FeeStructureHandler) Get(c *gin.Context) {
	fee, ok := h.fees.Get(c.Request.Context(), c.Param("id"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "Fee structure not found"))
		return
	}
	response.JSON(c, http.StatusOK, fee)
}

// Create godoc
// @Summary Create fee structure
// @Tags FeeStructures
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateFeeStructureRequest true "Fee structure payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /fee-structures [post]
func (h *FeeStructureHandler) Create(c *gin.Context) {
	var req service.CreateFeeStructureRequest
	if !bindJSON(c, &req) {
		return
	}
	fee, err := h.fees.Add(c.Request.Context(), req)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Created(c, fee)
}

// Update godoc
// @Summary Update fee structure
// @Tags FeeStructures
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Fee structure ID"
// @Param payload body service.UpdateFeeStructureRequest true "Fee structure payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fee-structures/{id} [put]
func (h *FeeStructureHandler) Update(c *gin.Context) {
	var req service.UpdateFeeStructureRequest
	if !bindJSON(c, &req) {
		return
	}
	fee, err := h.fees.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		renderError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee)
}

// Delete godoc
// @Summary Delete fee structure
// @Description Fails with 409 while payments reference the fee structure
// @Tags FeeStructures
// @Produce json
// @Security BearerAuth
// @Param id path string true "Fee structure ID"
// @Param confirm query bool true "Must be true"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 428 {object} response.Envelope
// @Router /fee-structures/{id} [delete]
func (h *FeeStructureHandler) Delete(c *gin.Context) {
	if err := h.fees.Delete(c.Request.Context(), c.Param("id")); err != nil {
		renderError(c, err)
		return
	}
	response.NoContent(c)
}
