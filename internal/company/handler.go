// File: internal/company/handler.go
package company

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AryanBhardwaj123/placement-tracker/internal/common"
)

// Handler struct holds dependencies for company handlers. Responses are
// bare JSON documents rather than the envelope used elsewhere, matching
// what the endpoint's existing consumers parse; errors are rendered by
// middleware.LegacyErrorHandler.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new company handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes sets up the routes for company operations.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	companyGroup := router.Group("/companies")
	{
		companyGroup.GET("", h.getCompanies)
		companyGroup.POST("", h.createCompany)
		companyGroup.PUT("/:id", h.updateCompany)
		companyGroup.DELETE("/:id", h.deleteCompany)
	}
}

func (h *Handler) getCompanies(c *gin.Context) {
	companies, err := h.service.GetAll(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	if companies == nil {
		companies = []Company{}
	}
	c.JSON(http.StatusOK, companies)
}

func (h *Handler) createCompany(c *gin.Context) {
	var req CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Create company: Invalid request body", zap.Error(err))
		c.Error(bindError(err))
		return
	}
	company, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, company)
}

func (h *Handler) updateCompany(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(common.ErrNotFound.WithDetails("Company not found"))
		return
	}
	var req UpdateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Update company: Invalid request body", zap.Error(err), zap.String("id", id.String()))
		c.Error(bindError(err))
		return
	}
	company, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, company)
}

func (h *Handler) deleteCompany(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(common.ErrNotFound.WithDetails("Company not found"))
		return
	}
	deletedID, err := h.service.Delete(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, DeleteCompanyResponse{ID: deletedID})
}

// bindError converts binding failures into the legacy wording: a
// missing name keeps the original "Please add a company name" message,
// other validation failures are concatenated.
func bindError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return common.ErrBadRequest.WithDetails(err.Error())
	}
	for _, fe := range ve {
		if fe.Field() == "Name" && fe.Tag() == "required" {
			return common.ErrBadRequest.WithDetails("Please add a company name")
		}
	}
	formatted := common.FormatValidationErrors(ve)
	msgs := make([]string, 0, len(formatted))
	for _, msg := range formatted {
		msgs = append(msgs, msg)
	}
	sort.Strings(msgs)
	return common.NewValidationAPIError(strings.Join(msgs, ", "))
}
