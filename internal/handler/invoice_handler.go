package handler

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/miklbjorn/email-summerhouse/internal/domain"
	"github.com/miklbjorn/email-summerhouse/internal/export"
	"github.com/miklbjorn/email-summerhouse/internal/port"
	"github.com/miklbjorn/email-summerhouse/internal/service"
)

// InvoiceHandler handles invoice record management endpoints.
type InvoiceHandler struct {
	invoiceService service.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(invoiceService service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// List handles GET /api/v1/invoices
// @Summary List invoices
// @Description List invoice records, newest first
// @Tags invoices
// @Produce json
// @Param unpaidOnly query bool false "Only return unpaid invoices"
// @Param limit query int false "Maximum number of records"
// @Param offset query int false "Number of records to skip"
// @Success 200 {object} Response{data=[]domain.Invoice} "Invoice list"
// @Failure 400 {object} ErrorResponseBody "Invalid query parameter"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Security BearerAuth
// @Router /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	filter := port.ListFilter{
		UnpaidOnly: c.Query("unpaidOnly") == "true",
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a non-negative integer")
			return
		}
		filter.Limit = &limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "offset must be a non-negative integer")
			return
		}
		filter.Offset = &offset
	}

	invoices, err := h.invoiceService.List(c.Request.Context(), filter)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, invoices)
}

// GetByID handles GET /api/v1/invoices/:id
// @Summary Get invoice by ID
// @Description Get one invoice record with its source files
// @Tags invoices
// @Produce json
// @Param id path int true "Invoice ID"
// @Success 200 {object} Response{data=domain.Invoice} "Invoice details"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "Invoice not found"
// @Security BearerAuth
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	inv, err := h.invoiceService.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, inv)
}

// Update handles PATCH /api/v1/invoices/:id
// @Summary Update invoice fields
// @Description Apply a sparse field update; edited fields are recorded as manually edited
// @Tags invoices
// @Accept json
// @Produce json
// @Param id path int true "Invoice ID"
// @Param request body map[string]interface{} true "Fields to update"
// @Success 200 {object} Response{data=domain.Invoice} "Updated invoice"
// @Failure 400 {object} ErrorResponseBody "Unknown field or invalid value"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "Invoice not found"
// @Security BearerAuth
// @Router /invoices/{id} [patch]
func (h *InvoiceHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	// Raw messages keep the distinction between a field set to null and a
	// field not present at all.
	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "request body must be a JSON object")
		return
	}

	patch, err := domain.ParsePatch(raw)
	if err != nil {
		HandleError(c, err)
		return
	}

	inv, err := h.invoiceService.Update(c.Request.Context(), id, patch)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, inv)
}

// Delete handles DELETE /api/v1/invoices/:id
// @Summary Delete invoice
// @Description Delete an invoice record and its source file records
// @Tags invoices
// @Produce json
// @Param id path int true "Invoice ID"
// @Success 200 {object} Response "Deleted"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "Invoice not found"
// @Security BearerAuth
// @Router /invoices/{id} [delete]
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.invoiceService.Delete(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"id": id, "deleted": true})
}

// Export handles GET /api/v1/invoices/export
// @Summary Export invoices
// @Description Download all invoice records as an xlsx workbook
// @Tags invoices
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary "Workbook"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Security BearerAuth
// @Router /invoices/export [get]
func (h *InvoiceHandler) Export(c *gin.Context) {
	invoices, err := h.invoiceService.List(c.Request.Context(), port.ListFilter{})
	if err != nil {
		HandleError(c, err)
		return
	}

	workbook, err := export.InvoicesWorkbook(invoices)
	if err != nil {
		HandleError(c, err)
		return
	}
	defer workbook.Close()

	filename := fmt.Sprintf("invoices-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := workbook.WriteTo(c.Writer); err != nil {
		requestID, _ := c.Get("request_id")
		log.Printf("[%s] workbook write failed: %v", requestID, err)
	}
}

// SourceFile handles GET /api/v1/invoices/:id/files/:fileId
// @Summary Download a source file
// @Description Redirect to a short-lived presigned URL for the archived source file
// @Tags invoices
// @Param id path int true "Invoice ID"
// @Param fileId path int true "Source file ID"
// @Success 302 "Redirect to presigned URL"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "Invoice or source file not found"
// @Security BearerAuth
// @Router /invoices/{id}/files/{fileId} [get]
func (h *InvoiceHandler) SourceFile(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	fileID, ok := parseID(c, "fileId")
	if !ok {
		return
	}

	url, err := h.invoiceService.SourceFileURL(c.Request.Context(), id, fileID)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", fmt.Sprintf("invalid %s", param))
		return 0, false
	}
	return id, true
}
