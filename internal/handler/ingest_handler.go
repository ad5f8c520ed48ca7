package handler

import (
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/miklbjorn/email-summerhouse/internal/mail"
	"github.com/miklbjorn/email-summerhouse/internal/service"
)

// IngestTokenHeader carries the shared secret set by the inbound mail webhook.
const IngestTokenHeader = "X-Ingest-Token"

// IngestHandler handles the inbound email webhook.
type IngestHandler struct {
	ingestService service.IngestService
	token         string
}

// NewIngestHandler creates a new IngestHandler. The token is the shared
// secret expected on every webhook delivery.
func NewIngestHandler(ingestService service.IngestService, token string) *IngestHandler {
	return &IngestHandler{ingestService: ingestService, token: token}
}

// ingestAttachment is one attachment in the webhook payload. Exactly one of
// the content fields should be set.
type ingestAttachment struct {
	Filename      string  `json:"filename"`
	ContentType   string  `json:"content_type"`
	ContentBase64 *string `json:"content_base64"`
	ContentText   *string `json:"content_text"`
}

// ingestRequest is the webhook payload for one inbound email.
type ingestRequest struct {
	MessageID   string             `json:"message_id"`
	From        string             `json:"from" binding:"required"`
	To          []string           `json:"to" binding:"required"`
	Subject     string             `json:"subject"`
	ReceivedAt  *time.Time         `json:"received_at"`
	RawBase64   string             `json:"raw_base64"`
	BodyText    string             `json:"body_text"`
	BodyHTML    string             `json:"body_html"`
	Attachments []ingestAttachment `json:"attachments"`
}

// Receive handles POST /ingest/email
// @Summary Ingest an inbound email
// @Description Process one inbound email delivery: archive, extract fields, and create an invoice record
// @Tags ingest
// @Accept json
// @Produce json
// @Param X-Ingest-Token header string true "Shared webhook secret"
// @Param request body ingestRequest true "Inbound email"
// @Success 202 {object} Response{data=service.IngestResult} "Accepted and processed"
// @Failure 400 {object} ErrorResponseBody "Invalid payload"
// @Failure 401 {object} ErrorResponseBody "Missing or wrong token"
// @Failure 403 {object} ErrorResponseBody "Sender or recipient rejected"
// @Router /ingest/email [post]
func (h *IngestHandler) Receive(c *gin.Context) {
	token := c.GetHeader(IngestTokenHeader)
	if h.token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.token)) != 1 {
		RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid ingest token")
		return
	}

	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "from and to are required")
		return
	}

	var raw []byte
	if req.RawBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.RawBase64)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "raw_base64 is not valid base64")
			return
		}
		raw = decoded
	}

	input := &service.IngestInput{
		MessageIDHeader: req.MessageID,
		From:            req.From,
		To:              req.To,
		Subject:         req.Subject,
		Raw:             raw,
		BodyText:        req.BodyText,
		BodyHTML:        req.BodyHTML,
	}
	if req.ReceivedAt != nil {
		input.ReceivedAt = *req.ReceivedAt
	}
	for _, att := range req.Attachments {
		input.Attachments = append(input.Attachments, mail.AttachmentDescriptor{
			Filename:    att.Filename,
			ContentType: att.ContentType,
			Base64:      att.ContentBase64,
			Text:        att.ContentText,
		})
	}

	result, err := h.ingestService.Ingest(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondAccepted(c, result)
}
