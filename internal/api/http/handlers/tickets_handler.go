package handlers

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/api/dto"
	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/service"
	"github.com/spec-kit/ticket-triage/internal/upload"
	apperrors "github.com/spec-kit/ticket-triage/pkg/util/errorutil"
)

const (
	createdMessage     = "Ticket and details created successfully"
	invalidDataMessage = "Invalid or missing JSON data ('data' field) in request."
)

// TicketService is the subset of the ticket service the handler calls.
type TicketService interface {
	CreateTicket(ctx context.Context, input service.TicketCreateInput) (int64, error)
	ListTickets(ctx context.Context) ([]domain.TicketRecord, error)
}

// ImageStore persists uploaded ticket images.
type ImageStore interface {
	Save(fh *multipart.FileHeader) (*upload.StoredImage, error)
	Remove(img *upload.StoredImage) error
}

// TicketsHandler serves /api/tickets.
type TicketsHandler struct {
	service TicketService
	images  ImageStore
	logger  *zap.Logger
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService TicketService, images ImageStore, logger *zap.Logger) *TicketsHandler {
	return &TicketsHandler{service: ticketService, images: images, logger: logger}
}

// CreateTicket POST /api/tickets. Accepts multipart form data with a JSON "data"
// field and an optional "file" image, or a plain JSON body.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	req, multipartForm, err := h.parseCreateRequest(c)
	if err != nil {
		return err
	}

	var img *upload.StoredImage
	if multipartForm {
		img = h.saveImage(c)
	}

	input := service.TicketCreateInput{
		RegionName:      req.RegionName,
		RegionManager:   req.RegionManager,
		Title:           req.Title,
		Description:     req.Description,
		Status:          req.Status,
		Priority:        req.Priority,
		EstRepairTime:   req.EstRepairTime,
		ReportedBy:      req.ReportedBy,
		AssignedTo:      req.AssignedTo,
		AssignmentNotes: req.AssignmentNotes,
		Address:         req.Address,
		AmountOfReports: req.AmountOfReports,
		InternalNotes:   req.InternalNotes,
	}
	if img != nil {
		input.ImageURL = &img.URL
	}

	ticketID, err := h.service.CreateTicket(c.UserContext(), input)
	if err != nil {
		if rmErr := h.images.Remove(img); rmErr != nil {
			h.logger.Warn("failed to remove orphaned image", zap.String("path", img.Path), zap.Error(rmErr))
		}
		return err
	}

	return c.Status(http.StatusCreated).JSON(dto.CreateTicketResponse{
		Message:  createdMessage,
		TicketID: ticketID,
		ImageURL: input.ImageURL,
	})
}

// ListTickets GET /api/tickets. The body is a bare JSON array.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	records, err := h.service.ListTickets(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, dto.NewTicketResponse(rec))
	}
	return c.JSON(items)
}

func (h *TicketsHandler) parseCreateRequest(c *fiber.Ctx) (dto.CreateTicketRequest, bool, error) {
	var req dto.CreateTicketRequest
	contentType := strings.ToLower(string(c.Request().Header.ContentType()))
	isMultipart := strings.HasPrefix(contentType, fiber.MIMEMultipartForm)

	raw := c.Body()
	if isMultipart {
		raw = []byte(c.FormValue("data"))
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return req, isMultipart, apperrors.NewValidationError(invalidDataMessage, nil)
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, isMultipart, apperrors.NewValidationError(invalidDataMessage, map[string]any{"reason": err.Error()})
	}
	return req, isMultipart, nil
}

// saveImage stores the optional "file" part. Rejected or failed uploads are logged
// and the ticket is created without an image.
func (h *TicketsHandler) saveImage(c *fiber.Ctx) *upload.StoredImage {
	fh, err := c.FormFile("file")
	if err != nil || fh == nil || fh.Filename == "" {
		return nil
	}
	if !upload.Allowed(fh.Filename) {
		h.logger.Info("ignoring upload with disallowed type", zap.String("filename", fh.Filename))
		return nil
	}
	img, err := h.images.Save(fh)
	if err != nil {
		h.logger.Warn("failed to save ticket image", zap.String("filename", fh.Filename), zap.Error(err))
		return nil
	}
	h.logger.Debug("ticket image saved", zap.String("path", img.Path))
	return img
}
