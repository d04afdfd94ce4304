package handler

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type timetableExporter interface {
	Render(ctx context.Context, id, format string) (*service.ExportFile, error)
	Share(ctx context.Context, id, format string) (*service.ExportLink, error)
	Open(token string) (*os.File, string, error)
}

// ExportHandler streams timetable exports and serves signed download links.
type ExportHandler struct {
	service timetableExporter
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc timetableExporter) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Export godoc
// @Summary Download a timetable as CSV or PDF
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Timetable ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /timetables/{id}/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	file, err := h.service.Render(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", service.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// Share godoc
// @Summary Store a timetable export behind a signed link
// @Tags Exports
// @Produce json
// @Param id path string true "Timetable ID"
// @Param format query string false "csv or pdf"
// @Success 201 {object} response.Envelope
// @Router /timetables/{id}/exports [post]
func (h *ExportHandler) Share(c *gin.Context) {
	link, err := h.service.Share(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", service.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// Download godoc
// @Summary Download a stored export
// @Tags Exports
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, name, err := h.service.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck
	response.AttachmentFile(c, name, file.Name())
}
