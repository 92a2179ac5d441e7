package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/Mnrljan/report-backend/service"
	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reports   *service.ReportService
	renderer  *service.DocumentRenderer
	publicURL string
}

// NewReportHandler creates the report endpoints. publicURL is the base of
// inspector links; when empty the scheme and host of the request are used.
func NewReportHandler(reports *service.ReportService, renderer *service.DocumentRenderer, publicURL string) *ReportHandler {
	return &ReportHandler{
		reports:   reports,
		renderer:  renderer,
		publicURL: publicURL,
	}
}

type SubmitRequest struct {
	FormData map[string]any `json:"formData"`
}

// Create handles a new DRAFT report from an administrator
func (h *ReportHandler) Create(c *gin.Context) {
	var req service.CreateReportInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	created, err := h.reports.Create(c.Request.Context(), req, h.baseURL(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":       "Report created. Send the link to the inspector.",
		"report":        created.Report,
		"inspectorLink": created.InspectorLink,
	})
}

// List handles the paginated report listing
func (h *ReportHandler) List(c *gin.Context) {
	page, limit := h.reports.ParsePage(c.Query("page"), c.Query("limit"))

	result, err := h.reports.List(c.Request.Context(), page, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Get returns one report
func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// Submit records the inspector's form data
func (h *ReportHandler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c)
		return
	}

	report, err := h.reports.Submit(c.Request.Context(), c.Param("id"), req.FormData)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Report submitted",
		"report":  report,
	})
}

// Download streams the rendered report document
func (h *ReportHandler) Download(c *gin.Context) {
	doc, err := h.renderer.Render(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", contentDisposition(doc.Filename))
	c.Data(http.StatusOK, doc.ContentType, doc.Content)
}

// Delete removes one report
func (h *ReportHandler) Delete(c *gin.Context) {
	if err := h.reports.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Report deleted"})
}

// DeleteAll removes every report
func (h *ReportHandler) DeleteAll(c *gin.Context) {
	n, err := h.reports.DeleteAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      fmt.Sprintf("%d reports deleted", n),
		"deletedCount": n,
	})
}

var quotedStringEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// contentDisposition always quotes the filename. Names outside printable
// ASCII use the RFC 2231 extended form instead.
func contentDisposition(filename string) string {
	for _, r := range filename {
		if r < 0x20 || r > 0x7e {
			return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
		}
	}
	return `attachment; filename="` + quotedStringEscaper.Replace(filename) + `"`
}

func (h *ReportHandler) baseURL(c *gin.Context) string {
	if h.publicURL != "" {
		return h.publicURL
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host
}
