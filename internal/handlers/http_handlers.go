package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"luckydraw/internal/services"
)

// HTTPHandler holds the dependencies for the HTTP handlers, like the lottery service.
type HTTPHandler struct {
	service    *services.LotteryService
	templates  *template.Template
	adminToken string
}

// NewHTTPHandler creates a new HTTPHandler. An empty adminToken leaves the
// JSON API open.
func NewHTTPHandler(service *services.LotteryService, templates *template.Template, adminToken string) *HTTPHandler {
	return &HTTPHandler{
		service:    service,
		templates:  templates,
		adminToken: adminToken,
	}
}

// TemplateFuncs are the helpers available to page templates.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"percent": func(part, total int) int {
			if total <= 0 {
				return 0
			}
			return part * 100 / total
		},
		// isImage tells a URL or data URI apart from an emoji placeholder.
		"isImage": func(s string) bool {
			return strings.HasPrefix(s, "http") || strings.HasPrefix(s, "data:") || strings.HasPrefix(s, "/")
		},
		"clock": func(ms int64) string {
			return time.UnixMilli(ms).Format("15:04")
		},
		"add": func(a, b int) int { return a + b },
		// safeURL trusts only uploaded image data URIs; anything else goes
		// through the normal URL escaping.
		"safeURL": func(s string) any {
			if strings.HasPrefix(s, "data:image/") {
				return template.URL(s)
			}
			return s
		},
	}
}

// ParseTemplates parses every .html file at the root of fsys.
func ParseTemplates(fsys fs.FS) (*template.Template, error) {
	return template.New("").Funcs(TemplateFuncs()).ParseFS(fsys, "*.html")
}

// renderPage is a helper to perform a two-step template rendering.
// It first executes the content template into a buffer, then executes the main
// layout template, passing the rendered content as a variable.
func (h *HTTPHandler) renderPage(c *gin.Context, pageData gin.H, contentTmpl string) {
	h.addLayoutData(pageData)

	// Step 1: Render the specific page content into a buffer.
	buf := new(bytes.Buffer)
	err := h.templates.ExecuteTemplate(buf, contentTmpl, pageData)
	if err != nil {
		logger.Errorf("Error executing content template %s: %v", contentTmpl, err)
		c.String(http.StatusInternalServerError, "Template rendering error")
		return
	}

	// Step 2: Add the rendered content to the main data map and render the layout.
	pageData["PageContent"] = template.HTML(buf.String())

	c.Header("Content-Type", "text/html; charset=utf-8")
	err = h.templates.ExecuteTemplate(c.Writer, "layout.html", pageData)
	if err != nil {
		logger.Errorf("Error executing layout template: %v", err)
		c.String(http.StatusInternalServerError, "Template rendering error")
	}
}

// renderPartial renders a single template, for HTMX swaps.
func (h *HTTPHandler) renderPartial(c *gin.Context, name string, data any) {
	buf := new(bytes.Buffer)
	if err := h.templates.ExecuteTemplate(buf, name, data); err != nil {
		logger.Errorf("Error executing template %s: %v", name, err)
		c.String(http.StatusInternalServerError, "Template error")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// renderError writes err as a simple paragraph the page can swap in.
func (h *HTTPHandler) renderError(c *gin.Context, err error) {
	c.Data(statusFor(err), "text/html; charset=utf-8",
		[]byte(fmt.Sprintf(`<p class="error">%s</p>`, html.EscapeString(err.Error()))))
}

func (h *HTTPHandler) addLayoutData(data gin.H) {
	data["Site"] = h.service.SiteConfig()
	data["PoolSize"] = h.service.PoolSize()
	data["DBStatus"] = string(h.service.Status())
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrInvalidCount):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrPrizeNotFound), errors.Is(err, services.ErrParticipantNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrPrizeExhausted), errors.Is(err, services.ErrPoolEmpty),
		errors.Is(err, services.ErrDrawInProgress), errors.Is(err, services.ErrNoActiveDraw):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RegisterRoutes registers all the application routes.
func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/lottery") })

	router.GET("/lottery", h.ShowLotteryPage)
	router.POST("/draw/start", h.StartDraw)
	router.GET("/draw/frame", h.GetDrawFrame)
	router.GET("/draw/stream", h.StreamDrawFrames)
	router.POST("/draw/stop", h.StopDraw)
	router.POST("/draw/cancel", h.CancelDraw)

	router.GET("/participants", h.ShowParticipantsPage)
	router.POST("/participants", h.AddParticipant)
	router.POST("/participants/import", h.ImportParticipants)
	router.POST("/upload-participants-csv", h.UploadParticipantsCSV)
	router.POST("/participants/:id/delete", h.DeleteParticipant)

	router.GET("/prizes", h.ShowPrizesPage)
	router.POST("/prizes", h.AddPrize)
	router.POST("/prizes/:id", h.UpdatePrize)
	router.POST("/prizes/:id/delete", h.DeletePrize)
	router.POST("/upload-prizes-csv", h.UploadPrizesCSV)

	router.GET("/history", h.ShowHistoryPage)
	router.POST("/history/clear", h.ClearHistory)
	router.GET("/export-results-csv", h.ExportResultsCSV)

	router.GET("/settings", h.ShowSettingsPage)
	router.POST("/settings", h.UpdateSettings)

	h.registerAPIRoutes(router)
}
