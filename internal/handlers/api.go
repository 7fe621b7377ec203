package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"luckydraw/internal/models"
)

type errorResponse struct {
	Error string `json:"error"`
}

type drawRequest struct {
	PrizeID string `json:"prizeId" binding:"required"`
	Count   int    `json:"count"`
}

type statusResponse struct {
	Status   string `json:"status"`
	PoolSize int    `json:"poolSize"`
}

func (h *HTTPHandler) registerAPIRoutes(router *gin.Engine) {
	api := router.Group("/api")

	api.GET("/state", h.getState)
	api.GET("/history", h.getHistory)
	api.GET("/status", h.getStatus)

	admin := api.Group("", AdminAuthMiddleware(h.adminToken))
	admin.PUT("/state", h.putState)
	admin.PUT("/participants", h.putParticipants)
	admin.PUT("/prizes", h.putPrizes)
	admin.PUT("/site-config", h.putSiteConfig)
	admin.POST("/draw", h.postDraw)
	admin.DELETE("/history", h.deleteHistory)
}

func (h *HTTPHandler) apiError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Errorf("API: %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, errorResponse{Error: err.Error()})
}

func (h *HTTPHandler) getState(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.State())
}

func (h *HTTPHandler) putState(c *gin.Context) {
	var state models.AppState
	if err := c.ShouldBindJSON(&state); err != nil {
		logger.Infof("API: invalid state import: %v", err)
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
		return
	}
	if err := validateParticipants(state.Participants); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := validatePrizes(state.Prizes); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	h.service.ImportState(c.Request.Context(), state)
	c.JSON(http.StatusOK, h.service.State())
}

func (h *HTTPHandler) putParticipants(c *gin.Context) {
	var participants []models.Participant
	if err := c.ShouldBindJSON(&participants); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
		return
	}
	if err := validateParticipants(participants); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	h.service.ReplaceParticipants(c.Request.Context(), participants)
	c.JSON(http.StatusOK, h.service.Participants())
}

func (h *HTTPHandler) putPrizes(c *gin.Context) {
	var prizes []models.Prize
	if err := c.ShouldBindJSON(&prizes); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
		return
	}
	if err := validatePrizes(prizes); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	h.service.ReplacePrizes(c.Request.Context(), prizes)
	c.JSON(http.StatusOK, h.service.Prizes())
}

// validateParticipants requires id, name and code on every entry and unique
// ids. The draw engine tells participants apart by id.
func validateParticipants(participants []models.Participant) error {
	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if p.ID == "" || p.Name == "" || p.Code == "" {
			return errors.New("id, name and code are required")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate participant id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// validatePrizes requires id and name, unique ids and
// 0 <= drawnCount <= count on every entry.
func validatePrizes(prizes []models.Prize) error {
	seen := make(map[string]bool, len(prizes))
	for _, p := range prizes {
		if p.ID == "" || p.Name == "" {
			return errors.New("id and name are required")
		}
		if p.Count < 0 || p.DrawnCount < 0 || p.DrawnCount > p.Count {
			return errors.New("drawnCount must be between 0 and count")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate prize id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

func (h *HTTPHandler) putSiteConfig(c *gin.Context) {
	var cfg models.SiteConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
		return
	}
	if err := h.service.UpdateSiteConfig(c.Request.Context(), cfg); err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.service.SiteConfig())
}

func (h *HTTPHandler) postDraw(c *gin.Context) {
	var req drawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
		return
	}
	if req.Count == 0 {
		req.Count = 1
	}
	result, err := h.service.Draw(c.Request.Context(), req.PrizeID, req.Count)
	if err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *HTTPHandler) getHistory(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.History())
}

func (h *HTTPHandler) deleteHistory(c *gin.Context) {
	h.service.ClearHistory(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, statusResponse{
		Status:   string(h.service.Status()),
		PoolSize: h.service.PoolSize(),
	})
}
