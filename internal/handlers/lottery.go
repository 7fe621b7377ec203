package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"luckydraw/internal/models"
	"luckydraw/internal/services"
)

// drawPanel is the data behind the draw controls of the lottery page.
type drawPanel struct {
	Prize    models.Prize
	Index    int
	PrevIdx  int
	NextIdx  int
	PoolSize int
	MaxCount int
	Running  bool
	Names    []string
	Result   *services.DrawResult
}

func (h *HTTPHandler) buildPanel(index int) (drawPanel, bool) {
	prizes := h.service.Prizes()
	if len(prizes) == 0 {
		return drawPanel{}, false
	}
	index = ((index % len(prizes)) + len(prizes)) % len(prizes)
	prize := prizes[index]
	pool := h.service.PoolSize()
	panel := drawPanel{
		Prize:    prize,
		Index:    index,
		PrevIdx:  (index - 1 + len(prizes)) % len(prizes),
		NextIdx:  (index + 1) % len(prizes),
		PoolSize: pool,
		MaxCount: min(prize.Remaining(), pool),
	}
	if sh, prizeID, ok := h.service.ActiveDraw(); ok && prizeID == prize.ID {
		panel.Running = true
		frame, _ := sh.Frame()
		panel.Names = names(frame)
	}
	if last := h.service.LastResult(); last != nil && last.Prize.ID == prize.ID {
		panel.Result = last
	}
	return panel, true
}

func names(ps []models.Participant) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

// ShowLotteryPage handles the request for the main lottery drawing page.
func (h *HTTPHandler) ShowLotteryPage(c *gin.Context) {
	index, _ := strconv.Atoi(c.Query("prize"))
	panel, ok := h.buildPanel(index)
	data := gin.H{
		"title":     "抽奖",
		"Page":      "lottery",
		"HasPrizes": ok,
		"Panel":     panel,
		"Prizes":    h.service.Prizes(),
	}
	h.renderPage(c, data, "lottery.html")
}

func formCount(c *gin.Context) int {
	n, err := strconv.Atoi(c.DefaultPostForm("count", "1"))
	if err != nil {
		return 0
	}
	return n
}

// StartDraw starts the shuffle animation for a prize.
func (h *HTTPHandler) StartDraw(c *gin.Context) {
	prizeID := c.PostForm("prizeId")
	if prizeID == "" {
		c.String(http.StatusBadRequest, "Please select a prize.")
		return
	}

	sh, err := h.service.StartDraw(prizeID, formCount(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	frame, _ := sh.Frame()
	h.renderPartial(c, "draw_rolling.html", gin.H{"Names": names(frame)})
}

// GetDrawFrame returns the current shuffle frame. Once the draw has stopped it
// answers 204 so the poller stops swapping.
func (h *HTTPHandler) GetDrawFrame(c *gin.Context) {
	sh, _, ok := h.service.ActiveDraw()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	frame, _ := sh.Frame()
	h.renderPartial(c, "draw_frame.html", gin.H{"Names": names(frame)})
}

// StreamDrawFrames streams shuffle frames as server-sent events until the draw
// stops or the client goes away.
func (h *HTTPHandler) StreamDrawFrames(c *gin.Context) {
	sh, _, ok := h.service.ActiveDraw()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}

	frames := sh.Frames(c.Request.Context())
	c.Stream(func(w io.Writer) bool {
		frame, ok := <-frames
		if !ok {
			c.SSEvent("done", "")
			return false
		}
		c.SSEvent("frame", names(frame))
		return true
	})
}

// StopDraw stops the animation and reveals the winners.
func (h *HTTPHandler) StopDraw(c *gin.Context) {
	result, err := h.service.StopDraw(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.renderPartial(c, "draw_result.html", result)
}

// CancelDraw aborts a running animation without drawing.
func (h *HTTPHandler) CancelDraw(c *gin.Context) {
	if err := h.service.CancelDraw(); err != nil {
		logger.Infof("Cancel without an active draw: %v", err)
	}
	c.Header("HX-Refresh", "true")
	c.Status(http.StatusNoContent)
}
