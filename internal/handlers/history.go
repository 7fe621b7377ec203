package handlers

import (
	"encoding/csv"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

// ShowHistoryPage lists every winner, newest first.
func (h *HTTPHandler) ShowHistoryPage(c *gin.Context) {
	data := gin.H{
		"title":   "中奖记录",
		"Page":    "history",
		"History": h.service.History(),
	}
	h.renderPage(c, data, "history.html")
}

// ClearHistory resets all draws.
func (h *HTTPHandler) ClearHistory(c *gin.Context) {
	h.service.ClearHistory(c.Request.Context())
	h.renderPartial(c, "history_table.html", gin.H{"History": h.service.History()})
}

// ExportResultsCSV handles the request to download the lottery results as a CSV file.
func (h *HTTPHandler) ExportResultsCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", "attachment;filename=lottery_results.csv")
	c.Status(http.StatusOK)

	// Add BOM to ensure UTF-8 compatibility in Excel
	c.Writer.Write([]byte("\xef\xbb\xbf"))

	w := csv.NewWriter(c.Writer)

	if err := w.Write([]string{"奖项", "姓名", "工号", "部门", "时间"}); err != nil {
		logger.Errorf("Error writing CSV header: %v", err)
		return
	}

	for _, e := range h.service.History() {
		row := []string{
			e.PrizeName,
			e.ParticipantName,
			e.ParticipantCode,
			e.Department,
			time.UnixMilli(e.Timestamp).Format("2006-01-02 15:04:05"),
		}
		if err := w.Write(row); err != nil {
			logger.Errorf("Error writing CSV row: %v", err)
			return
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		logger.Errorf("Error flushing CSV writer: %v", err)
	}
}
