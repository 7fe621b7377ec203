package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"luckydraw/internal/services"
)

const maxImportBytes = 4 << 20

func (h *HTTPHandler) participantListData(c *gin.Context) gin.H {
	query := c.Query("q")
	if query == "" {
		query = c.PostForm("q")
	}
	status := c.Query("status")
	if status == "" {
		status = c.DefaultPostForm("status", services.FilterAll)
	}
	return gin.H{
		"Participants": h.service.FilterParticipants(query, status),
		"Total":        len(h.service.Participants()),
		"Query":        query,
		"Status":       status,
	}
}

// ShowParticipantsPage handles the request for the participant setting page.
func (h *HTTPHandler) ShowParticipantsPage(c *gin.Context) {
	data := h.participantListData(c)
	data["title"] = "人员名单"
	data["Page"] = "participants"
	h.renderPage(c, data, "participants.html")
}

// AddParticipant handles the form submission for adding a single participant.
func (h *HTTPHandler) AddParticipant(c *gin.Context) {
	_, err := h.service.AddParticipant(c.Request.Context(),
		c.PostForm("name"), c.PostForm("code"), c.PostForm("department"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.renderPartial(c, "participant_list_container.html", h.participantListData(c))
}

// ImportParticipants handles the bulk textarea import.
func (h *HTTPHandler) ImportParticipants(c *gin.Context) {
	h.service.ImportParticipants(c.Request.Context(), c.PostForm("importText"))
	h.renderPartial(c, "participant_list_container.html", h.participantListData(c))
}

// UploadParticipantsCSV imports participants from an uploaded text or CSV file.
// Each line is parsed like the bulk textarea.
func (h *HTTPHandler) UploadParticipantsCSV(c *gin.Context) {
	file, _, err := c.Request.FormFile("participantCSV")
	if err != nil {
		c.String(http.StatusBadRequest, "Error retrieving file: %v", err)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxImportBytes))
	if err != nil {
		c.String(http.StatusInternalServerError, "Error reading file: %v", err)
		return
	}
	// Spreadsheet exports often start with a BOM.
	text := string(content)
	if len(text) >= 3 && text[:3] == "\xef\xbb\xbf" {
		text = text[3:]
	}

	h.service.ImportParticipants(c.Request.Context(), text)
	h.renderPartial(c, "participant_list_container.html", h.participantListData(c))
}

// DeleteParticipant removes a participant.
func (h *HTTPHandler) DeleteParticipant(c *gin.Context) {
	if err := h.service.RemoveParticipant(c.Request.Context(), c.Param("id")); err != nil {
		h.renderError(c, err)
		return
	}
	h.renderPartial(c, "participant_list_container.html", h.participantListData(c))
}
