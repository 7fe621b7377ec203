package handlers

import (
	"encoding/csv"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"luckydraw/internal/models"
)

func (h *HTTPHandler) prizeListData() gin.H {
	return gin.H{"Prizes": h.service.Prizes(), "EditID": ""}
}

// ShowPrizesPage handles the request for the prize setting page.
func (h *HTTPHandler) ShowPrizesPage(c *gin.Context) {
	data := h.prizeListData()
	data["title"] = "奖项设置"
	data["Page"] = "prizes"
	data["EditID"] = c.Query("edit")
	h.renderPage(c, data, "prizes.html")
}

// AddPrize appends a prize with default values and opens it for editing.
func (h *HTTPHandler) AddPrize(c *gin.Context) {
	p := h.service.AddPrize(c.Request.Context())
	data := h.prizeListData()
	data["EditID"] = p.ID
	h.renderPartial(c, "prize_list_container.html", data)
}

// UpdatePrize handles the prize edit form.
func (h *HTTPHandler) UpdatePrize(c *gin.Context) {
	count, err := strconv.Atoi(c.PostForm("count"))
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid count")
		return
	}

	image := c.PostForm("image")
	if uri, ok, err := imageDataURI(c, "imageFile"); err != nil {
		h.renderError(c, err)
		return
	} else if ok {
		image = uri
	}

	_, err = h.service.UpdatePrize(c.Request.Context(), models.Prize{
		ID:          c.Param("id"),
		Name:        c.PostForm("name"),
		Count:       count,
		Description: c.PostForm("description"),
		Image:       image,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.renderPartial(c, "prize_list_container.html", h.prizeListData())
}

// DeletePrize removes a prize.
func (h *HTTPHandler) DeletePrize(c *gin.Context) {
	if err := h.service.RemovePrize(c.Request.Context(), c.Param("id")); err != nil {
		h.renderError(c, err)
		return
	}
	h.renderPartial(c, "prize_list_container.html", h.prizeListData())
}

// UploadPrizesCSV handles the CSV upload for prizes.
// Rows are name,count[,description[,image]].
func (h *HTTPHandler) UploadPrizesCSV(c *gin.Context) {
	file, _, err := c.Request.FormFile("prizeCSV")
	if err != nil {
		c.String(http.StatusBadRequest, "Error retrieving file: %v", err)
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var prizes []models.Prize
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			c.String(http.StatusBadRequest, "Error reading CSV: %v", err)
			return
		}

		if len(record) < 2 {
			logger.Infof("Skipping malformed CSV record: %v", record)
			continue
		}
		count, err := strconv.Atoi(strings.TrimSpace(record[1]))
		if err != nil {
			logger.Infof("Skipping CSV record with invalid count: %v", record)
			continue
		}
		p := models.Prize{Name: strings.TrimPrefix(record[0], "\xef\xbb\xbf"), Count: count}
		if len(record) > 2 {
			p.Description = record[2]
		}
		if len(record) > 3 {
			p.Image = record[3]
		}
		prizes = append(prizes, p)
	}

	h.service.AddPrizes(c.Request.Context(), prizes)
	h.renderPartial(c, "prize_list_container.html", h.prizeListData())
}
