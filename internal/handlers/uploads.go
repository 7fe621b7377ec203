package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"luckydraw/internal/services"
)

const maxImageBytes = 2 << 20

// imageDataURI reads an optional uploaded image from field and returns it as a
// data URI. ok is false when nothing was uploaded.
func imageDataURI(c *gin.Context, field string) (uri string, ok bool, err error) {
	file, _, err := c.Request.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", services.ErrInvalidInput, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		return "", false, err
	}
	if len(data) == 0 {
		return "", false, nil
	}
	if len(data) > maxImageBytes {
		return "", false, fmt.Errorf("%w: image larger than %d bytes", services.ErrInvalidInput, maxImageBytes)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", false, fmt.Errorf("%w: %s is not an image", services.ErrInvalidInput, mt.String())
	}
	return "data:" + mt.String() + ";base64," + base64.StdEncoding.EncodeToString(data), true, nil
}
