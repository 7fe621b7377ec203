package services

import (
	"regexp"
	"strings"

	"luckydraw/internal/models"
)

// fieldSeparator matches runs of ASCII or full-width commas, tabs and spaces.
var fieldSeparator = regexp.MustCompile(`[,，\s]+`)

// ParseParticipants turns "name, code[, department]" lines into participants.
// Lines with fewer than two fields are skipped.
func ParseParticipants(text string, newID func() string) (parsed []models.Participant, skipped int) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := fieldSeparator.Split(line, -1)
		if len(fields) < 2 || fields[0] == "" || fields[1] == "" {
			skipped++
			continue
		}
		dept := models.DefaultDepartment
		if len(fields) > 2 && fields[2] != "" {
			dept = fields[2]
		}
		parsed = append(parsed, models.Participant{
			ID:         newID(),
			Name:       fields[0],
			Code:       fields[1],
			Department: dept,
		})
	}
	return parsed, skipped
}
