package handlers

import (
	"github.com/gin-gonic/gin"
	"luckydraw/internal/models"
)

// ShowSettingsPage renders the branding form.
func (h *HTTPHandler) ShowSettingsPage(c *gin.Context) {
	data := gin.H{
		"title":  "系统设置",
		"Page":   "settings",
		"Config": h.service.SiteConfig(),
		"State":  h.service.State(),
	}
	h.renderPage(c, data, "settings.html")
}

// UpdateSettings saves brand and event names and the optional logo.
func (h *HTTPHandler) UpdateSettings(c *gin.Context) {
	cfg := models.SiteConfig{
		BrandName: c.PostForm("brandName"),
		EventName: c.PostForm("eventName"),
		LogoURL:   h.service.SiteConfig().LogoURL,
	}
	if c.PostForm("removeLogo") == "true" {
		cfg.LogoURL = ""
	}
	uri, ok, err := imageDataURI(c, "logo")
	if err != nil {
		h.renderError(c, err)
		return
	}
	if ok {
		cfg.LogoURL = uri
	}

	if err := h.service.UpdateSiteConfig(c.Request.Context(), cfg); err != nil {
		h.renderError(c, err)
		return
	}
	h.renderPartial(c, "settings_form.html", gin.H{
		"Config": h.service.SiteConfig(),
		"Saved":  true,
	})
}
