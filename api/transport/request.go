package transport

import (
	"github.com/gavinmorrow/hunter-extension-sub000/domain"
	"github.com/gavinmorrow/hunter-extension-sub000/internal/settings"
	"github.com/gavinmorrow/hunter-extension-sub000/usecase"
)

// IntentRequest is a presentation intent posted by the browser.
type IntentRequest = usecase.Intent

// ScrapeRequest carries records read from the host page markup.
type ScrapeRequest struct {
	Records []domain.ScrapeRecord `json:"records"`
}

// ScrapeResponse reports the collection size after the merge.
type ScrapeResponse struct {
	Received int `json:"received"`
	Total    int `json:"total"`
}

// SettingsResponse is the effective settings plus the stored overrides they came from.
type SettingsResponse struct {
	Settings  settings.Settings `json:"settings"`
	Overrides map[string]any    `json:"overrides"`
}
