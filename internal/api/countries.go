package api

import (
	"net/http"

	"go.uber.org/zap"

	"gemini-replica/internal/countries"
)

// CountryResponse is one selectable entry of the dial-code list
type CountryResponse struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	DialCode string `json:"dialCode"`
	Flag     string `json:"flag"`
}

// CountriesHandler serves the country dial-code list
type CountriesHandler struct {
	directory CountryLister
	logger    *zap.Logger
}

// NewCountriesHandler creates a new countries handler
func NewCountriesHandler(directory CountryLister, logger *zap.Logger) *CountriesHandler {
	return &CountriesHandler{
		directory: directory,
		logger:    logger.Named("http"),
	}
}

// List handles GET /api/countries
func (h *CountriesHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.directory == nil {
		writeError(w, http.StatusBadGateway, "Failed to fetch country data.")
		return
	}

	list, err := h.directory.Countries(r.Context())
	if err != nil {
		h.logger.Warn("Country directory unavailable", zap.Error(err))
		writeError(w, http.StatusBadGateway, "Failed to fetch country data.")
		return
	}

	selectable := countries.Selectable(list)
	out := make([]CountryResponse, len(selectable))
	for i, c := range selectable {
		out[i] = CountryResponse{
			Code:     c.CCA2,
			Name:     c.Name.Common,
			DialCode: c.DialCode(),
			Flag:     c.Flags.SVG,
		}
	}
	writeJSON(w, http.StatusOK, out)
}
