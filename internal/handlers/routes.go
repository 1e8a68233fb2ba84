package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes registers the click counter routes.
func RegisterRoutes(api huma.API, clickHandler *ClickHandler) {
	huma.Register(api, huma.Operation{
		Method:      http.MethodPost,
		Path:        "/api/click",
		Summary:     "Register a click",
		Description: "Runs per-client admission control and, if admitted, applies the requested update to the shared click counter.",
		Tags:        []string{"Clicks"},
	}, clickHandler.Click)

	huma.Register(api, huma.Operation{
		Method:      http.MethodGet,
		Path:        "/api/count",
		Summary:     "Read the click count",
		Description: "Returns the current value of the shared click counter. Reads are not rate limited.",
		Tags:        []string{"Clicks"},
	}, clickHandler.Count)
}
