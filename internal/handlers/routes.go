package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/speedbump/internal/ratelimit"
)

// RegisterRoutes registers the limits API and the rate-limited ping endpoint.
func RegisterRoutes(api huma.API, h *LimitsHandler) {
	// The limits API checks keys explicitly, so the request middleware stays out of the way.
	huma.Register(api, huma.Operation{
		OperationID:   "check-limit",
		Method:        http.MethodPost,
		Path:          "/limits/{key}",
		Summary:       "Check a key",
		Description:   "Counts one request against the key and reports whether it is admitted.",
		Tags:          []string{"Limits"},
		DefaultStatus: http.StatusOK,
		Metadata:      map[string]any{ratelimit.MetadataKey: false},
	}, h.CheckLimit)

	huma.Register(api, huma.Operation{
		OperationID:   "reset-limit",
		Method:        http.MethodDelete,
		Path:          "/limits/{key}",
		Summary:       "Reset a key",
		Description:   "Clears the stored state so the next check starts a fresh window.",
		Tags:          []string{"Limits"},
		DefaultStatus: http.StatusNoContent,
		Metadata:      map[string]any{ratelimit.MetadataKey: false},
	}, h.ResetLimit)

	// GET /ping is limited per client by the request middleware.
	huma.Register(api, huma.Operation{
		OperationID: "ping",
		Method:      http.MethodGet,
		Path:        "/ping",
		Summary:     "Ping",
		Tags:        []string{"Limits"},
	}, h.Ping)
}
