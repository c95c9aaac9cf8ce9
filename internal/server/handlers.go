package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"modelgate/internal/core"
	"modelgate/internal/gateway"
	"modelgate/internal/usage"
)

// handler holds the HTTP handlers.
type handler struct {
	gw              *gateway.Gateway
	rec             usage.Recorder
	defaultProvider string
}

func newHandler(gw *gateway.Gateway, rec usage.Recorder, defaultProvider string) *handler {
	return &handler{
		gw:              gw,
		rec:             rec,
		defaultProvider: defaultProvider,
	}
}

// chatCompletionRequest is the HTTP request body for POST
// /v1/chat/completions. Provider selects the upstream; when empty the
// configured default applies.
type chatCompletionRequest struct {
	Provider    string         `json:"provider,omitempty"`
	Model       string         `json:"model,omitempty"`
	Messages    []core.Message `json:"messages"`
	Temperature *float64       `json:"temperature,omitempty"`
	MaxTokens   *int           `json:"max_tokens,omitempty"`
	Tools       []core.Tool    `json:"tools,omitempty"`
}

// ChatCompletion handles POST /v1/chat/completions.
func (h *handler) ChatCompletion(c echo.Context) error {
	var req chatCompletionRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}

	provider := req.Provider
	if provider == "" {
		provider = h.defaultProvider
	}

	var opts []gateway.CallOption
	if req.Model != "" {
		opts = append(opts, gateway.WithModel(req.Model))
	}
	if req.Temperature != nil {
		opts = append(opts, gateway.WithTemperature(*req.Temperature))
	}
	if req.MaxTokens != nil {
		opts = append(opts, gateway.WithMaxTokens(*req.MaxTokens))
	}

	ctx := c.Request().Context()
	var (
		resp *core.ChatResponse
		err  error
	)
	if len(req.Tools) > 0 {
		resp, err = h.gw.ChatWithTools(ctx, provider, req.Messages, req.Tools, opts...)
	} else {
		resp, err = h.gw.Chat(ctx, provider, req.Messages, opts...)
	}
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// providerInfo is one entry of GET /v1/providers.
type providerInfo struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name"`
	BaseURL      string `json:"base_url"`
	DefaultModel string `json:"default_model,omitempty"`
	WireFormat   string `json:"wire_format"`
}

// ListProviders handles GET /v1/providers.
func (h *handler) ListProviders(c echo.Context) error {
	descriptors := h.gw.Registry().List()
	out := make([]providerInfo, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, providerInfo{
			ID:           d.ID,
			DisplayName:  d.DisplayName,
			BaseURL:      d.BaseURL,
			DefaultModel: d.DefaultModel,
			WireFormat:   string(d.WireFormat),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"providers": out})
}

// RecentUsage handles GET /v1/usage?limit=N.
func (h *handler) RecentUsage(c echo.Context) error {
	if h.rec == nil {
		return c.JSON(http.StatusOK, map[string]any{"usage": []usage.Entry{}})
	}
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return handleError(c, core.NewInvalidRequestError("limit must be a positive integer", err))
		}
		limit = n
	}
	entries, err := h.rec.Recent(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"error": map[string]any{"code": "internal_error", "message": err.Error()},
		})
	}
	if entries == nil {
		entries = []usage.Entry{}
	}
	return c.JSON(http.StatusOK, map[string]any{"usage": entries})
}

// Health handles GET /health.
func (h *handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleError converts gateway errors to HTTP responses.
func handleError(c echo.Context, err error) error {
	var gwErr *core.GatewayError
	if errors.As(err, &gwErr) {
		return c.JSON(gwErr.HTTPStatusCode(), gwErr.ToJSON())
	}
	return c.JSON(http.StatusInternalServerError, map[string]any{
		"error": map[string]any{
			"code":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}
