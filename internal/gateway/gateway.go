// Package gateway is the single entry point for dispatching canonical chat
// requests to a configured provider. Each call is a stateless
// request/response exchange; the only state shared across calls is the
// immutable provider registry and the transport's connection pool.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"modelgate/internal/core"
	"modelgate/internal/httpclient"
	"modelgate/internal/registry"
	"modelgate/internal/usage"
	"modelgate/internal/wire"
)

// Credentials holds per-provider call configuration.
type Credentials struct {
	// APIKey authenticates against the provider.
	APIKey string
	// Model overrides the descriptor's default model when set.
	Model string
}

// Hooks receives one observation per completed call. outcome is "success"
// or the gateway error code.
type Hooks interface {
	Observe(provider, outcome string, elapsed time.Duration)
}

// Config holds the gateway's dependencies. The registry is explicit
// configuration injected at construction, not a hidden global, so tests can
// point descriptors at fake transports.
type Config struct {
	Registry    *registry.Registry
	HTTPClient  *http.Client
	Credentials map[string]Credentials
	Recorder    usage.Recorder
	Hooks       Hooks
	Logger      *slog.Logger
}

// Gateway dispatches canonical requests through the codec selected by the
// provider's wire format. Safe for concurrent use.
type Gateway struct {
	reg    *registry.Registry
	client *http.Client
	creds  map[string]Credentials
	rec    usage.Recorder
	hooks  Hooks
	logger *slog.Logger
}

// New creates a gateway. Zero-value dependencies fall back to the default
// registry, a default transport, and the default logger.
func New(cfg Config) *Gateway {
	g := &Gateway{
		reg:    cfg.Registry,
		client: cfg.HTTPClient,
		creds:  cfg.Credentials,
		rec:    cfg.Recorder,
		hooks:  cfg.Hooks,
		logger: cfg.Logger,
	}
	if g.reg == nil {
		g.reg = registry.NewDefault()
	}
	if g.client == nil {
		g.client = httpclient.NewDefault()
	}
	if g.creds == nil {
		g.creds = map[string]Credentials{}
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// Registry returns the gateway's provider table.
func (g *Gateway) Registry() *registry.Registry {
	return g.reg
}

// Chat dispatches a plain chat completion. Defaults: temperature 0.7,
// max_tokens 2048, no tools.
func (g *Gateway) Chat(ctx context.Context, providerID string, messages []core.Message, opts ...CallOption) (*core.ChatResponse, error) {
	req, err := g.buildRequest(providerID, messages, nil, core.DefaultTemperature, opts)
	if err != nil {
		return nil, err
	}
	return g.dispatch(ctx, providerID, req)
}

// ChatWithTools dispatches a chat completion carrying tool definitions with
// tool_choice forced to auto. Defaults: temperature 0.3, max_tokens 2048.
// When the provider's wire format cannot express tools, the call fails with
// an unsupported-feature error before any network exchange.
func (g *Gateway) ChatWithTools(ctx context.Context, providerID string, messages []core.Message, tools []core.Tool, opts ...CallOption) (*core.ChatResponse, error) {
	if len(tools) == 0 {
		return nil, core.NewInvalidRequestError("tools must not be empty", nil)
	}
	req, err := g.buildRequest(providerID, messages, tools, core.DefaultToolTemperature, opts)
	if err != nil {
		return nil, err
	}
	req.ToolChoice = core.ToolChoiceAuto
	return g.dispatch(ctx, providerID, req)
}

// buildRequest assembles and validates the canonical request. The model is
// resolved from call options, then credentials, then the descriptor default.
func (g *Gateway) buildRequest(providerID string, messages []core.Message, tools []core.Tool, defaultTemp float64, opts []CallOption) (*core.ChatRequest, error) {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}

	desc, err := g.reg.Lookup(providerID)
	if err != nil {
		return nil, err
	}

	model := desc.DefaultModel
	if cred, ok := g.creds[providerID]; ok && cred.Model != "" {
		model = cred.Model
	}
	if o.model != "" {
		model = o.model
	}

	temperature := defaultTemp
	if o.temperature != nil {
		temperature = *o.temperature
	}
	maxTokens := core.DefaultMaxTokens
	if o.maxTokens != nil {
		maxTokens = *o.maxTokens
	}

	req := &core.ChatRequest{
		Model:         model,
		Messages:      messages,
		Temperature:   &temperature,
		MaxTokens:     &maxTokens,
		Tools:         tools,
		ProviderHints: o.hints,
	}
	if err := req.Validate(); err != nil {
		return nil, core.NewInvalidRequestError(err.Error(), err)
	}
	return req, nil
}

// dispatch runs the full translate → exchange → normalize pipeline and
// guarantees a typed gateway error on every failure path.
func (g *Gateway) dispatch(ctx context.Context, providerID string, req *core.ChatRequest) (resp *core.ChatResponse, err error) {
	desc, err := g.reg.Lookup(providerID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			var gwErr *core.GatewayError
			if errors.As(err, &gwErr) {
				outcome = string(gwErr.Code)
			} else {
				outcome = string(core.ErrTransport)
			}
		}
		if g.hooks != nil {
			g.hooks.Observe(providerID, outcome, time.Since(start))
		}
	}()

	codec, ok := wire.ForFormat(desc.WireFormat)
	if !ok {
		return nil, core.NewUnsupportedFeatureError(providerID,
			"no codec registered for wire format "+string(desc.WireFormat))
	}

	// Capability gate: fail fast before dialing when the wire format
	// cannot carry the request's tools.
	if len(req.Tools) > 0 && !codec.SupportsTools() {
		return nil, core.NewUnsupportedFeatureError(providerID,
			"tool calling is not supported by the "+string(desc.WireFormat)+" wire format")
	}

	cred := g.creds[providerID]
	wreq, err := codec.Translate(req, desc, cred.APIKey)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, wreq.Method, wreq.URL, bytes.NewReader(wreq.Body))
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to create request", err)
	}
	for key, values := range wreq.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, core.NewTransportError(providerID, err)
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, core.NewTransportError(providerID, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, core.ClassifyHTTPError(providerID, httpResp.StatusCode, body)
	}

	resp, err = codec.Normalize(providerID, body)
	if err != nil {
		return nil, err
	}
	if resp.Model == "" {
		resp.Model = req.Model
	}

	if g.rec != nil {
		if entry := usage.NewEntry(providerID, resp); entry != nil {
			if recErr := g.rec.Record(ctx, entry); recErr != nil {
				g.logger.Warn("failed to record usage", "provider", providerID, "error", recErr)
			}
		}
	}

	g.logger.Debug("chat completion",
		"provider", providerID,
		"model", req.Model,
		"finish_reason", resp.FinishReason,
		"elapsed", time.Since(start),
	)
	return resp, nil
}
