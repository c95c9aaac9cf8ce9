package gateway

// callOptions collects per-call overrides.
type callOptions struct {
	model       string
	temperature *float64
	maxTokens   *int
	hints       map[string]any
}

// CallOption customizes a single gateway call.
type CallOption func(*callOptions)

// WithModel overrides the provider's configured model for this call.
func WithModel(model string) CallOption {
	return func(o *callOptions) { o.model = model }
}

// WithTemperature overrides the default sampling temperature.
func WithTemperature(t float64) CallOption {
	return func(o *callOptions) { o.temperature = &t }
}

// WithMaxTokens overrides the default completion token limit.
func WithMaxTokens(n int) CallOption {
	return func(o *callOptions) { o.maxTokens = &n }
}

// WithProviderHints attaches an opaque hint map forwarded to the translator.
func WithProviderHints(hints map[string]any) CallOption {
	return func(o *callOptions) { o.hints = hints }
}
