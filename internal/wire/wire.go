// Package wire defines the translator/normalizer capability implemented once
// per provider wire format. The gateway selects a codec by the descriptor's
// wire format tag, so new provider families plug in without touching the
// facade.
package wire

import (
	"net/http"

	"modelgate/internal/core"
	"modelgate/internal/registry"
)

// HTTPRequest is the provider-native request a codec produces: a complete
// URL (auth may live in the query string), headers (auth may live here
// instead), and a marshaled JSON body.
type HTTPRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Codec translates canonical requests into one wire format and normalizes
// that format's success bodies back into canonical responses.
// Implementations must be stateless and safe for concurrent use.
type Codec interface {
	// Format returns the wire format this codec speaks.
	Format() registry.WireFormat

	// SupportsTools reports whether tool/function definitions can be
	// expressed in this wire format. The facade consults this before any
	// network call so capability mismatches fail fast.
	SupportsTools() bool

	// Translate produces the provider's native HTTP request from a
	// canonical request, descriptor, and API key.
	Translate(req *core.ChatRequest, desc registry.Descriptor, apiKey string) (*HTTPRequest, error)

	// Normalize converts a provider success body into the canonical
	// response. An empty or missing text field is not an error; only a
	// body that fails the expected schema is.
	Normalize(providerID string, body []byte) (*core.ChatResponse, error)
}

// codecs holds all registered codecs, keyed by wire format. Codec packages
// register themselves from init(), mirroring provider self-registration.
var codecs = make(map[registry.WireFormat]Codec)

// Register adds a codec for a wire format. Called from init() functions in
// codec packages.
func Register(c Codec) {
	codecs[c.Format()] = c
}

// ForFormat returns the codec registered for the given wire format.
func ForFormat(f registry.WireFormat) (Codec, bool) {
	c, ok := codecs[f]
	return c, ok
}
