package chat

import (
	"errors"
	"fmt"
)

// ErrAuthMissing reports that no credential could be resolved for the
// selected provider. It is returned before any network traffic happens.
var ErrAuthMissing = errors.New("no api credential configured")

// ErrVendorError marks errors carried inside an otherwise healthy stream,
// such as an OpenAI error object or an Anthropic error event.
var ErrVendorError = errors.New("vendor reported error")

// CapabilityError reports a request that needs a capability the provider
// descriptor does not advertise, for example image input on a text-only
// model. Raised before the payload is built.
type CapabilityError struct {
	Provider   string
	Capability string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("provider %s does not support %s", e.Provider, e.Capability)
}

// NewCapabilityError builds a CapabilityError for the given provider id.
func NewCapabilityError(provider, capability string) *CapabilityError {
	return &CapabilityError{Provider: provider, Capability: capability}
}
