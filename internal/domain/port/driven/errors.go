package driven

import "errors"

// Sentinel errors shared across adapters and services. Adapters wrap these
// (or implement Is against them) so callers branch with errors.Is instead of
// matching message text.
var (
	// ErrAuthenticationFailed means the identity provider rejected the
	// username/password combination.
	ErrAuthenticationFailed = errors.New("authentication failed: are the credentials valid?")

	// ErrProtocolChanged means an expected field, header, or redirect was
	// missing in a place that does not indicate bad credentials. It usually
	// means the provider changed its page or endpoint structure.
	ErrProtocolChanged = errors.New("identity provider did not behave as expected")

	// ErrTransport means the HTTP layer gave up after exhausting retries.
	ErrTransport = errors.New("transport failure")

	// ErrQuotaExceeded means the account has no free postcard left.
	ErrQuotaExceeded = errors.New("free postcard quota exceeded")

	// ErrInvalidPostcard means a card submission was missing required fields.
	ErrInvalidPostcard = errors.New("postcard is missing required fields")
)
