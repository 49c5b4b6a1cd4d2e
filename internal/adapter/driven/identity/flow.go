// Package identity implements the TokenFetcher port by impersonating the
// vendor's mobile app through its two web login flows: the legacy SAML
// username/password flow and the federated SwissID flow. There is no official
// API; both flows scrape live HTML pages, which makes this package the
// system's inherent fragility. All page/field extraction is concentrated in
// htmlform.go so provider markup drift is a one-place fix.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tbuchmann/postcarder/internal/domain/model"
	"github.com/tbuchmann/postcarder/internal/domain/port/driven"
)

// Constants embedded in the vendor's mobile app. Not caller-configurable;
// the whole flow is tied to this exact client registration.
const (
	clientID     = "ae9b9894f8728ca78800942cda638155"
	clientSecret = "89ff451ede545c3f408d792e8caaddf0"
	redirectURI  = "ch.post.pcc://auth/1016c75e-aa9c-493e-84b8-4eb3ba6177ef"
	oauthScope   = "PCCWEB offline_access"
	oauthState   = "abcd"

	// userAgent mimics the mobile browser the backend expects.
	userAgent = "Mozilla/5.0 (Linux; Android 6.0.1; wv) AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Version/4.0 Chrome/52.0.2743.98 Mobile Safari/537.36"
)

// Endpoints holds the identity-provider URLs driven by the flows.
// Overridable so tests can point the engine at httptest servers.
type Endpoints struct {
	// AuthorizationURL is the OAuth authorization endpoint that seeds the session.
	AuthorizationURL string
	// LoginURL is the IdP login endpoint including its bare "login" flag.
	LoginURL string
	// SAMLServiceURL is the service-provider target carried in the login query.
	SAMLServiceURL string
	// OAuthConsumerURL receives the replayed SAML assertion. The trailing
	// slash matters to the backend.
	OAuthConsumerURL string
	// TokenURL exchanges the authorization code for an access token.
	TokenURL string
	// SwissIDBaseURL is the root of the SwissID api-login endpoints.
	SwissIDBaseURL string
}

// DefaultEndpoints returns the production identity-provider endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		AuthorizationURL: "https://pccweb.api.post.ch/OAuth/authorization",
		LoginURL:         "https://account.post.ch/idp/?login",
		SAMLServiceURL:   "https://pccweb.api.post.ch/SAML/ServiceProvider/",
		OAuthConsumerURL: "https://pccweb.api.post.ch/OAuth/",
		TokenURL:         "https://pccweb.api.post.ch/OAuth/token",
		SwissIDBaseURL:   "https://login.swissid.ch",
	}
}

// Kind classifies a flow failure so callers can branch without matching
// message text.
type Kind string

const (
	// KindAuthentication means the provider rejected the credentials.
	KindAuthentication Kind = "authentication"
	// KindProtocol means an expected field, header, or redirect was absent
	// where bad credentials are not indicated — the provider likely changed.
	KindProtocol Kind = "protocol"
	// KindTransport means the HTTP layer failed after exhausting retries.
	KindTransport Kind = "transport"
)

// FlowError is the single reportable error type of the identity flows. It
// carries a discriminant Kind plus the step and URL that failed.
type FlowError struct {
	Kind    Kind
	Op      string // Flow step, e.g. "legacy: extract assertion".
	URL     string // Endpoint involved, when known.
	Message string
	Err     error
}

func (e *FlowError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Message)
	if e.URL != "" {
		msg += " (url: " + e.URL + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FlowError) Unwrap() error { return e.Err }

// Is maps the Kind discriminant onto the shared port sentinels, so
// errors.Is(err, driven.ErrAuthenticationFailed) works across layers.
func (e *FlowError) Is(target error) bool {
	switch target {
	case driven.ErrAuthenticationFailed:
		return e.Kind == KindAuthentication
	case driven.ErrProtocolChanged:
		return e.Kind == KindProtocol
	case driven.ErrTransport:
		return e.Kind == KindTransport
	}
	return false
}

// Compile-time interface satisfaction check.
var _ driven.TokenFetcher = (*Fetcher)(nil)

// Fetcher drives the credential-acquisition flows. It holds no per-attempt
// state: every FetchToken call owns its own session (cookie jar + PKCE
// material), so concurrent fetches for different users are safe.
type Fetcher struct {
	endpoints Endpoints
	now       func() time.Time
	logger    *slog.Logger
}

// NewFetcher creates a Fetcher against the production endpoints.
func NewFetcher(logger *slog.Logger) *Fetcher {
	return NewFetcherWithEndpoints(DefaultEndpoints(), logger)
}

// NewFetcherWithEndpoints creates a Fetcher against custom endpoints.
// Intended for tests driving httptest servers.
func NewFetcherWithEndpoints(ep Endpoints, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		endpoints: ep,
		now:       time.Now,
		logger:    logger,
	}
}

// FetchToken runs the selected login flow and returns a fresh bearer token.
// The mixed method tries the legacy flow first and falls back to SwissID on
// any legacy failure; the SwissID error, if any, is the one reported.
func (f *Fetcher) FetchToken(ctx context.Context, username, password string, method model.AuthMethod) (model.Token, error) {
	if !method.Valid() {
		return model.Token{}, fmt.Errorf("unknown auth method %q: choose mixed, legacy, or swissid", method)
	}

	var (
		resp           tokenResponse
		implementation model.AuthMethod
	)

	fetched := false
	if method != model.AuthMethodSwissID {
		f.logger.Debug("trying legacy username/password authentication")
		session, err := newSession()
		if err != nil {
			return model.Token{}, err
		}

		resp, err = f.legacyToken(ctx, session, username, password)
		if err == nil {
			fetched = true
			implementation = model.AuthMethodLegacy
		} else {
			if method != model.AuthMethodMixed {
				return model.Token{}, err
			}
			f.logger.Info("legacy authentication failed, falling back to swissid", "error", err)
		}
	}

	if method != model.AuthMethodLegacy && !fetched {
		f.logger.Debug("trying swissid authentication")
		session, err := newSession()
		if err != nil {
			return model.Token{}, err
		}

		resp, err = f.swissIDToken(ctx, session, username, password)
		if err != nil {
			return model.Token{}, err
		}
		implementation = model.AuthMethodSwissID
	}

	f.logger.Info("access token fetched", "implementation", implementation, "expires_in", resp.ExpiresIn)

	return model.Token{
		AccessToken:    resp.AccessToken,
		TokenType:      resp.TokenType,
		ExpiresIn:      resp.ExpiresIn,
		FetchedAt:      f.now(),
		Implementation: implementation,
	}, nil
}

// CheckCredentials reports whether a token fetch with the given credentials
// succeeds. Every call performs a full login.
func (f *Fetcher) CheckCredentials(ctx context.Context, username, password string, method model.AuthMethod) bool {
	_, err := f.FetchToken(ctx, username, password, method)
	return err == nil
}

// flowErr builds a FlowError, folding transport-level failures into
// KindTransport regardless of the kind the step suggests.
func flowErr(kind Kind, op, url, message string, err error) *FlowError {
	var fe *FlowError
	if errors.As(err, &fe) && fe.Kind == KindTransport {
		kind = KindTransport
	}
	return &FlowError{Kind: kind, Op: op, URL: url, Message: message, Err: err}
}

// tokenResponse maps the JSON returned by the token endpoint.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// noRedirect returns a copy of the client that surfaces redirects instead of
// following them. Used where the redirect target is the app's custom scheme.
func noRedirect(c *http.Client) *http.Client {
	cc := *c
	cc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &cc
}
