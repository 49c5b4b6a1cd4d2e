package identity

import (
	"context"
	"net/http"
	"net/url"
)

// legacyToken drives the SAML username/password flow:
// authorization request → credentials form post → SAML page scrape →
// assertion replay → code exchange.
func (f *Fetcher) legacyToken(ctx context.Context, session *http.Client, username, password string) (tokenResponse, error) {
	pk, err := newPKCE()
	if err != nil {
		return tokenResponse{}, err
	}

	if err := f.requestAuthorization(ctx, session, pk); err != nil {
		return tokenResponse{}, err
	}

	loginURL := f.loginURL()

	// Submit credentials. The response body is irrelevant; the post seeds
	// the IdP session.
	creds := url.Values{
		"isiwebuserid": {username},
		"isiwebpasswd": {password},
		"confirmLogin": {""},
	}
	resp, err := f.postForm(ctx, session, loginURL, creds, nil)
	if err != nil {
		return tokenResponse{}, flowErr(KindTransport, "legacy: submit credentials", loginURL, "login post failed", err)
	}
	discardBody(resp)

	// Re-request the login URL to obtain the SAML response page.
	resp, err = f.postForm(ctx, session, loginURL, nil, nil)
	if err != nil {
		return tokenResponse{}, flowErr(KindTransport, "legacy: fetch saml page", loginURL, "saml page post failed", err)
	}
	page, err := readBody(resp)
	if err != nil {
		return tokenResponse{}, flowErr(KindTransport, "legacy: fetch saml page", loginURL, "reading saml page failed", err)
	}

	assertion, ok := extractHiddenField(page, "SAMLResponse")
	if !ok {
		// The page renders without the assertion when the login was
		// rejected; this is the credentials signal, not a scrape bug.
		return tokenResponse{}, &FlowError{
			Kind:    KindAuthentication,
			Op:      "legacy: extract assertion",
			URL:     loginURL,
			Message: "SAMLResponse field absent, are the credentials valid?",
		}
	}
	relayState, _ := extractHiddenField(page, "RelayState")

	return f.finishCodeExchange(ctx, session, pk, assertion, relayState)
}

// requestAuthorization issues the shared OAuth authorization request that
// seeds the session with provider cookies, following all redirects.
func (f *Fetcher) requestAuthorization(ctx context.Context, session *http.Client, pk pkce) error {
	q := url.Values{
		"client_id":             {clientID},
		"response_type":         {"code"},
		"redirect_uri":          {redirectURI},
		"scope":                 {oauthScope},
		"response_mode":         {"query"},
		"state":                 {oauthState},
		"code_challenge":        {pk.Challenge},
		"code_challenge_method": {"S256"},
		"lang":                  {"en"},
	}
	authURL := f.endpoints.AuthorizationURL + "?" + q.Encode()

	resp, err := f.get(ctx, session, authURL)
	if err != nil {
		return flowErr(KindTransport, "authorization request", authURL, "request failed", err)
	}
	discardBody(resp)
	return nil
}

// loginURL builds the IdP login URL with its service-provider target query.
// The endpoint already ends in a bare "login" flag, hence the "&" join.
func (f *Fetcher) loginURL() string {
	q := url.Values{
		"targetURL":   {f.endpoints.SAMLServiceURL + "?redirect_uri=" + redirectURI},
		"profile":     {"default"},
		"app":         {"pccwebapi"},
		"inMobileApp": {"true"},
		"layoutType":  {"standard"},
	}
	return f.endpoints.LoginURL + "&" + q.Encode()
}
