package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
)

var (
	errMissingLocation = errors.New("no Location header in response")
	errMissingCode     = errors.New("no code parameter in redirect target")
)

// finishCodeExchange is the shared tail of both flows: replay the scraped
// SAML assertion to the OAuth consumer, pull the authorization code from the
// redirect it answers with, and exchange the code for an access token.
func (f *Fetcher) finishCodeExchange(ctx context.Context, session *http.Client, pk pkce, assertion, relayState string) (tokenResponse, error) {
	consumerURL := f.endpoints.OAuthConsumerURL

	headers := http.Header{}
	headers.Set("Origin", "https://account.post.ch")
	headers.Set("X-Requested-With", "ch.post.it.pcc")
	headers.Set("Upgrade-Insecure-Requests", "1")

	form := url.Values{
		"RelayState":   {relayState},
		"SAMLResponse": {assertion},
	}

	// The consumer redirects to the app's custom scheme, which no HTTP
	// client can follow; read the code out of the Location header instead.
	resp, err := f.postForm(ctx, noRedirect(session), consumerURL, form, headers)
	if err != nil {
		return tokenResponse{}, flowErr(KindTransport, "replay assertion", consumerURL, "consumer post failed", err)
	}
	discardBody(resp)

	code, err := codeFromLocation(resp.Header.Get("Location"))
	if err != nil {
		return tokenResponse{}, &FlowError{
			Kind:    KindProtocol,
			Op:      "replay assertion",
			URL:     consumerURL,
			Message: "response has no code attribute, did the endpoint break?",
			Err:     err,
		}
	}

	return f.exchangeCode(ctx, session, pk, code)
}

// exchangeCode trades the authorization code plus PKCE verifier for a token.
func (f *Fetcher) exchangeCode(ctx context.Context, session *http.Client, pk pkce, code string) (tokenResponse, error) {
	tokenURL := f.endpoints.TokenURL

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"code":          {code},
		"code_verifier": {pk.Verifier},
		"redirect_uri":  {redirectURI},
	}

	// The token request must not carry the IdP session cookies; post it
	// through a jarless client over the same retrying transport.
	client := &http.Client{Transport: session.Transport}
	resp, err := f.postForm(ctx, client, tokenURL, form, nil)
	if err != nil {
		return tokenResponse{}, flowErr(KindTransport, "exchange code", tokenURL, "token post failed", err)
	}
	body, err := readBody(resp)
	if err != nil {
		return tokenResponse{}, flowErr(KindTransport, "exchange code", tokenURL, "reading token response failed", err)
	}

	var tr tokenResponse
	if resp.StatusCode != http.StatusOK || json.Unmarshal(body, &tr) != nil || tr.AccessToken == "" {
		return tokenResponse{}, &FlowError{
			Kind:    KindProtocol,
			Op:      "exchange code",
			URL:     tokenURL,
			Message: "not able to fetch access token: " + string(body),
		}
	}

	return tr, nil
}

// codeFromLocation extracts the authorization code query parameter from a
// redirect target, tolerating the app's non-web custom scheme.
func codeFromLocation(location string) (string, error) {
	if location == "" {
		return "", errMissingLocation
	}
	u, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	code := u.Query().Get("code")
	if code == "" {
		return "", errMissingCode
	}
	return code, nil
}
