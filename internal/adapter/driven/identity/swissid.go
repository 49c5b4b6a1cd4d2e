package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

var gotoRe = regexp.MustCompile(`goto=(.*)$`)

// authState maps the JSON the SwissID api-login endpoints hand back between
// steps. Only the fields the flow consumes are modeled.
type authState struct {
	Tokens struct {
		AuthID string `json:"authId"`
	} `json:"tokens"`
	NextAction struct {
		Type       string `json:"type"`
		SuccessURL string `json:"successUrl"`
	} `json:"nextAction"`
}

// swissIDToken drives the federated SwissID flow: authorization request →
// federated-branch selection (redirect chain carrying the goto parameter) →
// status/welcome-pack/init warm-up → credentials submission → anomaly
// detection → login-result form replay → SAML scrape → shared code exchange.
func (f *Fetcher) swissIDToken(ctx context.Context, session *http.Client, username, password string) (tokenResponse, error) {
	pk, err := newPKCE()
	if err != nil {
		return tokenResponse{}, err
	}

	if err := f.requestAuthorization(ctx, session, pk); err != nil {
		return tokenResponse{}, err
	}

	gotoParam, err := f.selectFederatedBranch(ctx, session)
	if err != nil {
		return tokenResponse{}, err
	}

	// Every api-login call carries the same session query string.
	query := "locale=en&goto=" + gotoParam + "&acr_values=loa-1&realm=%2Fsesam&service=qoa1"
	apiLogin := f.endpoints.SwissIDBaseURL + "/api-login"

	// Warm-up calls. Bodies are irrelevant; they move provider-side session
	// state along.
	for _, step := range []string{
		apiLogin + "/authenticate/token/status?" + query,
		apiLogin + "/welcome-pack?" + query,
	} {
		resp, err := f.get(ctx, session, step)
		if err != nil {
			return tokenResponse{}, flowErr(KindTransport, "swissid: warm-up", step, "request failed", err)
		}
		discardBody(resp)
	}

	initURL := apiLogin + "/authenticate/init?" + query
	state, err := f.postAuthStep(ctx, session, initURL, nil, "")
	if err != nil {
		return tokenResponse{}, err
	}
	if state.Tokens.AuthID == "" {
		return tokenResponse{}, &FlowError{
			Kind:    KindProtocol,
			Op:      "swissid: init",
			URL:     initURL,
			Message: "init response carries no authId",
		}
	}

	basicURL := apiLogin + "/authenticate/basic?" + query
	credentials := map[string]string{"username": username, "password": password}
	state, err = f.postAuthStep(ctx, session, basicURL, credentials, state.Tokens.AuthID)
	if err != nil {
		return tokenResponse{}, err
	}

	state, err = f.anomalyDetection(ctx, session, state, query)
	if err != nil {
		return tokenResponse{}, err
	}

	successURL := state.NextAction.SuccessURL
	if successURL == "" {
		return tokenResponse{}, &FlowError{
			Kind:    KindAuthentication,
			Op:      "swissid: login result",
			Message: "no successUrl after device print, username/password wrong?",
		}
	}

	resp, err := f.get(ctx, session, successURL)
	if err != nil {
		return tokenResponse{}, flowErr(KindTransport, "swissid: follow success url", successURL, "request failed", err)
	}
	page, err := readBody(resp)
	if err != nil {
		return tokenResponse{}, flowErr(KindTransport, "swissid: follow success url", successURL, "reading page failed", err)
	}

	formAction, ok := extractFormAction(page, "LoginForm")
	if !ok {
		return tokenResponse{}, &FlowError{
			Kind:    KindProtocol,
			Op:      "swissid: login result",
			URL:     successURL,
			Message: "login result page carries no LoginForm",
		}
	}

	resp, err = f.postForm(ctx, session, formAction, nil, nil)
	if err != nil {
		return tokenResponse{}, flowErr(KindTransport, "swissid: submit login form", formAction, "request failed", err)
	}
	page, err = readBody(resp)
	if err != nil {
		return tokenResponse{}, flowErr(KindTransport, "swissid: submit login form", formAction, "reading page failed", err)
	}

	assertion, ok := extractHiddenField(page, "SAMLResponse")
	if !ok {
		return tokenResponse{}, &FlowError{
			Kind:    KindAuthentication,
			Op:      "swissid: extract assertion",
			URL:     formAction,
			Message: "SAMLResponse field absent, are the credentials valid?",
		}
	}
	relayState, _ := extractHiddenField(page, "RelayState")

	return f.finishCodeExchange(ctx, session, pk, assertion, relayState)
}

// selectFederatedBranch posts the externalIDP flag to the login endpoint and
// pulls the goto parameter out of the final redirect of the resulting chain.
// A chain with no redirects at all means the endpoint changed behavior.
func (f *Fetcher) selectFederatedBranch(ctx context.Context, session *http.Client) (string, error) {
	loginURL := f.loginURL()

	// Record the redirect chain while still following it. The URL of the
	// final request is the Location the last redirect pointed at.
	var redirects []*url.URL
	tracing := *session
	tracing.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 10 {
			return errors.New("stopped after 10 redirects")
		}
		redirects = append(redirects, req.URL)
		return nil
	}

	form := url.Values{"externalIDP": {"externalIDP"}}
	resp, err := f.postForm(ctx, &tracing, loginURL, form, nil)
	if err != nil {
		return "", flowErr(KindTransport, "swissid: select branch", loginURL, "login post failed", err)
	}
	discardBody(resp)

	if len(redirects) == 0 {
		return "", &FlowError{
			Kind:    KindProtocol,
			Op:      "swissid: select branch",
			URL:     loginURL,
			Message: "endpoint did not redirect as expected",
		}
	}

	last := redirects[len(redirects)-1].String()
	m := gotoRe.FindStringSubmatch(last)
	if m == nil {
		return "", &FlowError{
			Kind:    KindProtocol,
			Op:      "swissid: select branch",
			URL:     last,
			Message: "cannot fetch goto param from redirect target",
		}
	}

	// Drop any parameters trailing the goto value.
	gotoParam, _, _ := strings.Cut(m[1], "&")
	if gotoParam == "" {
		return "", &FlowError{
			Kind:    KindProtocol,
			Op:      "swissid: select branch",
			URL:     last,
			Message: "cannot fetch goto param from redirect target",
		}
	}
	return gotoParam, nil
}

// postAuthStep posts one api-login step (JSON body optional, authId header
// optional) and decodes the authState it returns.
func (f *Fetcher) postAuthStep(ctx context.Context, session *http.Client, stepURL string, payload any, authID string) (authState, error) {
	var headers http.Header
	if authID != "" {
		headers = http.Header{}
		headers.Set("authId", authID)
	}

	var (
		resp *http.Response
		err  error
	)
	if payload != nil {
		resp, err = f.postJSON(ctx, session, stepURL, payload, headers)
	} else {
		resp, err = f.postForm(ctx, session, stepURL, nil, headers)
	}
	if err != nil {
		return authState{}, flowErr(KindTransport, "swissid: auth step", stepURL, "request failed", err)
	}

	body, err := readBody(resp)
	if err != nil {
		return authState{}, flowErr(KindTransport, "swissid: auth step", stepURL, "reading response failed", err)
	}

	var state authState
	if err := json.Unmarshal(body, &state); err != nil {
		return authState{}, &FlowError{
			Kind:    KindProtocol,
			Op:      "swissid: auth step",
			URL:     stepURL,
			Message: "response is not the expected JSON: " + string(body),
			Err:     err,
		}
	}
	return state, nil
}
