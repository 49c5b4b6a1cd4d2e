// Package postapi implements the PostcardAPI port against the backend's
// mobile REST API. All endpoints answer a {model, errors} JSON envelope;
// the adapter unwraps it and surfaces envelope errors as BackendError.
package postapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/tbuchmann/postcarder/internal/domain/model"
	"github.com/tbuchmann/postcarder/internal/domain/port/driven"
)

const (
	defaultBaseURL = "https://pccweb.api.post.ch/secure/api/mobile/v1"

	// userAgent must match the identity flows: the backend expects the
	// mobile browser it issued the token to.
	userAgent = "Mozilla/5.0 (Linux; Android 6.0.1; wv) AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Version/4.0 Chrome/52.0.2743.98 Mobile Safari/537.36"

	retryMax     = 5
	retryWaitMin = 500 * time.Millisecond
	retryWaitMax = 16 * time.Second
)

// BackendError reports a non-success HTTP status or an error entry inside
// an otherwise well-formed envelope.
type BackendError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend rejected %s (status %d): %s", e.Endpoint, e.Status, e.Message)
}

// Compile-time interface satisfaction check.
var _ driven.PostcardAPI = (*Client)(nil)

// Client implements the driven.PostcardAPI port. A Client is bound to one
// bearer token; build a fresh one after re-authenticating.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a Client against the production backend. The transport
// retries connect errors and transient server statuses (500, 502, 504) with
// exponential backoff.
func NewClient(token string, logger *slog.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = retryMax
	rc.RetryWaitMin = retryWaitMin
	rc.RetryWaitMax = retryWaitMax
	rc.Logger = nil
	rc.CheckRetry = checkRetry

	return NewClientWithBaseURL(defaultBaseURL, token, rc.StandardClient(), logger)
}

// NewClientWithBaseURL creates a Client with a custom base URL and
// http.Client. Intended for tests driving httptest servers.
func NewClientWithBaseURL(baseURL, token string, httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    httpClient,
		logger:  logger,
	}
}

func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	switch resp.StatusCode {
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusGatewayTimeout:
		return true, nil
	}
	return false, nil
}

// GetQuota returns the account's free-postcard allowance.
func (c *Client) GetQuota(ctx context.Context) (model.Quota, error) {
	raw, err := c.get(ctx, "/user/quota")
	if err != nil {
		return model.Quota{}, err
	}

	var q model.Quota
	if err := json.Unmarshal(raw, &q); err != nil {
		return model.Quota{}, fmt.Errorf("decoding quota model: %w", err)
	}
	return q, nil
}

// GetUserInfo returns the raw user record of the authenticated account.
func (c *Client) GetUserInfo(ctx context.Context) (map[string]any, error) {
	return c.getMap(ctx, "/user/current")
}

// GetBillingSaldo returns the raw online-billing account balance.
func (c *Client) GetBillingSaldo(ctx context.Context) (map[string]any, error) {
	return c.getMap(ctx, "/billingOnline/accountSaldo")
}

// UploadCard submits a prepared card. The images travel base64-encoded; the
// wire-level text field stays empty because the message is already rendered
// into the text image.
func (c *Client) UploadCard(ctx context.Context, card driven.CardUpload) (model.OrderConfirmation, error) {
	payload := uploadPayload{
		Lang:      "en",
		Paid:      card.Paid,
		Recipient: mapRecipient(card.Recipient),
		Sender:    mapSender(card.Sender),
		Text:      "",
		TextImage: base64.StdEncoding.EncodeToString(card.TextImage),
		Image:     base64.StdEncoding.EncodeToString(card.Image),
		Stamp:     nil,
	}

	raw, err := c.post(ctx, "/card/upload", payload)
	if err != nil {
		return model.OrderConfirmation{}, err
	}

	var confirmation struct {
		OrderID int64 `json:"orderId"`
	}
	if err := json.Unmarshal(raw, &confirmation); err != nil {
		return model.OrderConfirmation{}, fmt.Errorf("decoding upload confirmation: %w", err)
	}

	c.logger.Info("postcard submitted", "order_id", confirmation.OrderID)
	return model.OrderConfirmation{OrderID: confirmation.OrderID}, nil
}

// uploadPayload is the wire shape of POST /card/upload. Stamp is always
// null for this flow.
type uploadPayload struct {
	Lang      string           `json:"lang"`
	Paid      bool             `json:"paid"`
	Recipient recipientPayload `json:"recipient"`
	Sender    senderPayload    `json:"sender"`
	Text      string           `json:"text"`
	TextImage string           `json:"textImage"`
	Image     string           `json:"image"`
	Stamp     any              `json:"stamp"`
}

// The backend distinguishes the two address shapes: the sender carries no
// country or title, the recipient's country is forced to SWITZERLAND.
type senderPayload struct {
	City      string `json:"city"`
	Company   string `json:"company"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Street    string `json:"street"`
	Zip       string `json:"zip"`
}

type recipientPayload struct {
	City         string `json:"city"`
	Company      string `json:"company"`
	CompanyAddon string `json:"companyAddon"`
	Country      string `json:"country"`
	Firstname    string `json:"firstname"`
	Lastname     string `json:"lastname"`
	Street       string `json:"street"`
	Title        string `json:"title"`
	Zip          string `json:"zip"`
}

func mapSender(a model.Address) senderPayload {
	return senderPayload{
		City:      a.City,
		Company:   a.Company,
		Firstname: a.Firstname,
		Lastname:  a.Lastname,
		Street:    a.Street,
		Zip:       a.Zip,
	}
}

func mapRecipient(a model.Address) recipientPayload {
	return recipientPayload{
		City:         a.City,
		Company:      a.Company,
		CompanyAddon: a.CompanyAddition,
		Country:      "SWITZERLAND",
		Firstname:    a.Firstname,
		Lastname:     a.Lastname,
		Street:       a.Street,
		Title:        a.Salutation,
		Zip:          a.Zip,
	}
}

// envelope is the {model, errors} wrapper every endpoint answers with.
type envelope struct {
	Model  json.RawMessage `json:"model"`
	Errors []envelopeError `json:"errors"`
}

type envelopeError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e envelopeError) String() string {
	if e.Code == "" {
		return e.Description
	}
	return e.Code + ": " + e.Description
}

func (c *Client) getMap(ctx context.Context, endpoint string) (map[string]any, error) {
	raw, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decoding %s model: %w", endpoint, err)
	}
	return m, nil
}

func (c *Client) get(ctx context.Context, endpoint string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, endpoint, nil)
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", endpoint, err)
	}
	return c.do(ctx, http.MethodPost, endpoint, body)
}

// do performs one backend call and unwraps the envelope.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("building %s %s request: %w", method, endpoint, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("postcard api call", "method", method, "endpoint", endpoint)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", method, endpoint, driven.ErrTransport, err)
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", endpoint, err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
	default:
		return nil, &BackendError{Endpoint: endpoint, Status: resp.StatusCode, Message: string(text)}
	}

	var env envelope
	if err := json.Unmarshal(text, &env); err != nil {
		return nil, fmt.Errorf("decoding %s envelope: %w", endpoint, err)
	}
	if len(env.Errors) > 0 {
		msgs := make([]string, 0, len(env.Errors))
		for _, e := range env.Errors {
			msgs = append(msgs, e.String())
		}
		return nil, &BackendError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Message:  fmt.Sprintf("%v", msgs),
		}
	}
	return env.Model, nil
}
