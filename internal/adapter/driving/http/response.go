package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tbuchmann/postcarder/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// TokenResponse is the JSON representation of a fetched bearer token.
type TokenResponse struct {
	AccessToken    string `json:"access_token"`
	TokenType      string `json:"token_type"`
	ExpiresAt      string `json:"expires_at"`
	Implementation string `json:"implementation"`
}

func toTokenResponse(tok model.Token) TokenResponse {
	return TokenResponse{
		AccessToken:    tok.AccessToken,
		TokenType:      tok.TokenType,
		ExpiresAt:      tok.ExpiresAt().UTC().Format(time.RFC3339),
		Implementation: string(tok.Implementation),
	}
}

// AddressPayload is the JSON shape of a sender or recipient address.
type AddressPayload struct {
	Firstname       string `json:"firstname"`
	Lastname        string `json:"lastname"`
	Street          string `json:"street"`
	Zip             string `json:"zip"`
	City            string `json:"city"`
	Company         string `json:"company,omitempty"`
	CompanyAddition string `json:"company_addition,omitempty"`
	Salutation      string `json:"salutation,omitempty"`
}

func (p AddressPayload) toAddress() model.Address {
	return model.Address{
		Firstname:       p.Firstname,
		Lastname:        p.Lastname,
		Street:          p.Street,
		Zip:             p.Zip,
		City:            p.City,
		Company:         p.Company,
		CompanyAddition: p.CompanyAddition,
		Salutation:      p.Salutation,
	}
}

// SendCardRequest is the JSON body for the send-card endpoint. Exactly one
// of picture (base64 bytes) or picture_url must be set.
type SendCardRequest struct {
	Sender     AddressPayload `json:"sender"`
	Recipient  AddressPayload `json:"recipient"`
	Message    string         `json:"message"`
	Picture    string         `json:"picture,omitempty"`
	PictureURL string         `json:"picture_url,omitempty"`
	MockSend   bool           `json:"mock_send,omitempty"`
	Paid       bool           `json:"paid,omitempty"`
}

// SendCardResponse reports the outcome of a send-card request. Sent is false
// for mock sends, which prepare everything but skip the upload.
type SendCardResponse struct {
	Sent    bool  `json:"sent"`
	OrderID int64 `json:"order_id,omitempty"`
}
