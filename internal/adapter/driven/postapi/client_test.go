package postapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbuchmann/postcarder/internal/domain/model"
	"github.com/tbuchmann/postcarder/internal/domain/port/driven"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClientWithBaseURL(srv.URL, "token-123", srv.Client(), logger)
}

func TestGetQuota(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/quota", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		assert.Contains(t, r.Header.Get("User-Agent"), "Mobile Safari")

		fmt.Fprint(w, `{"model":{"quota":1,"end":"2024-03-02","retentionDays":10,"available":true}}`)
	}))

	q, err := c.GetQuota(context.Background())

	require.NoError(t, err)
	assert.Equal(t, model.Quota{
		Quota:         1,
		End:           "2024-03-02",
		RetentionDays: 10,
		Available:     true,
	}, q)
}

func TestGetQuota_Exhausted(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"model":{"quota":0,"available":false,"next":"2024-03-03"}}`)
	}))

	q, err := c.GetQuota(context.Background())

	require.NoError(t, err)
	assert.False(t, q.Available)
	assert.Equal(t, "2024-03-03", q.Next)
}

func TestGetUserInfo(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/current", r.URL.Path)
		fmt.Fprint(w, `{"model":{"name":"Max Muster","email":"max@example.com"}}`)
	}))

	info, err := c.GetUserInfo(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Max Muster", info["name"])
}

func TestGetBillingSaldo(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/billingOnline/accountSaldo", r.URL.Path)
		fmt.Fprint(w, `{"model":{"saldo":12.5}}`)
	}))

	saldo, err := c.GetBillingSaldo(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 12.5, saldo["saldo"])
}

func TestEnvelopeErrors(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"model":null,"errors":[{"code":"E42","description":"quota service down"}]}`)
	}))

	_, err := c.GetQuota(context.Background())

	require.Error(t, err)
	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "/user/quota", be.Endpoint)
	assert.Contains(t, be.Message, "E42")
	assert.Contains(t, be.Message, "quota service down")
}

func TestNonSuccessStatus(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, "token expired")
	}))

	_, err := c.GetQuota(context.Background())

	require.Error(t, err)
	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusUnauthorized, be.Status)
	assert.Contains(t, be.Message, "token expired")
}

func TestUploadCard(t *testing.T) {
	textImage := []byte("text-jpeg-bytes")
	image := []byte("photo-jpeg-bytes")

	var got map[string]any
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/card/upload", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"model":{"orderId":987654}}`)
	}))

	card := driven.CardUpload{
		Sender: model.Address{
			Firstname: "Max", Lastname: "Muster",
			Street: "Musterstrasse 1", Zip: "3000", City: "Bern",
		},
		Recipient: model.Address{
			Firstname: "Erika", Lastname: "Beispiel",
			Street: "Beispielweg 2", Zip: "8000", City: "Zürich",
			Country: "GERMANY", // Must be overridden on the wire.
		},
		TextImage: textImage,
		Image:     image,
	}

	confirmation, err := c.UploadCard(context.Background(), card)

	require.NoError(t, err)
	assert.Equal(t, int64(987654), confirmation.OrderID)

	assert.Equal(t, "en", got["lang"])
	assert.Equal(t, false, got["paid"])
	assert.Equal(t, "", got["text"])

	stamp, present := got["stamp"]
	assert.True(t, present)
	assert.Nil(t, stamp)

	recipient := got["recipient"].(map[string]any)
	assert.Equal(t, "SWITZERLAND", recipient["country"])
	assert.Equal(t, "Erika", recipient["firstname"])

	sender := got["sender"].(map[string]any)
	assert.Equal(t, "Max", sender["firstname"])
	_, hasCountry := sender["country"]
	assert.False(t, hasCountry)

	decoded, err := base64.StdEncoding.DecodeString(got["textImage"].(string))
	require.NoError(t, err)
	assert.Equal(t, textImage, decoded)

	decoded, err = base64.StdEncoding.DecodeString(got["image"].(string))
	require.NoError(t, err)
	assert.Equal(t, image, decoded)
}

func TestTransportErrorWrapped(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewClientWithBaseURL("http://127.0.0.1:1", "token", &http.Client{}, logger)

	_, err := c.GetQuota(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrTransport)
}
