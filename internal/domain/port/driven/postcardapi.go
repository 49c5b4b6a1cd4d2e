package driven

import (
	"context"

	"github.com/tbuchmann/postcarder/internal/domain/model"
)

// CardUpload is the prepared payload for one card submission. TextImage and
// Image are finished JPEGs at the backend's exact dimensions (720x744 and
// 1819x1311); the adapter base64-encodes them on the wire.
type CardUpload struct {
	Sender    model.Address
	Recipient model.Address
	TextImage []byte
	Image     []byte
	Paid      bool
}

// PostcardAPI defines the driven port for the backend's mobile REST API.
// Every method requires a valid bearer token baked into the implementation.
type PostcardAPI interface {
	// GetQuota returns the account's free-postcard allowance.
	GetQuota(ctx context.Context) (model.Quota, error)

	// GetUserInfo returns the raw user record of the authenticated account.
	GetUserInfo(ctx context.Context) (map[string]any, error)

	// GetBillingSaldo returns the raw online-billing account balance.
	GetBillingSaldo(ctx context.Context) (map[string]any, error)

	// UploadCard submits a prepared card and returns the order confirmation.
	UploadCard(ctx context.Context, card CardUpload) (model.OrderConfirmation, error)
}

// PictureFetcher defines the driven port for retrieving a postcard photo
// from a remote URL.
type PictureFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
