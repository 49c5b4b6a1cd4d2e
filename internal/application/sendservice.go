package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tbuchmann/postcarder/internal/domain/model"
	"github.com/tbuchmann/postcarder/internal/domain/port/driven"
	"github.com/tbuchmann/postcarder/internal/render"
)

// TokenSource yields a usable bearer token for a username/password pair.
// Implemented by TokenService.
type TokenSource interface {
	Token(ctx context.Context, username, password string) (model.Token, error)
}

// APIFactory builds a PostcardAPI client bound to a bearer token. Clients
// are token-scoped because the backend ties every call to the bearer.
type APIFactory func(token string) driven.PostcardAPI

// SendOptions tunes one card submission.
type SendOptions struct {
	// MockSend logs the prepared payload instead of uploading. The backend
	// is still contacted for the token but never for the upload.
	MockSend bool
	// Paid skips the free-quota gate and submits a paid card.
	Paid bool
	// PictureURL is fetched when the postcard carries no picture bytes.
	PictureURL string
}

// SendService prepares and submits postcards: validation, photo scaling,
// text rendering, quota gating, upload. It also exposes the plain account
// reads (quota, user info, billing saldo) under the same credentials.
type SendService struct {
	tokens      TokenSource
	newAPI      APIFactory
	pictures    driven.PictureFetcher
	logger      *slog.Logger
	imageExport bool
}

// NewSendService creates a SendService. imageExport enables debug export of
// every rendered image to the local export directory.
func NewSendService(tokens TokenSource, newAPI APIFactory, pictures driven.PictureFetcher, imageExport bool, logger *slog.Logger) *SendService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SendService{
		tokens:      tokens,
		newAPI:      newAPI,
		pictures:    pictures,
		logger:      logger,
		imageExport: imageExport,
	}
}

// SendCard validates and submits one postcard. It returns nil without error
// when MockSend is set: the card was prepared but deliberately not sent.
func (s *SendService) SendCard(ctx context.Context, username, password string, card model.Postcard, opts SendOptions) (*model.OrderConfirmation, error) {
	if len(card.Picture) == 0 && opts.PictureURL != "" {
		data, err := s.pictures.Fetch(ctx, opts.PictureURL)
		if err != nil {
			return nil, err
		}
		card.Picture = data
	}

	if err := validateCard(card); err != nil {
		return nil, err
	}

	tok, err := s.tokens.Token(ctx, username, password)
	if err != nil {
		return nil, err
	}
	api := s.newAPI(tok.AccessToken)

	textImage, err := render.RenderText(card.Message, render.TextOptions{Export: s.imageExport})
	if err != nil {
		return nil, fmt.Errorf("rendering text image: %w", err)
	}

	coverImage, err := render.ScalePhoto(card.Picture, render.PhotoOptions{
		Rotate:       true,
		FallbackFill: true,
		Export:       s.imageExport,
	})
	if err != nil {
		return nil, fmt.Errorf("scaling photo: %w", err)
	}

	upload := driven.CardUpload{
		Sender:    card.Sender,
		Recipient: card.Recipient,
		TextImage: textImage,
		Image:     coverImage,
		Paid:      opts.Paid,
	}

	if opts.MockSend {
		s.logger.Info("mock send, upload skipped",
			"recipient", card.Recipient.Lastname,
			"paid", opts.Paid,
			"text_image_bytes", len(textImage),
			"cover_image_bytes", len(coverImage),
		)
		return nil, nil
	}

	if !opts.Paid {
		quota, err := api.GetQuota(ctx)
		if err != nil {
			return nil, err
		}
		if !quota.Available {
			return nil, fmt.Errorf("%w: free allowance used up, try again at %s",
				driven.ErrQuotaExceeded, quota.Next)
		}
	}

	confirmation, err := api.UploadCard(ctx, upload)
	if err != nil {
		return nil, err
	}

	s.logger.Info("postcard sent", "order_id", confirmation.OrderID)
	return &confirmation, nil
}

// Quota returns the free-postcard allowance of the account.
func (s *SendService) Quota(ctx context.Context, username, password string) (model.Quota, error) {
	api, err := s.api(ctx, username, password)
	if err != nil {
		return model.Quota{}, err
	}
	return api.GetQuota(ctx)
}

// UserInfo returns the raw user record of the account.
func (s *SendService) UserInfo(ctx context.Context, username, password string) (map[string]any, error) {
	api, err := s.api(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return api.GetUserInfo(ctx)
}

// BillingSaldo returns the raw online-billing balance of the account.
func (s *SendService) BillingSaldo(ctx context.Context, username, password string) (map[string]any, error) {
	api, err := s.api(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return api.GetBillingSaldo(ctx)
}

func (s *SendService) api(ctx context.Context, username, password string) (driven.PostcardAPI, error) {
	tok, err := s.tokens.Token(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return s.newAPI(tok.AccessToken), nil
}

// validateCard enforces the minimum the backend needs: complete addresses
// and a picture. An empty message is allowed; it renders a blank text side.
func validateCard(card model.Postcard) error {
	if !card.Sender.Complete() {
		return fmt.Errorf("%w: sender address incomplete", driven.ErrInvalidPostcard)
	}
	if !card.Recipient.Complete() {
		return fmt.Errorf("%w: recipient address incomplete", driven.ErrInvalidPostcard)
	}
	if len(card.Picture) == 0 {
		return fmt.Errorf("%w: picture missing", driven.ErrInvalidPostcard)
	}
	return nil
}
