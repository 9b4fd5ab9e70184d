package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/waraqa-store/api/internal/checkout"
	"github.com/waraqa-store/api/internal/database"
	"github.com/waraqa-store/api/internal/enum"
	"github.com/waraqa-store/api/internal/storage"
)

// Store is the database surface of the function.
// Satisfied by *database.Queries.
type Store interface {
	CountRateLimitSince(ctx context.Context, arg database.CountRateLimitSinceParams) (int64, error)
	InsertRateLimit(ctx context.Context, identifier string) error
	DeleteRateLimitBefore(ctx context.Context, before time.Time) error
	ListStoreSettings(ctx context.Context) ([]database.StoreSetting, error)
}

// Options configures the function.
type Options struct {
	From string
	// To falls back to the store_email setting when empty.
	To           string
	RateLimit    int
	RateWindow   time.Duration
	SignedURLTTL time.Duration
}

// Result reports what the function did.
type Result struct {
	EmailID          string `json:"email_id"`
	TransferImageURL string `json:"transfer_image_url,omitempty"`
}

type Service struct {
	store  Store
	bucket storage.Bucket
	mailer Mailer
	opts   Options
	now    func() time.Time
}

func NewService(store Store, bucket storage.Bucket, mailer Mailer, opts Options) *Service {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Hour
	}
	if opts.SignedURLTTL <= 0 {
		opts.SignedURLTTL = 7 * 24 * time.Hour
	}
	return &Service{store: store, bucket: bucket, mailer: mailer, opts: opts, now: time.Now}
}

// Send rate-limits by sourceIP, validates p, stores the transfer image and
// emails the store.
func (s *Service) Send(ctx context.Context, sourceIP string, p Payload) (Result, error) {
	if err := s.checkRateLimit(ctx, sourceIP); err != nil {
		return Result{}, err
	}

	if err := p.Validate(); err != nil {
		return Result{}, err
	}

	var res Result
	if p.Payment.Method == enum.PaymentMethodVodafoneCash && p.Payment.TransferImageBase64 != "" {
		res.TransferImageURL = s.storeTransferImage(ctx, &p)
	}

	to := s.recipient(ctx)
	if to == "" {
		return res, fmt.Errorf("no order email recipient configured")
	}

	html, err := RenderEmail(&p, res.TransferImageURL)
	if err != nil {
		return res, fmt.Errorf("render email: %w", err)
	}

	id, err := s.mailer.Send(ctx, Email{
		From:    s.opts.From,
		To:      []string{to},
		Subject: Subject(&p),
		HTML:    html,
	})
	if err != nil {
		return res, fmt.Errorf("send email: %w", err)
	}
	res.EmailID = id
	return res, nil
}

// checkRateLimit logs the request and rejects it once the source has used
// its quota in the current window. Lookup failures never block an order.
func (s *Service) checkRateLimit(ctx context.Context, sourceIP string) error {
	if sourceIP == "" {
		sourceIP = "unknown"
	}
	key := "order_email:" + sourceIP
	now := s.now()

	count, err := s.store.CountRateLimitSince(ctx, database.CountRateLimitSinceParams{
		Identifier: key,
		CreatedAt:  now.Add(-s.opts.RateWindow),
	})
	if err != nil {
		log.Printf("ERROR: rate limit check: %v", err)
	} else if count >= int64(s.opts.RateLimit) {
		log.Printf("WARN: rate limit exceeded for %s", key)
		return ErrRateLimited
	}

	if err := s.store.InsertRateLimit(ctx, key); err != nil {
		log.Printf("ERROR: rate limit log: %v", err)
	}
	if err := s.store.DeleteRateLimitBefore(ctx, now.Add(-2*s.opts.RateWindow)); err != nil {
		log.Printf("ERROR: rate limit cleanup: %v", err)
	}
	return nil
}

// storeTransferImage uploads the proof and returns a signed URL, the public
// URL when signing fails, or "" when the upload itself fails. It never
// touches the order row: only the checkout flow records the URL there.
func (s *Service) storeTransferImage(ctx context.Context, p *Payload) string {
	proof, err := checkout.DecodeProof("transfer", p.Payment.TransferImageBase64)
	if err != nil {
		log.Printf("ERROR: decode transfer image: %v", err)
		return ""
	}
	contentType := p.Payment.TransferImageType
	if contentType == "" {
		contentType = proof.ContentType
	}
	if sniffed, err := storage.ValidateImage(proof.Data); err != nil {
		log.Printf("ERROR: transfer image rejected: %v", err)
		return ""
	} else if !strings.HasPrefix(contentType, "image/") {
		contentType = sniffed
	}

	key := storage.NewKey(storage.PrefixTransfers, "", contentType)
	if err := s.bucket.Upload(ctx, key, contentType, proof.Data); err != nil {
		log.Printf("ERROR: upload transfer image: %v", err)
		return ""
	}

	url, err := s.bucket.SignedURL(key, s.opts.SignedURLTTL)
	if err != nil {
		log.Printf("ERROR: sign transfer image url: %v", err)
		url = s.bucket.PublicURL(key)
	}
	return url
}

func (s *Service) recipient(ctx context.Context) string {
	if s.opts.To != "" {
		return s.opts.To
	}
	settings, err := s.store.ListStoreSettings(ctx)
	if err != nil {
		log.Printf("ERROR: load store settings: %v", err)
		return ""
	}
	for _, st := range settings {
		if st.Key == enum.SettingStoreEmail {
			return strings.TrimSpace(st.Value)
		}
	}
	return ""
}
