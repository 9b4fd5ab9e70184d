package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/waraqa-store/api/internal/database"
	"github.com/waraqa-store/api/internal/storage"
)

// --- Mocks ---

type mockStore struct {
	countFn  func(ctx context.Context, arg database.CountRateLimitSinceParams) (int64, error)
	inserted []string
	purgedAt time.Time
	settings []database.StoreSetting
}

func (m *mockStore) CountRateLimitSince(ctx context.Context, arg database.CountRateLimitSinceParams) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx, arg)
	}
	return 0, nil
}

func (m *mockStore) InsertRateLimit(ctx context.Context, identifier string) error {
	m.inserted = append(m.inserted, identifier)
	return nil
}

func (m *mockStore) DeleteRateLimitBefore(ctx context.Context, before time.Time) error {
	m.purgedAt = before
	return nil
}

func (m *mockStore) ListStoreSettings(ctx context.Context) ([]database.StoreSetting, error) {
	return m.settings, nil
}

type mockMailer struct {
	sent []Email
	err  error
}

func (m *mockMailer) Send(ctx context.Context, e Email) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, e)
	return "email-1", nil
}

// --- Helpers ---

var pngData = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func validPayload() Payload {
	return Payload{
		Customer:        Customer{Name: "سارة علي", Phone: "01112345678"},
		DeliveryAddress: Address{Governorate: "الجيزة", City: "Haram", FullAddress: "12 شارع الهرم، الدور الأول"},
		Payment:         Payment{Method: "cod"},
		Items: []Item{
			{Name: "كشكول 100 ورقة", Price: decimal.NewFromInt(45), Discount: dec("5"), Quantity: 2},
		},
		Subtotal:    dec("80"),
		DeliveryFee: dec("50"),
		Total:       decimal.NewFromInt(130),
		OrderDate:   "2026-03-01T10:30:00Z",
	}
}

func newTestService(t *testing.T, store *mockStore, mailer *mockMailer) (*Service, *storage.Disk) {
	t.Helper()
	bucket, err := storage.NewDisk(t.TempDir(), "http://files.test", "secret")
	if err != nil {
		t.Fatalf("disk: %v", err)
	}
	svc := NewService(store, bucket, mailer, Options{
		From:       "Store Orders <orders@waraqa.test>",
		To:         "owner@waraqa.test",
		RateLimit:  5,
		RateWindow: time.Hour,
	})
	return svc, bucket
}

// --- Tests ---

func TestSend_Success(t *testing.T) {
	store := &mockStore{}
	mailer := &mockMailer{}
	svc, _ := newTestService(t, store, mailer)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	res, err := svc.Send(context.Background(), "10.0.0.1", validPayload())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.EmailID != "email-1" {
		t.Errorf("expected email id, got %q", res.EmailID)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(mailer.sent))
	}
	e := mailer.sent[0]
	if e.To[0] != "owner@waraqa.test" || !strings.Contains(e.Subject, "سارة علي") {
		t.Errorf("unexpected email envelope %+v", e)
	}
	for _, want := range []string{"الدفع عند الاستلام", "40.00 ج.م", "80.00 ج.م", "130.00 ج.م", "line-through"} {
		if !strings.Contains(e.HTML, want) {
			t.Errorf("email html missing %q", want)
		}
	}
	if len(store.inserted) != 1 || store.inserted[0] != "order_email:10.0.0.1" {
		t.Errorf("expected rate limit log row, got %v", store.inserted)
	}
	if !store.purgedAt.Equal(now.Add(-2 * time.Hour)) {
		t.Errorf("expected purge before %v, got %v", now.Add(-2*time.Hour), store.purgedAt)
	}
}

func TestSend_RateLimited(t *testing.T) {
	store := &mockStore{
		countFn: func(ctx context.Context, arg database.CountRateLimitSinceParams) (int64, error) {
			return 5, nil
		},
	}
	mailer := &mockMailer{}
	svc, _ := newTestService(t, store, mailer)

	_, err := svc.Send(context.Background(), "10.0.0.1", validPayload())
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if len(mailer.sent) != 0 || len(store.inserted) != 0 {
		t.Error("a rejected request must not send or be logged")
	}
}

func TestSend_RateLimitLookupFailureIgnored(t *testing.T) {
	store := &mockStore{
		countFn: func(ctx context.Context, arg database.CountRateLimitSinceParams) (int64, error) {
			return 0, errors.New("db down")
		},
	}
	mailer := &mockMailer{}
	svc, _ := newTestService(t, store, mailer)

	if _, err := svc.Send(context.Background(), "", validPayload()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.inserted[0] != "order_email:unknown" {
		t.Errorf("expected unknown source key, got %v", store.inserted)
	}
}

func TestSend_InvalidPayload(t *testing.T) {
	mailer := &mockMailer{}
	svc, _ := newTestService(t, &mockStore{}, mailer)

	p := validPayload()
	p.Customer.Phone = "0101234567"
	p.Items = nil

	_, err := svc.Send(context.Background(), "10.0.0.1", p)
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
	var perr *PayloadError
	if !errors.As(err, &perr) || len(perr.Details) != 2 {
		t.Errorf("expected 2 details, got %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Error("no email for invalid payload")
	}
}

func TestSend_VodafoneCashUploadsTransfer(t *testing.T) {
	mailer := &mockMailer{}
	svc, bucket := newTestService(t, &mockStore{}, mailer)

	p := validPayload()
	p.OrderID = uuid.New().String()
	p.Payment = Payment{
		Method:              "vodafone_cash",
		TransferImageBase64: base64.StdEncoding.EncodeToString(pngData),
		TransferImageType:   "image/png",
	}

	res, err := svc.Send(context.Background(), "10.0.0.1", p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(res.TransferImageURL, "http://files.test/files/transfers/") || !strings.Contains(res.TransferImageURL, "signature=") {
		t.Fatalf("expected signed transfer url, got %q", res.TransferImageURL)
	}
	key := strings.TrimPrefix(strings.SplitN(res.TransferImageURL, "?", 2)[0], "http://files.test/files/")
	obj, err := bucket.Open(key)
	if err != nil {
		t.Fatalf("uploaded object missing: %v", err)
	}
	obj.Close()
	if !strings.Contains(mailer.sent[0].HTML, "إيصال التحويل") {
		t.Error("email should show the transfer image")
	}
}

func TestSend_BadTransferImageStillSends(t *testing.T) {
	mailer := &mockMailer{}
	svc, _ := newTestService(t, &mockStore{}, mailer)

	p := validPayload()
	p.Payment = Payment{Method: "vodafone_cash", TransferImageBase64: base64.StdEncoding.EncodeToString([]byte("plain text"))}

	res, err := svc.Send(context.Background(), "10.0.0.1", p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TransferImageURL != "" {
		t.Errorf("expected no transfer url, got %q", res.TransferImageURL)
	}
	if len(mailer.sent) != 1 {
		t.Error("email should still be sent")
	}
}

func TestSend_EscapesCustomerInput(t *testing.T) {
	mailer := &mockMailer{}
	svc, _ := newTestService(t, &mockStore{}, mailer)

	p := validPayload()
	p.Customer.Name = `<script>alert(1)</script>`
	if _, err := svc.Send(context.Background(), "10.0.0.1", p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	html := mailer.sent[0].HTML
	if strings.Contains(html, "<script>alert(1)</script>") {
		t.Error("customer name must be escaped")
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Error("expected escaped name in html")
	}
}

func TestSend_RecipientFromSettings(t *testing.T) {
	store := &mockStore{settings: []database.StoreSetting{{Key: "store_email", Value: " shop@waraqa.test "}}}
	mailer := &mockMailer{}
	svc, _ := newTestService(t, store, mailer)
	svc.opts.To = ""

	if _, err := svc.Send(context.Background(), "10.0.0.1", validPayload()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mailer.sent[0].To[0] != "shop@waraqa.test" {
		t.Errorf("expected settings recipient, got %v", mailer.sent[0].To)
	}
}

func TestSend_NoRecipient(t *testing.T) {
	svc, _ := newTestService(t, &mockStore{}, &mockMailer{})
	svc.opts.To = ""

	if _, err := svc.Send(context.Background(), "10.0.0.1", validPayload()); err == nil {
		t.Fatal("expected error without recipient")
	}
}

func TestSend_MailerFailure(t *testing.T) {
	svc, _ := newTestService(t, &mockStore{}, &mockMailer{err: errors.New("provider down")})

	if _, err := svc.Send(context.Background(), "10.0.0.1", validPayload()); err == nil {
		t.Fatal("expected mailer error")
	}
}

func TestValidate_PartialPayment(t *testing.T) {
	p := validPayload()
	p.Payment = Payment{Method: "partial", PrepaidAmount: dec("39"), RemainingAmount: dec("91"), PrepaidVia: "instapay"}
	if err := p.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	html, err := RenderEmail(&p, "")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "39.00 ج.م عبر انستاباي") {
		t.Error("expected prepaid line")
	}
}

func TestValidate_ItemBounds(t *testing.T) {
	p := validPayload()
	p.Items[0].Quantity = 1001
	p.Items[0].Price = decimal.NewFromInt(-1)
	var perr *PayloadError
	if err := p.Validate(); !errors.As(err, &perr) || len(perr.Details) != 2 {
		t.Errorf("expected quantity and price violations, got %v", err)
	}
}

func TestResendMailer(t *testing.T) {
	var got Email
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer re_test" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"bad key"}`))
			return
		}
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"id":"abc-123"}`))
	}))
	defer srv.Close()

	pointAt := func(m *ResendMailer) *ResendMailer {
		u, err := url.Parse(srv.URL + "/")
		if err != nil {
			t.Fatalf("parse url: %v", err)
		}
		m.client.BaseURL = u
		return m
	}

	m := pointAt(NewResendMailer("re_test"))
	id, err := m.Send(context.Background(), Email{From: "a@b.c", To: []string{"d@e.f"}, Subject: "s", HTML: "<p>x</p>"})
	if err != nil || id != "abc-123" {
		t.Fatalf("unexpected result %q %v", id, err)
	}
	if path != "/emails" {
		t.Errorf("path: got %q, want /emails", path)
	}
	if got.Subject != "s" || got.To[0] != "d@e.f" || got.HTML != "<p>x</p>" {
		t.Errorf("unexpected request body %+v", got)
	}

	bad := pointAt(NewResendMailer("wrong"))
	if _, err := bad.Send(context.Background(), Email{}); err == nil || !strings.Contains(err.Error(), "bad key") {
		t.Errorf("expected provider message in error, got %v", err)
	}

	if _, err := NewResendMailer("").Send(context.Background(), Email{}); err == nil {
		t.Error("expected error without api key")
	}
}
