package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/waraqa-store/api/internal/checkout"
	"github.com/waraqa-store/api/internal/database"
	"github.com/waraqa-store/api/internal/enum"
	"github.com/waraqa-store/api/internal/locations"
)

// Errors returned by the settings service.
var (
	ErrUnknownSetting     = errors.New("unknown setting key")
	ErrStoreEmailRequired = errors.New("store_email must be a valid email address")
	ErrInvalidThreshold   = errors.New("free_delivery_threshold must be a number >= 0")
	ErrUnknownGovernorate = errors.New("unknown governorate")
	ErrNegativeFee        = errors.New("delivery fee must be >= 0")
)

// SettingsStore defines the DB methods needed for store settings and fees.
// Satisfied by *database.Queries.
type SettingsStore interface {
	ListStoreSettings(ctx context.Context) ([]database.StoreSetting, error)
	UpsertStoreSetting(ctx context.Context, arg database.UpsertStoreSettingParams) error
	ListDeliveryFees(ctx context.Context) ([]database.DeliveryFee, error)
	UpsertDeliveryFee(ctx context.Context, arg database.UpsertDeliveryFeeParams) error
}

// NewSettingsStore creates a SettingsStore from a pool or tx.
type NewSettingsStore func(db database.DBTX) SettingsStore

// publicSettings are readable without authentication.
var publicSettings = map[string]bool{
	enum.SettingStorePhone:            true,
	enum.SettingFacebookURL:           true,
	enum.SettingInstagramURL:          true,
	enum.SettingWhatsappNumber:        true,
	enum.SettingVodafoneCashNumber:    true,
	enum.SettingFreeDeliveryThreshold: true,
}

// CheckoutConfig is what a checkout needs from the settings tables.
type CheckoutConfig struct {
	Rates              checkout.Rates
	VodafoneCashNumber string
}

// SettingsService reads and updates store_settings and delivery_fees.
// Nothing is cached: every checkout sees the current values.
type SettingsService struct {
	store    SettingsStore
	pool     TxBeginner
	newStore NewSettingsStore
}

func NewSettingsService(store SettingsStore, pool TxBeginner, newStore NewSettingsStore) *SettingsService {
	return &SettingsService{store: store, pool: pool, newStore: newStore}
}

// All returns every known setting key, empty when unset.
func (s *SettingsService) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.store.ListStoreSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	out := make(map[string]string, len(enum.SettingKeys))
	for _, k := range enum.SettingKeys {
		out[k] = ""
	}
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// Public returns the settings shown on the storefront.
func (s *SettingsService) Public(ctx context.Context) (map[string]string, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	for k := range all {
		if !publicSettings[k] {
			delete(all, k)
		}
	}
	return all, nil
}

// Update upserts the given settings in one transaction. store_email, when
// present, must be a valid address and the threshold a non-negative number.
func (s *SettingsService) Update(ctx context.Context, values map[string]string) error {
	values = maps.Clone(values)
	known := make(map[string]bool, len(enum.SettingKeys))
	for _, k := range enum.SettingKeys {
		known[k] = true
	}
	for k, v := range values {
		v = strings.TrimSpace(v)
		values[k] = v
		if !known[k] {
			return fmt.Errorf("%w: %s", ErrUnknownSetting, k)
		}
		switch k {
		case enum.SettingStoreEmail:
			if _, err := mail.ParseAddress(v); err != nil {
				return ErrStoreEmailRequired
			}
		case enum.SettingFreeDeliveryThreshold:
			if v == "" {
				values[k] = "0"
				continue
			}
			d, err := decimal.NewFromString(v)
			if err != nil || d.IsNegative() {
				return ErrInvalidThreshold
			}
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	for _, k := range enum.SettingKeys {
		v, ok := values[k]
		if !ok {
			continue
		}
		if err := store.UpsertStoreSetting(ctx, database.UpsertStoreSettingParams{Key: k, Value: v}); err != nil {
			return fmt.Errorf("upsert %s: %w", k, err)
		}
	}
	return tx.Commit(ctx)
}

// Fees returns the delivery fee table.
func (s *SettingsService) Fees(ctx context.Context) (checkout.FeeTable, error) {
	rows, err := s.store.ListDeliveryFees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list delivery fees: %w", err)
	}
	fees := make(checkout.FeeTable, len(rows))
	for _, r := range rows {
		fees[r.Governorate] = database.NumericToDecimal(r.Fee)
	}
	return fees, nil
}

// UpdateFees upserts fees for known governorates in one transaction.
func (s *SettingsService) UpdateFees(ctx context.Context, fees checkout.FeeTable) error {
	for g, fee := range fees {
		if !locations.Known(g) {
			return fmt.Errorf("%w: %s", ErrUnknownGovernorate, g)
		}
		if fee.IsNegative() {
			return fmt.Errorf("%w: %s", ErrNegativeFee, g)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	for _, g := range locations.Names() {
		fee, ok := fees[g]
		if !ok {
			continue
		}
		if err := store.UpsertDeliveryFee(ctx, database.UpsertDeliveryFeeParams{
			Governorate: g,
			Fee:         database.DecimalToNumeric(fee),
		}); err != nil {
			return fmt.Errorf("upsert fee %s: %w", g, err)
		}
	}
	return tx.Commit(ctx)
}

// Checkout loads the fee table, the free-delivery threshold and the wallet
// number. An unparsable threshold disables free delivery.
func (s *SettingsService) Checkout(ctx context.Context) (CheckoutConfig, error) {
	fees, err := s.Fees(ctx)
	if err != nil {
		return CheckoutConfig{}, err
	}
	settings, err := s.All(ctx)
	if err != nil {
		return CheckoutConfig{}, err
	}

	threshold := decimal.Zero
	if raw := settings[enum.SettingFreeDeliveryThreshold]; raw != "" {
		if d, err := decimal.NewFromString(raw); err == nil && !d.IsNegative() {
			threshold = d
		} else {
			log.Printf("WARN: ignoring free_delivery_threshold %q", raw)
		}
	}

	return CheckoutConfig{
		Rates:              checkout.Rates{Fees: fees, Threshold: threshold},
		VodafoneCashNumber: settings[enum.SettingVodafoneCashNumber],
	}, nil
}

// DeliveryRates is Checkout without the wallet number.
func (s *SettingsService) DeliveryRates(ctx context.Context) (checkout.Rates, error) {
	cfg, err := s.Checkout(ctx)
	if err != nil {
		return checkout.Rates{}, err
	}
	return cfg.Rates, nil
}
