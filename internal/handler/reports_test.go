package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/waraqa-store/api/internal/database"
	"github.com/waraqa-store/api/internal/handler"
)

// --- Mock Store ---

type mockReportsStore struct {
	dailySales      []database.GetDailySalesRow
	productSales    []database.GetProductSalesRow
	dailySalesErr   error
	productSalesErr error

	lastDaily database.GetDailySalesParams
}

func (m *mockReportsStore) GetDailySales(ctx context.Context, arg database.GetDailySalesParams) ([]database.GetDailySalesRow, error) {
	m.lastDaily = arg
	if m.dailySalesErr != nil {
		return nil, m.dailySalesErr
	}
	return m.dailySales, nil
}

func (m *mockReportsStore) GetProductSales(ctx context.Context, arg database.GetProductSalesParams) ([]database.GetProductSalesRow, error) {
	if m.productSalesErr != nil {
		return nil, m.productSalesErr
	}
	return m.productSales, nil
}

// --- Test Helpers ---

func toDate(s string) pgtype.Date {
	t, _ := time.Parse("2006-01-02", s)
	return pgtype.Date{Time: t, Valid: true}
}

func setupReportsRouter(store handler.ReportsStore) http.Handler {
	h := handler.NewReportsHandler(store)
	r := chi.NewRouter()
	r.Route("/admin/reports", h.RegisterRoutes)
	return r
}

// --- Daily Sales Tests ---

func TestDailySales(t *testing.T) {
	store := &mockReportsStore{
		dailySales: []database.GetDailySalesRow{
			{
				SaleDate:      toDate("2026-02-01"),
				OrderCount:    10,
				TotalSubtotal: money("1500"),
				TotalDelivery: money("400"),
				TotalRevenue:  money("1900"),
			},
			{
				SaleDate:      toDate("2026-02-02"),
				OrderCount:    4,
				TotalSubtotal: money("620.5"),
				TotalDelivery: money("0"),
				TotalRevenue:  money("620.5"),
			},
		},
	}
	router := setupReportsRouter(store)

	rr := doRequest(t, router, http.MethodGet, "/admin/reports/daily-sales?start_date=2026-02-01&end_date=2026-02-02", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	resp := decodeList(t, rr)
	if len(resp) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(resp))
	}
	if resp[0]["date"] != "2026-02-01" {
		t.Errorf("expected date 2026-02-01, got %v", resp[0]["date"])
	}
	if resp[0]["order_count"] != float64(10) {
		t.Errorf("expected order_count 10, got %v", resp[0]["order_count"])
	}
	if resp[1]["total_revenue"] != "620.50" {
		t.Errorf("expected total_revenue 620.50, got %v", resp[1]["total_revenue"])
	}
}

func TestDailySales_RangeInStoreTime(t *testing.T) {
	store := &mockReportsStore{dailySales: []database.GetDailySalesRow{}}
	router := setupReportsRouter(store)

	rr := doRequest(t, router, http.MethodGet, "/admin/reports/daily-sales?start_date=2026-02-01&end_date=2026-02-01", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	start, end := store.lastDaily.CreatedAt.Time, store.lastDaily.CreatedAt_2.Time
	if got := end.Sub(start); got != 24*time.Hour {
		t.Errorf("single-day range should span 24h, got %v", got)
	}
	// Cairo is UTC+2 in February.
	if want := time.Date(2026, 1, 31, 22, 0, 0, 0, time.UTC); !start.UTC().Equal(want) {
		t.Errorf("start: got %v, want %v", start.UTC(), want)
	}
}

func TestDailySales_DefaultDateRange(t *testing.T) {
	store := &mockReportsStore{dailySales: []database.GetDailySalesRow{}}
	router := setupReportsRouter(store)

	rr := doRequest(t, router, http.MethodGet, "/admin/reports/daily-sales", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if got := store.lastDaily.CreatedAt_2.Time.Sub(store.lastDaily.CreatedAt.Time); got < 30*24*time.Hour {
		t.Errorf("default range too short: %v", got)
	}
}

func TestDailySales_InvalidDate(t *testing.T) {
	router := setupReportsRouter(&mockReportsStore{})

	for _, q := range []string{"start_date=invalid", "end_date=02-02-2026", "start_date=2026-02-10&end_date=2026-02-01"} {
		rr := doRequest(t, router, http.MethodGet, "/admin/reports/daily-sales?"+q, nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", q, rr.Code)
		}
	}
}

func TestDailySales_EmptyResult(t *testing.T) {
	store := &mockReportsStore{dailySales: []database.GetDailySalesRow{}}
	router := setupReportsRouter(store)

	rr := doRequest(t, router, http.MethodGet, "/admin/reports/daily-sales?start_date=2026-02-01&end_date=2026-02-02", nil)
	if resp := decodeList(t, rr); len(resp) != 0 {
		t.Errorf("expected empty array, got %d items", len(resp))
	}
}

func TestDailySales_StoreError(t *testing.T) {
	router := setupReportsRouter(&mockReportsStore{dailySalesErr: errors.New("db down")})

	rr := doRequest(t, router, http.MethodGet, "/admin/reports/daily-sales", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rr.Code)
	}
}

// --- Product Sales Tests ---

func TestProductSales(t *testing.T) {
	store := &mockReportsStore{
		productSales: []database.GetProductSalesRow{
			{ProductName: "كراسة سلك 100 ورقة", QuantitySold: 50, TotalRevenue: money("1250")},
			{ProductName: "قلم جاف أزرق", QuantitySold: 30, TotalRevenue: money("150")},
		},
	}
	router := setupReportsRouter(store)

	rr := doRequest(t, router, http.MethodGet, "/admin/reports/product-sales?start_date=2026-02-01&end_date=2026-02-02&limit=10", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	resp := decodeList(t, rr)
	if len(resp) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(resp))
	}
	if resp[0]["product_name"] != "كراسة سلك 100 ورقة" {
		t.Errorf("unexpected product name %v", resp[0]["product_name"])
	}
	if resp[0]["quantity_sold"] != float64(50) || resp[0]["total_revenue"] != "1250.00" {
		t.Errorf("unexpected row %v", resp[0])
	}
}

func TestProductSales_Limit(t *testing.T) {
	rows := make([]database.GetProductSalesRow, 30)
	for i := range rows {
		rows[i] = database.GetProductSalesRow{ProductName: fmt.Sprintf("p%d", i), QuantitySold: int64(30 - i), TotalRevenue: money("1")}
	}
	router := setupReportsRouter(&mockReportsStore{productSales: rows})

	rr := doRequest(t, router, http.MethodGet, "/admin/reports/product-sales", nil)
	if resp := decodeList(t, rr); len(resp) != 20 {
		t.Errorf("default limit: expected 20 rows, got %d", len(resp))
	}

	rr = doRequest(t, router, http.MethodGet, "/admin/reports/product-sales?limit=5", nil)
	if resp := decodeList(t, rr); len(resp) != 5 {
		t.Errorf("expected 5 rows, got %d", len(resp))
	}
}
