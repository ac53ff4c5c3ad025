//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/noteval-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/noteval-backend/internal/domain"
)

const (
	testISIN  = "XS9000000001"
	testToken = "dev-token"
)

var (
	db      *postgres.DB
	baseURL string
)

// TestMain sets up the test environment
func TestMain(m *testing.M) {
	ctx := context.Background()

	// 1. Connect to Database
	var err error
	db, err = postgres.NewDB(getDBConnectionString())
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to database: %v", err))
	}
	defer db.Close()

	baseURL = getServerURL()

	// 2. Self-Healing Setup: Create the test product and its prices if missing
	if err := setupTestProduct(ctx, db); err != nil {
		panic(fmt.Sprintf("Failed to setup test product: %v", err))
	}

	// Run tests
	code := m.Run()

	os.Exit(code)
}

// setupTestProduct creates the test product plus its trade-date and
// observation-date prices if they don't exist
func setupTestProduct(ctx context.Context, db *postgres.DB) error {
	productRepo := postgres.NewProductRepository(db)
	priceRepo := postgres.NewPriceRepository(db)

	if _, err := productRepo.GetByISIN(ctx, testISIN); err != nil {
		product := &domain.Product{
			ISIN:         testISIN,
			Name:         "Integration Test Note",
			TradeDate:    time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			MaturityDate: time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC),
			Underlyings: []domain.Underlying{
				{Ticker: "ITA.US", InternalID: "it-a", Symbol: "ITA", Name: "Integration Alpha"},
				{Ticker: "ITB.US", InternalID: "it-b", Symbol: "ITB", Name: "Integration Beta"},
			},
		}
		if err := product.Validate(); err != nil {
			return fmt.Errorf("product validation failed: %w", err)
		}
		if err := productRepo.Create(ctx, product); err != nil {
			return fmt.Errorf("failed to create test product: %w", err)
		}
	}

	// Strike prices at trade date, observation prices three months later.
	// ITA is up 10%, ITB is up 5%, so the worst-of performance is 105.
	prices := []*domain.PricePoint{
		{Ticker: "ITA.US", Date: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), Close: decimal.NewFromInt(100), Currency: "USD"},
		{Ticker: "ITB.US", Date: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), Close: decimal.NewFromInt(200), Currency: "USD"},
		{Ticker: "ITA.US", Date: time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC), Close: decimal.NewFromInt(110), Currency: "USD"},
		{Ticker: "ITB.US", Date: time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC), Close: decimal.NewFromInt(210), Currency: "USD"},
	}
	for _, point := range prices {
		if err := priceRepo.Add(ctx, point); err != nil {
			return fmt.Errorf("failed to add price for %s: %w", point.Ticker, err)
		}
	}
	return nil
}

// getDBConnectionString returns the database connection string from environment or defaults
func getDBConnectionString() string {
	if connStr := os.Getenv("DB_CONN_STR"); connStr != "" {
		return connStr
	}

	host := envOr("DB_HOST", "localhost")
	port := envOr("DB_PORT", "5432")
	user := envOr("DB_USER", "postgres")
	password := envOr("DB_PASSWORD", "postgres")
	dbname := envOr("DB_NAME", "noteval")

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
}

// getServerURL returns the HTTP server base URL from environment or defaults
func getServerURL() string {
	return envOr("SERVER_URL", "http://localhost:8080")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func doJSON(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, baseURL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", testToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

// TestEvaluateFlow runs a full evaluation over HTTP: a missed coupon first,
// then a coupon plus autocall on the second observation.
func TestEvaluateFlow(t *testing.T) {
	schedule := map[string]any{
		"schedule": []map[string]any{
			{
				// Worst-of is 105 here: coupon barrier at 110% misses.
				"date": "2024-04-15",
				"conditions": []map[string]any{
					{"type": "MEMORY_COUPON_BARRIER", "level": "110%", "coupon": "2.5%"},
					{"type": "AUTOCALL_LEVEL", "level": "100%", "coupon": "5%"},
				},
			},
		},
	}

	resp, report := doJSON(t, http.MethodPost, "/v1/products/"+testISIN+"/evaluate", schedule)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, testISIN, report["product_isin"])
	assert.Equal(t, true, report["autocalled"])
	assert.Equal(t, "2024-04-15", report["autocall_date"])

	totalCoupons, err := decimal.NewFromString(report["total_coupons"].(string))
	require.NoError(t, err)
	assert.True(t, totalCoupons.Equal(decimal.NewFromInt(5)),
		"autocall coupon should be paid, missed memory coupon should not: got %s", totalCoupons)

	observations, ok := report["observations"].([]any)
	require.True(t, ok)
	require.Len(t, observations, 1)
}

// TestGetPrice verifies the price endpoint resolves exact and nearby dates
func TestGetPrice(t *testing.T) {
	t.Run("ExactDate", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodGet, "/v1/prices/ITA.US?date=2024-04-15&type=close", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		value, err := decimal.NewFromString(body["value"].(string))
		require.NoError(t, err)
		assert.True(t, value.Equal(decimal.NewFromInt(110)))
		assert.Equal(t, float64(0), body["days_back"])
	})

	t.Run("WeekendFallsBack", func(t *testing.T) {
		// 2024-04-20 is a Saturday; the Friday before has no print either, so
		// the nearest available print is Monday 2024-04-15.
		resp, body := doJSON(t, http.MethodGet, "/v1/prices/ITA.US?date=2024-04-20", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "2024-04-15", body["date"])
	})

	t.Run("UnknownTicker", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodGet, "/v1/prices/NOPE.US?date=2024-04-15", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

// TestListProducts verifies the test product appears in the product list
func TestListProducts(t *testing.T) {
	resp, body := doJSON(t, http.MethodGet, "/v1/products", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	products, ok := body["products"].([]any)
	require.True(t, ok)

	var found bool
	for _, raw := range products {
		product := raw.(map[string]any)
		if product["isin"] == testISIN {
			found = true
			assert.Equal(t, "Integration Test Note", product["name"])
			underlyings := product["underlyings"].([]any)
			assert.Len(t, underlyings, 2)
		}
	}
	assert.True(t, found, "test product should appear in the product list")
}

// TestAuthRequired verifies requests without a valid token are rejected
func TestAuthRequired(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, baseURL+"/v1/products", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req.Header.Set("Authorization", "wrong-token")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}
