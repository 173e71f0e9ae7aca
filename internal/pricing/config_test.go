package pricing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg, err := DefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, "America/New_York", cfg.Location.String())
	assert.Len(t, cfg.Tiers, 3)
	assert.EqualValues(t, 30000, cfg.CameraDiscount)
	assert.EqualValues(t, 75000, cfg.Deposit)
	assert.EqualValues(t, 700, cfg.TaxRateBps)
	assert.EqualValues(t, 100, cfg.TaxRoundingUnit)
	assert.Equal(t, "2027-06-01", cfg.FullPaymentDeadline.Format(dateLayout))
}

func TestLoadConfig_EmptyPathUsesDefault(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Len(t, cfg.Tiers, 3)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
currency: eur
camera_discount_cents: 0
deposit_cents: 100
tax_rate_bps: 2000
tax_rounding_unit_cents: 1
full_payment_deadline: "2028-01-01"
tiers:
  - {name: Only, start_date: "2027-01-01", end_date: "2027-12-31", base_price_cents: 999}
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, "UTC", cfg.Location.String())
	assert.EqualValues(t, 1, cfg.TaxRoundingUnit)

	r, err := NewResolver(cfg)
	require.NoError(t, err)
	q := r.Quote(cfg.Tiers[0].Start, false, PaymentFull)
	assert.EqualValues(t, 200, q.Tax.Amount()) // 199.8 rounds to 200
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "tiers: [\n"},
		{"bad timezone", `timezone: Mars/Olympus
currency: usd
full_payment_deadline: "2027-01-01"`},
		{"bad deadline", `currency: usd
full_payment_deadline: "June 1st"`},
		{"no tiers", `currency: usd
deposit_cents: 100
tax_rate_bps: 700
full_payment_deadline: "2027-01-01"`},
		{"overlapping tiers", `currency: usd
deposit_cents: 100
tax_rate_bps: 700
full_payment_deadline: "2027-01-01"
tiers:
  - {name: A, start_date: "2026-01-01", end_date: "2026-02-01", base_price_cents: 1000}
  - {name: B, start_date: "2026-02-01", end_date: "2026-03-01", base_price_cents: 1000}`},
		{"deposit exceeds discounted price", `currency: usd
camera_discount_cents: 600
deposit_cents: 500
tax_rate_bps: 700
full_payment_deadline: "2027-01-01"
tiers:
  - {name: A, start_date: "2026-01-01", end_date: "2026-02-01", base_price_cents: 1000}`},
		{"tax rate out of range", `currency: usd
deposit_cents: 100
tax_rate_bps: 10001
full_payment_deadline: "2027-01-01"
tiers:
  - {name: A, start_date: "2026-01-01", end_date: "2026-02-01", base_price_cents: 1000}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tc.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestNewResolver_RejectsInvalidConfig(t *testing.T) {
	_, err := NewResolver(Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
