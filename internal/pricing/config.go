// Package pricing resolves what a registrant owes for the retreat on a given
// day. It holds no state: a Resolver is built once from a validated Config and
// every Quote call is a pure function of its arguments.
package pricing

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // pricing zones must resolve in minimal containers

	"gopkg.in/yaml.v3"
)

//go:embed default_pricing.yaml
var defaultPricingYAML []byte

const dateLayout = "2006-01-02"

// ErrInvalidConfig wraps every validation failure returned by LoadConfig,
// ParseConfig and NewResolver.
var ErrInvalidConfig = errors.New("pricing: invalid config")

// Tier is a date-bounded pricing rule. Start and End are midnight of the first
// and last day of the window in the config's time zone; the window includes
// all of End's day.
type Tier struct {
	Name        string
	Start       time.Time
	End         time.Time
	BasePrice   int64 // cents
	Description string
}

// contains reports whether t falls on or between the tier's first and last day.
func (t Tier) contains(now time.Time) bool {
	return !now.Before(t.Start) && now.Before(t.endExclusive())
}

func (t Tier) endExclusive() time.Time {
	return t.End.AddDate(0, 0, 1)
}

// Config is the complete set of pricing constants. Nothing in Resolver is
// hardcoded; every number comes from here.
type Config struct {
	Currency            string
	Location            *time.Location
	Tiers               []Tier // ordered by Start, non-overlapping
	CameraDiscount      int64  // cents
	Deposit             int64  // cents
	TaxRateBps          int64  // basis points, 700 = 7%
	TaxRoundingUnit     int64  // cents; 100 rounds tax to whole currency units
	FullPaymentDeadline time.Time
}

// fileConfig is the YAML shape. Dates stay strings until the time zone is
// known.
type fileConfig struct {
	Currency             string     `yaml:"currency"`
	Timezone             string     `yaml:"timezone"`
	CameraDiscountCents  int64      `yaml:"camera_discount_cents"`
	DepositCents         int64      `yaml:"deposit_cents"`
	TaxRateBps           int64      `yaml:"tax_rate_bps"`
	TaxRoundingUnitCents int64      `yaml:"tax_rounding_unit_cents"`
	FullPaymentDeadline  string     `yaml:"full_payment_deadline"`
	Tiers                []fileTier `yaml:"tiers"`
}

type fileTier struct {
	Name           string `yaml:"name"`
	StartDate      string `yaml:"start_date"`
	EndDate        string `yaml:"end_date"`
	BasePriceCents int64  `yaml:"base_price_cents"`
	Description    string `yaml:"description"`
}

// DefaultConfig returns the embedded pricing table.
func DefaultConfig() (Config, error) {
	return ParseConfig(defaultPricingYAML)
}

// LoadConfig reads a YAML pricing file. An empty path returns DefaultConfig.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("pricing: read %s: %w", path, err)
	}
	return ParseConfig(raw)
}

// ParseConfig decodes and validates a YAML pricing document.
func ParseConfig(raw []byte) (Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return Config{}, fmt.Errorf("%w: decode yaml: %v", ErrInvalidConfig, err)
	}

	tz := fc.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Config{}, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, tz, err)
	}

	deadline, err := time.ParseInLocation(dateLayout, fc.FullPaymentDeadline, loc)
	if err != nil {
		return Config{}, fmt.Errorf("%w: full_payment_deadline: %v", ErrInvalidConfig, err)
	}

	cfg := Config{
		Currency:            strings.ToUpper(fc.Currency),
		Location:            loc,
		CameraDiscount:      fc.CameraDiscountCents,
		Deposit:             fc.DepositCents,
		TaxRateBps:          fc.TaxRateBps,
		TaxRoundingUnit:     fc.TaxRoundingUnitCents,
		FullPaymentDeadline: deadline,
	}
	if cfg.TaxRoundingUnit == 0 {
		cfg.TaxRoundingUnit = 100
	}

	for i, ft := range fc.Tiers {
		start, err := time.ParseInLocation(dateLayout, ft.StartDate, loc)
		if err != nil {
			return Config{}, fmt.Errorf("%w: tiers[%d].start_date: %v", ErrInvalidConfig, i, err)
		}
		end, err := time.ParseInLocation(dateLayout, ft.EndDate, loc)
		if err != nil {
			return Config{}, fmt.Errorf("%w: tiers[%d].end_date: %v", ErrInvalidConfig, i, err)
		}
		cfg.Tiers = append(cfg.Tiers, Tier{
			Name:        ft.Name,
			Start:       start,
			End:         end,
			BasePrice:   ft.BasePriceCents,
			Description: ft.Description,
		})
	}

	return cfg, cfg.Validate()
}

// Validate checks the invariants Resolver relies on. All problems are reported
// together.
func (c Config) Validate() error {
	var errs []error

	if c.Currency == "" {
		errs = append(errs, errors.New("currency is required"))
	}
	if c.Location == nil {
		errs = append(errs, errors.New("location is required"))
	}
	if len(c.Tiers) == 0 {
		errs = append(errs, errors.New("at least one tier is required"))
	}
	if c.CameraDiscount < 0 {
		errs = append(errs, fmt.Errorf("camera discount must be >= 0, got %d", c.CameraDiscount))
	}
	if c.Deposit <= 0 {
		errs = append(errs, fmt.Errorf("deposit must be > 0, got %d", c.Deposit))
	}
	if c.TaxRateBps < 0 || c.TaxRateBps > 10000 {
		errs = append(errs, fmt.Errorf("tax rate must be within [0, 10000] bps, got %d", c.TaxRateBps))
	}
	if c.TaxRoundingUnit <= 0 {
		errs = append(errs, fmt.Errorf("tax rounding unit must be > 0, got %d", c.TaxRoundingUnit))
	}
	if c.FullPaymentDeadline.IsZero() {
		errs = append(errs, errors.New("full payment deadline is required"))
	}

	for i, t := range c.Tiers {
		if t.Name == "" {
			errs = append(errs, fmt.Errorf("tiers[%d]: name is required", i))
		}
		if t.End.Before(t.Start) {
			errs = append(errs, fmt.Errorf("tiers[%d] %q: end date before start date", i, t.Name))
		}
		if t.BasePrice <= 0 {
			errs = append(errs, fmt.Errorf("tiers[%d] %q: base price must be > 0", i, t.Name))
		}
		if t.BasePrice-c.CameraDiscount <= c.Deposit {
			errs = append(errs, fmt.Errorf("tiers[%d] %q: discounted price must exceed the deposit", i, t.Name))
		}
		if i > 0 && !t.Start.After(c.Tiers[i-1].End) {
			errs = append(errs, fmt.Errorf("tiers[%d] %q: overlaps or precedes tiers[%d]", i, t.Name, i-1))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
