package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PenaltyConfig holds one stream's penalty policy: a monthly compounding
// rate and a grace period in days after the due date.
type PenaltyConfig struct {
	Rate      decimal.Decimal `json:"penaltyRate"`
	GraceDays int             `json:"penaltyDays"`
}

// HOADuesConfig is the stored clients/{cid}/config/hoaDues document.
type HOADuesConfig struct {
	FiscalYearStartMonth int           `json:"fiscalYearStartMonth"`
	DuesFrequency        DuesFrequency `json:"duesFrequency"`
	PenaltyConfig
}

// WaterConfig is the stored clients/{cid}/config/waterBills document.
type WaterConfig struct {
	PenaltyConfig
	RatePerM3     int64 `json:"ratePerM3"`
	MinimumCharge int64 `json:"minimumCharge"`

	// Flat centavo rates for ancillary metered services.
	ServiceRates map[string]int64 `json:"serviceRates,omitempty"`
}

// ClientConfig is the assembled per-client billing configuration. It is
// immutable for the lifetime of a request and cacheable process-wide.
type ClientConfig struct {
	ClientID string
	HOA      HOADuesConfig
	Water    WaterConfig
}

// Validate rejects configurations with absent fiscal or penalty fields.
// There are no defaults: a client without explicit penalty policy cannot
// accrue penalties.
func (c *ClientConfig) Validate() error {
	if c.HOA.FiscalYearStartMonth < 1 || c.HOA.FiscalYearStartMonth > 12 {
		return fmt.Errorf("%w: fiscalYearStartMonth %d", ErrConfigMissing, c.HOA.FiscalYearStartMonth)
	}
	if c.HOA.DuesFrequency != FrequencyMonthly && c.HOA.DuesFrequency != FrequencyQuarterly {
		return fmt.Errorf("%w: duesFrequency %q", ErrConfigMissing, c.HOA.DuesFrequency)
	}
	if c.HOA.Rate.IsZero() && c.HOA.GraceDays == 0 {
		return fmt.Errorf("%w: hoaDues penalty policy", ErrConfigMissing)
	}
	if c.Water.Rate.IsZero() && c.Water.GraceDays == 0 {
		return fmt.Errorf("%w: waterBills penalty policy", ErrConfigMissing)
	}
	return nil
}
