package settlement

import "github.com/shopspring/decimal"

type Breakdown struct {
	TotalCents         int64
	PlatformFeeCents   int64
	ProcessingFeeCents int64
	VendorPayoutCents  int64
}

// Calculate splits an order total between platform and vendor. Fees are
// rounded half-up to whole cents and the payout is the remainder, so
// platform + processing + payout always reconstructs the total exactly.
// Deterministic for given inputs; rates are injected by the caller.
func Calculate(totalCents int64, commissionRate, processingRate decimal.Decimal) Breakdown {
	total := decimal.NewFromInt(totalCents)

	platform := total.Mul(commissionRate).Round(0).IntPart()
	processing := total.Mul(processingRate).Round(0).IntPart()

	return Breakdown{
		TotalCents:         totalCents,
		PlatformFeeCents:   platform,
		ProcessingFeeCents: processing,
		VendorPayoutCents:  totalCents - platform - processing,
	}
}
