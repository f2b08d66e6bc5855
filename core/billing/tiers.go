// Package billing resolves subscription tiers and applies billing webhooks to
// the stored subscription state.
package billing

import "SampleFinder/model"

// Tier is a subscription level.
type Tier string

const (
	TierFree    Tier = "free"
	TierPro     Tier = "pro"
	TierProPlus Tier = "pro_plus"
)

// Unlimited marks a limit without a cap.
const Unlimited = -1

// Limits are the per-tier quotas.
type Limits struct {
	MaxAssets            int  `json:"maxAssets"`
	MaxPalettes          int  `json:"maxPalettes"`
	MaxSimilarityResults int  `json:"maxSimilarityResults"`
	CanExportPDF         bool `json:"canExportPdf"`
	CanUploadReceipts    bool `json:"canUploadReceipts"`
}

var tierLimits = map[Tier]Limits{
	TierFree:    {MaxAssets: 50, MaxPalettes: 5, MaxSimilarityResults: 5},
	TierPro:     {MaxAssets: 500, MaxPalettes: 50, MaxSimilarityResults: 20, CanExportPDF: true, CanUploadReceipts: true},
	TierProPlus: {MaxAssets: Unlimited, MaxPalettes: Unlimited, MaxSimilarityResults: 50, CanExportPDF: true, CanUploadReceipts: true},
}

// LimitsFor returns the quotas of tier. Unknown tiers get the free quotas.
func LimitsFor(tier Tier) Limits {
	if l, ok := tierLimits[tier]; ok {
		return l
	}
	return tierLimits[TierFree]
}

// NoLimits is used when billing is not configured.
func NoLimits() Limits {
	return Limits{
		MaxAssets:            Unlimited,
		MaxPalettes:          Unlimited,
		MaxSimilarityResults: Unlimited,
		CanExportPDF:         true,
		CanUploadReceipts:    true,
	}
}

// Within reports whether count is below limit.
func Within(limit, count int) bool {
	return limit == Unlimited || count < limit
}

// ClampResults caps a requested result count at the tier maximum.
func (l Limits) ClampResults(requested int) int {
	if l.MaxSimilarityResults != Unlimited && requested > l.MaxSimilarityResults {
		return l.MaxSimilarityResults
	}
	return requested
}

// Prices maps the configured price ids to tiers.
type Prices struct {
	Pro     string
	ProPlus string
}

// TierForPrice resolves a price id. Unknown or missing ids are free.
func (p Prices) TierForPrice(priceID *string) Tier {
	if priceID == nil || *priceID == "" {
		return TierFree
	}
	switch *priceID {
	case p.ProPlus:
		return TierProPlus
	case p.Pro:
		return TierPro
	default:
		return TierFree
	}
}

// TierFor resolves the tier of a stored subscription. Only active and
// trialing subscriptions grant a paid tier.
func (p Prices) TierFor(sub *model.Subscription) Tier {
	if sub == nil {
		return TierFree
	}
	switch sub.Status {
	case "active", "trialing":
		return p.TierForPrice(sub.PriceID)
	default:
		return TierFree
	}
}
