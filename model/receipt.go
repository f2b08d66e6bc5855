package model

// Well-known license flag names.
const (
	LicenseRoyaltyFree         = "royaltyFree"
	LicenseCommercialUse       = "commercialUse"
	LicenseAttributionRequired = "attributionRequired"
	LicenseExclusive           = "exclusive"
)

// Receipt is the license record attached to one asset.
type Receipt struct {
	ID           string          `json:"id"`
	AssetID      string          `json:"assetId"`
	SourceURL    string          `json:"sourceUrl"`
	Notes        string          `json:"notes"`
	LicenseFlags map[string]bool `json:"licenseFlags"`
	CreatedAt    int64           `json:"createdAt"`
}

// ReceiptPatch carries the mutable receipt fields.
type ReceiptPatch struct {
	SourceURL    *string
	Notes        *string
	LicenseFlags map[string]bool
}

func (r Receipt) Clone() Receipt {
	out := r
	out.LicenseFlags = make(map[string]bool, len(r.LicenseFlags))
	for k, v := range r.LicenseFlags {
		out.LicenseFlags[k] = v
	}
	return out
}
