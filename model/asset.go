package model

// Asset is one audio sample in the local library.
// ContentHash is the hex SHA-256 of the raw file bytes and is the dedup key
// used when the library is reconciled with the remote store.
type Asset struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	OriginalFilename string    `json:"originalFilename"`
	ContentHash      string    `json:"contentHash"`
	DurationMs       int64     `json:"durationMs"`
	RMS              float64   `json:"rms"`
	SpectralCentroid *float64  `json:"spectralCentroid,omitempty"`
	Descriptor       string    `json:"descriptor"`
	Embedding        []float64 `json:"embedding"` // nil when no embedding was generated
	Tags             []string  `json:"tags"`
	CreatedAt        int64     `json:"createdAt"` // unix milliseconds
}

// AssetPatch carries the mutable asset fields. Nil fields are left unchanged.
type AssetPatch struct {
	Title      *string
	Tags       []string
	Descriptor *string
	Embedding  []float64
}

// Clone returns a deep copy so snapshots handed to callers never alias store state.
func (a Asset) Clone() Asset {
	out := a
	if a.SpectralCentroid != nil {
		v := *a.SpectralCentroid
		out.SpectralCentroid = &v
	}
	if a.Embedding != nil {
		out.Embedding = append([]float64(nil), a.Embedding...)
	}
	out.Tags = append([]string{}, a.Tags...)
	return out
}
