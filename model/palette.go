package model

// Palette is a named, ordered collection of asset ids.
type Palette struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Notes     string   `json:"notes"`
	AssetIDs  []string `json:"assetIds"`
	CreatedAt int64    `json:"createdAt"`
}

// PalettePatch carries the mutable palette fields.
type PalettePatch struct {
	Name     *string
	Notes    *string
	AssetIDs []string // replaces the sequence when non-nil; duplicates are dropped
}

// Contains reports whether assetID is already in the palette.
func (p Palette) Contains(assetID string) bool {
	for _, id := range p.AssetIDs {
		if id == assetID {
			return true
		}
	}
	return false
}

func (p Palette) Clone() Palette {
	out := p
	out.AssetIDs = append([]string{}, p.AssetIDs...)
	return out
}
