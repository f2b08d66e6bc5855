package model

// CurrentStateVersion is the version written by this build.
const CurrentStateVersion = 1

// Engagement tracks interaction counters and the two one-way flags.
type Engagement struct {
	SimilaritySearchCount int  `json:"similaritySearchCount"`
	PalettesCreated       int  `json:"palettesCreated"`
	AssetsAdded           int  `json:"assetsAdded"`
	SignupPromptShown     bool `json:"signupPromptShown"`
	SyncedToCloud         bool `json:"syncedToCloud"`
}

// LocalState is the single persisted document of the offline library.
type LocalState struct {
	Version    int        `json:"version"`
	Assets     []Asset    `json:"assets"`
	Palettes   []Palette  `json:"palettes"`
	Receipts   []Receipt  `json:"receipts"`
	Engagement Engagement `json:"engagement"`
}

// NewLocalState returns an empty document at the current version.
func NewLocalState() *LocalState {
	return &LocalState{
		Version:  CurrentStateVersion,
		Assets:   []Asset{},
		Palettes: []Palette{},
		Receipts: []Receipt{},
	}
}

// Clone deep-copies the document.
func (s *LocalState) Clone() *LocalState {
	out := &LocalState{
		Version:    s.Version,
		Assets:     make([]Asset, 0, len(s.Assets)),
		Palettes:   make([]Palette, 0, len(s.Palettes)),
		Receipts:   make([]Receipt, 0, len(s.Receipts)),
		Engagement: s.Engagement,
	}
	for _, a := range s.Assets {
		out.Assets = append(out.Assets, a.Clone())
	}
	for _, p := range s.Palettes {
		out.Palettes = append(out.Palettes, p.Clone())
	}
	for _, r := range s.Receipts {
		out.Receipts = append(out.Receipts, r.Clone())
	}
	return out
}

// Dataset is the export payload handed to the migration service.
type Dataset struct {
	Assets   []Asset   `json:"assets"`
	Palettes []Palette `json:"palettes"`
	Receipts []Receipt `json:"receipts"`
}
