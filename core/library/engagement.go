package library

import (
	"context"

	"SampleFinder/model"
)

// ShouldShowSignupPrompt reports whether the user has engaged enough to be
// offered an account: a search plus a non-empty palette, or a palette with at
// least three assets. It is false once the prompt was shown or data was synced.
func ShouldShowSignupPrompt(state *model.LocalState) bool {
	e := state.Engagement
	if e.SignupPromptShown || e.SyncedToCloud {
		return false
	}

	var hasFilledPalette, hasLargePalette bool
	for _, p := range state.Palettes {
		if len(p.AssetIDs) >= 1 {
			hasFilledPalette = true
		}
		if len(p.AssetIDs) >= 3 {
			hasLargePalette = true
		}
	}

	return (e.SimilaritySearchCount >= 1 && hasFilledPalette) || hasLargePalette
}

// RecordSimilaritySearch increments the search counter.
func (s *Store) RecordSimilaritySearch(ctx context.Context) error {
	return s.Update(ctx, func(state *model.LocalState) error {
		state.Engagement.SimilaritySearchCount++
		return nil
	})
}

func (s *Store) MarkSignupPromptShown(ctx context.Context) error {
	return s.Update(ctx, func(state *model.LocalState) error {
		state.Engagement.SignupPromptShown = true
		return nil
	})
}

func (s *Store) MarkSyncedToCloud(ctx context.Context) error {
	return s.Update(ctx, func(state *model.LocalState) error {
		state.Engagement.SyncedToCloud = true
		return nil
	})
}

func (s *Store) Engagement(ctx context.Context) (model.Engagement, error) {
	state, err := s.Snapshot(ctx)
	if err != nil {
		return model.Engagement{}, err
	}
	return state.Engagement, nil
}

// ShouldShowSignupPrompt evaluates the package-level policy against the current state.
// It never modifies the store.
func (s *Store) ShouldShowSignupPrompt(ctx context.Context) (bool, error) {
	state, err := s.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	return ShouldShowSignupPrompt(state), nil
}
