package library

import (
	"context"
	"testing"

	"SampleFinder/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stateWith(searches int, paletteSizes ...int) *model.LocalState {
	s := model.NewLocalState()
	s.Engagement.SimilaritySearchCount = searches
	for _, n := range paletteSizes {
		ids := make([]string, n)
		for i := range ids {
			ids[i] = string(rune('a' + i))
		}
		s.Palettes = append(s.Palettes, model.Palette{AssetIDs: ids})
	}
	return s
}

func TestShouldShowSignupPrompt(t *testing.T) {
	tests := []struct {
		name  string
		state *model.LocalState
		want  bool
	}{
		{"fresh library", stateWith(0), false},
		{"search only", stateWith(4), false},
		{"search and empty palette", stateWith(1, 0), false},
		{"search and filled palette", stateWith(1, 1), true},
		{"two items no search", stateWith(0, 2), false},
		{"three items no search", stateWith(0, 3), true},
		{"three items across palettes", stateWith(0, 1, 1, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldShowSignupPrompt(tt.state))
		})
	}
}

func TestShouldShowSignupPrompt_FlagsSuppress(t *testing.T) {
	shown := stateWith(1, 3)
	shown.Engagement.SignupPromptShown = true
	assert.False(t, ShouldShowSignupPrompt(shown))

	synced := stateWith(1, 3)
	synced.Engagement.SyncedToCloud = true
	assert.False(t, ShouldShowSignupPrompt(synced))
}

func TestStoreShouldShowSignupPrompt(t *testing.T) {
	ctx := context.Background()

	for _, mark := range []struct {
		name string
		fn   func(*Store, context.Context) error
	}{
		{"prompt shown", (*Store).MarkSignupPromptShown},
		{"synced", (*Store).MarkSyncedToCloud},
	} {
		t.Run(mark.name, func(t *testing.T) {
			s := newMemoryStore(t)
			a := addAsset(t, s, "kick")
			_, err := s.AddPalette(ctx, model.Palette{Name: "p", AssetIDs: []string{a.ID}})
			require.NoError(t, err)
			require.NoError(t, s.RecordSimilaritySearch(ctx))

			show, err := s.ShouldShowSignupPrompt(ctx)
			require.NoError(t, err)
			assert.True(t, show)

			// evaluating the policy does not change it
			show, err = s.ShouldShowSignupPrompt(ctx)
			require.NoError(t, err)
			assert.True(t, show)

			require.NoError(t, mark.fn(s, ctx))

			show, err = s.ShouldShowSignupPrompt(ctx)
			require.NoError(t, err)
			assert.False(t, show)
		})
	}
}
