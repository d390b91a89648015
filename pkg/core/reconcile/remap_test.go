package reconcile_test

import (
	"testing"

	"github.com/angelospk/tmdbimporter/pkg/core/model"
	"github.com/angelospk/tmdbimporter/pkg/core/reconcile"
	"github.com/stretchr/testify/assert"
)

func ep(season, number int, title string) model.EpisodeRecord {
	return model.EpisodeRecord{SeasonNumber: model.Int(season), EpisodeNumber: number, Title: title}
}

func TestRemapEpisodes_ReversedSeasonNames(t *testing.T) {
	seasons := []model.SeasonRecord{
		{DisplayName: "第 2 季", Number: 1},
		{DisplayName: "第 1 季", Number: 2},
	}
	resolved := reconcile.ResolveSeasonNumbers(seasons)
	assert.Equal(t, []model.SeasonRecord{
		{DisplayName: "第 2 季", Number: 2},
		{DisplayName: "第 1 季", Number: 1},
	}, resolved)

	episodes := []model.EpisodeRecord{ep(1, 1, "A"), ep(2, 1, "B")}
	got := reconcile.RemapEpisodes(seasons, resolved, episodes)

	assert.Equal(t, []model.EpisodeRecord{ep(2, 1, "A"), ep(1, 1, "B")}, got)
}

func TestSeasonMapping_DuplicateNameLastWriteWins(t *testing.T) {
	seasons := []model.SeasonRecord{
		{DisplayName: "Season", Number: 1},
		{DisplayName: "Season", Number: 2},
	}
	// Names carry no number, so resolution leaves the provisional numbers.
	resolved := reconcile.ResolveSeasonNumbers(seasons)

	mapping := reconcile.SeasonMapping(seasons, resolved)
	assert.Equal(t, map[int]int{1: 2, 2: 2}, mapping)

	got := reconcile.RemapEpisodes(seasons, resolved, []model.EpisodeRecord{ep(1, 1, "x"), ep(2, 1, "y")})
	assert.Equal(t, model.Int(2), got[0].SeasonNumber)
	assert.Equal(t, model.Int(2), got[1].SeasonNumber)
}

func TestSeasonMapping_FallsBackToOriginalNumber(t *testing.T) {
	original := []model.SeasonRecord{{DisplayName: "Extras", Number: 4}}
	// A resolved slice that lost the name entirely.
	mapping := reconcile.SeasonMapping(original, nil)
	assert.Equal(t, map[int]int{1: 4}, mapping)
}

func TestRemapEpisodes_MissingJoinIsUnresolved(t *testing.T) {
	seasons := []model.SeasonRecord{{DisplayName: "第 1 季", Number: 1}}
	resolved := reconcile.ResolveSeasonNumbers(seasons)

	episodes := []model.EpisodeRecord{
		ep(1, 1, "ok"),
		ep(5, 1, "out of range"),
		{EpisodeNumber: 2, Title: "no season"},
	}
	got := reconcile.RemapEpisodes(seasons, resolved, episodes)

	assert.Equal(t, model.Int(1), got[0].SeasonNumber)
	assert.False(t, got[1].SeasonNumber.Valid)
	assert.False(t, got[2].SeasonNumber.Valid)
	assert.Equal(t, "out of range", got[1].Title)
}

func TestRemapEpisodes_PreservesLengthAndOrder(t *testing.T) {
	seasons := []model.SeasonRecord{
		{DisplayName: "第 3 季", Number: 1},
		{DisplayName: "Specials", Number: 2},
		{DisplayName: "第 1 季", Number: 3},
	}
	resolved := reconcile.ResolveSeasonNumbers(seasons)

	var episodes []model.EpisodeRecord
	for s := 1; s <= 4; s++ {
		for e := 1; e <= 3; e++ {
			episodes = append(episodes, ep(s, e, string(rune('a'+len(episodes)))))
		}
	}
	got := reconcile.RemapEpisodes(seasons, resolved, episodes)

	assert.Len(t, got, len(episodes))
	for i := range episodes {
		assert.Equal(t, episodes[i].Title, got[i].Title)
		assert.Equal(t, episodes[i].EpisodeNumber, got[i].EpisodeNumber)
		assert.Equal(t, episodes[i].Description, got[i].Description)
	}
}

func TestRemapEpisodes_Empty(t *testing.T) {
	assert.Empty(t, reconcile.RemapEpisodes(nil, nil, nil))
	got := reconcile.RemapEpisodes([]model.SeasonRecord{}, []model.SeasonRecord{}, []model.EpisodeRecord{})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
