package reconcile

import "github.com/angelospk/tmdbimporter/pkg/core/model"

// SeasonMapping maps each provisional season number (the 1-based position of
// the season in original) to its canonical number.
//
// The canonical number is looked up by display name in resolved. When two
// seasons share a display name the later one wins, so both positions map to
// the later season's number. Seasons whose name is absent from resolved fall
// back to their pre-resolution number. Blank rows get no mapping.
func SeasonMapping(original, resolved []model.SeasonRecord) map[int]int {
	byName := make(map[string]int, len(resolved))
	for _, s := range resolved {
		if s.Blank {
			continue
		}
		byName[s.DisplayName] = s.Number
	}

	oldToNew := make(map[int]int, len(original))
	for i, s := range original {
		if s.Blank {
			continue
		}
		n, ok := byName[s.DisplayName]
		if !ok {
			n = s.Number
		}
		oldToNew[i+1] = n
	}
	return oldToNew
}

// RemapEpisodes rewrites the season number of every episode from its
// provisional value to the canonical one given by SeasonMapping. Episodes
// whose provisional number has no mapping, or is missing, come back with an
// invalid SeasonNumber instead of a guessed one.
//
// The result has the same length and order as episodes; only SeasonNumber
// changes. Malformed rows are copied unchanged.
func RemapEpisodes(original, resolved []model.SeasonRecord, episodes []model.EpisodeRecord) []model.EpisodeRecord {
	oldToNew := SeasonMapping(original, resolved)

	out := make([]model.EpisodeRecord, len(episodes))
	for i, ep := range episodes {
		if ep.Malformed() {
			out[i] = ep
			continue
		}
		provisional, ok := ep.SeasonNumber.Get()
		ep.SeasonNumber = model.NullInt{}
		if ok {
			if n, found := oldToNew[provisional]; found {
				ep.SeasonNumber = model.Int(n)
			}
		}
		out[i] = ep
	}
	return out
}
