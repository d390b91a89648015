package reconcile

import (
	"regexp"
	"strconv"

	"github.com/angelospk/tmdbimporter/pkg/core/model"
	"golang.org/x/text/width"
)

// seasonNamePatterns are tried in order against a season display name; the
// first pattern that matches decides the canonical number. The primary form
// is "第 N 季", the alternate word used by some catalogues is "第 N 輯".
var seasonNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`第 (\d+) 季`),
	regexp.MustCompile(`第 (\d+) 輯`),
}

// SeasonNumberFromName extracts the canonical season number printed in a
// season display name. Full-width digits and spaces are narrowed first.
// It returns false when no pattern matches or the captured digits do not fit
// in an int; that is not an error, names like "Specials" carry no number.
func SeasonNumberFromName(name string) (int, bool) {
	normalized := width.Narrow.String(name)
	for _, re := range seasonNamePatterns {
		m := re.FindStringSubmatch(normalized)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// ResolveSeasonNumbers returns a copy of seasons with Number replaced by the
// number printed in DisplayName wherever one can be found. Seasons whose
// names carry no number keep their provisional Number. Duplicate resolved
// numbers are left as they are.
func ResolveSeasonNumbers(seasons []model.SeasonRecord) []model.SeasonRecord {
	out := make([]model.SeasonRecord, len(seasons))
	for i, s := range seasons {
		if n, ok := SeasonNumberFromName(s.DisplayName); ok {
			s.Number = n
		}
		out[i] = s
	}
	return out
}
