package scoresrvc

import (
	"cmp"
	"slices"
)

// sortRanking orders participations for a scoreboard: score descending,
// cumtime ascending, strategy tiebreaker ascending, then participation id
// so equal rows always appear in the same order. Disqualified rows sort
// after every qualified one.
func sortRanking(parts []Participation) {
	slices.SortFunc(parts, func(a, b Participation) int {
		if a.Disqualified != b.Disqualified {
			if a.Disqualified {
				return 1
			}
			return -1
		}
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.CumTime, b.CumTime); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Tiebreaker, b.Tiebreaker); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
}
