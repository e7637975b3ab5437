package search

import (
	"cmp"
	"slices"

	"github.com/FocuswithJustin/JuniperSearch/core/canon"
	"github.com/FocuswithJustin/JuniperSearch/core/reference"
)

// RankAndDedup orders matches by translation rank, then canonical book
// order, chapter and verse. Translation id breaks any remaining tie. With
// UniqueVerse set, only the best-ranked match for each verse location is
// kept.
//
// Ranks come from settings.Translations when the translation is listed
// there; otherwise the rank already on the match is used.
func RankAndDedup(matches []MatchResult, settings Settings) []MatchResult {
	ranks := make(map[string]int, len(settings.Translations))
	for _, t := range settings.Translations {
		ranks[t.ID] = t.Rank
	}

	out := make([]MatchResult, len(matches))
	copy(out, matches)
	for i := range out {
		if r, ok := ranks[out[i].Translation]; ok {
			out[i].Rank = r
		}
	}

	slices.SortStableFunc(out, compareMatches)

	if !settings.UniqueVerse {
		return out
	}

	seen := make(map[reference.Location]struct{}, len(out))
	unique := out[:0]
	for _, m := range out {
		loc := m.Location()
		if _, dup := seen[loc]; dup {
			continue
		}
		seen[loc] = struct{}{}
		unique = append(unique, m)
	}
	return unique
}

func compareMatches(a, b MatchResult) int {
	return cmp.Or(
		cmp.Compare(a.Rank, b.Rank),
		cmp.Compare(canon.Position(a.Book), canon.Position(b.Book)),
		cmp.Compare(a.Chapter, b.Chapter),
		cmp.Compare(a.Verse, b.Verse),
		cmp.Compare(a.Translation, b.Translation),
	)
}

// CountUnique returns the number of distinct verse locations in results.
func CountUnique(results []MatchResult) int {
	seen := make(map[reference.Location]struct{}, len(results))
	for _, m := range results {
		seen[m.Location()] = struct{}{}
	}
	return len(seen)
}
