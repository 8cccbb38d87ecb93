package leaderboard

import (
	"cmp"
	"slices"

	"github.com/mcoot/typerace/internal/model"
)

// Rank orders players best first and projects them into leaderboard entries.
//
// Perfect players (progress 100, accuracy 100) come first, ordered by finish time with an
// unfinished perfect player counted as finishing at time zero. Everyone else is ordered by
// progress, then accuracy, then WPM. Remaining ties go to the earlier joiner so the order is total.
func Rank(players []*model.Player) []model.LeaderboardEntry {
	sorted := slices.Clone(players)
	slices.SortFunc(sorted, Compare)

	entries := make([]model.LeaderboardEntry, len(sorted))
	for i, p := range sorted {
		entries[i] = model.EntryFromPlayer(p)
	}
	return entries
}

// RankRoom ranks every player in a room
func RankRoom(room *model.Room) []model.LeaderboardEntry {
	players := make([]*model.Player, 0, len(room.Players))
	for _, p := range room.Players {
		players = append(players, p)
	}
	return Rank(players)
}

// Compare returns a negative number when a ranks ahead of b
func Compare(a, b *model.Player) int {
	aPerfect, bPerfect := a.IsPerfect(), b.IsPerfect()
	switch {
	case aPerfect && !bPerfect:
		return -1
	case !aPerfect && bPerfect:
		return 1
	case aPerfect && bPerfect:
		if c := cmp.Compare(finishUnixNano(a), finishUnixNano(b)); c != 0 {
			return c
		}
		return tieBreak(a, b)
	}

	if c := cmp.Compare(b.Progress, a.Progress); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Accuracy, a.Accuracy); c != 0 {
		return c
	}
	if c := cmp.Compare(b.WPM, a.WPM); c != 0 {
		return c
	}
	return tieBreak(a, b)
}

func tieBreak(a, b *model.Player) int {
	if c := cmp.Compare(a.JoinSeq, b.JoinSeq); c != 0 {
		return c
	}
	return cmp.Compare(a.Key, b.Key)
}

// finishUnixNano treats a missing finish time as zero
func finishUnixNano(p *model.Player) int64 {
	if p.FinishedAt == nil {
		return 0
	}
	return p.FinishedAt.UnixNano()
}
