package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/typerace/internal/model"
)

var base = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func at(seconds int) *time.Time {
	t := base.Add(time.Duration(seconds) * time.Second)
	return &t
}

func player(key string, seq int, progress, accuracy, wpm float64, finishedAt *time.Time) *model.Player {
	return &model.Player{
		Key:         model.PlayerKey(key),
		DisplayName: key,
		Progress:    progress,
		Accuracy:    accuracy,
		WPM:         wpm,
		Finished:    finishedAt != nil,
		FinishedAt:  finishedAt,
		JoinSeq:     seq,
	}
}

func keys(entries []model.LeaderboardEntry) []model.PlayerKey {
	out := make([]model.PlayerKey, len(entries))
	for i, e := range entries {
		out[i] = e.ConnectionID
	}
	return out
}

func TestRank(t *testing.T) {
	tests := []struct {
		name    string
		players []*model.Player
		want    []model.PlayerKey
	}{
		{
			name: "perfect before non-perfect",
			players: []*model.Player{
				player("fast", 0, 100, 99, 120, at(5)),
				player("perfect", 1, 100, 100, 40, at(30)),
			},
			want: []model.PlayerKey{"perfect", "fast"},
		},
		{
			name: "perfects by earlier finish",
			players: []*model.Player{
				player("late", 0, 100, 100, 90, at(20)),
				player("early", 1, 100, 100, 50, at(10)),
			},
			want: []model.PlayerKey{"early", "late"},
		},
		{
			name: "unfinished perfect counts as time zero",
			players: []*model.Player{
				player("finished", 0, 100, 100, 90, at(10)),
				player("unfinished", 1, 100, 100, 50, nil),
			},
			want: []model.PlayerKey{"unfinished", "finished"},
		},
		{
			name: "progress descending",
			players: []*model.Player{
				player("behind", 0, 40, 100, 90, nil),
				player("ahead", 1, 60, 90, 30, nil),
			},
			want: []model.PlayerKey{"ahead", "behind"},
		},
		{
			name: "accuracy breaks progress ties",
			players: []*model.Player{
				player("sloppy", 0, 50, 90, 90, nil),
				player("careful", 1, 50, 98, 30, nil),
			},
			want: []model.PlayerKey{"careful", "sloppy"},
		},
		{
			name: "wpm breaks accuracy ties",
			players: []*model.Player{
				player("slow", 0, 50, 98, 30, nil),
				player("quick", 1, 50, 98, 80, nil),
			},
			want: []model.PlayerKey{"quick", "slow"},
		},
		{
			name: "full ties go to earlier joiner",
			players: []*model.Player{
				player("second", 1, 50, 98, 30, nil),
				player("first", 0, 50, 98, 30, nil),
			},
			want: []model.PlayerKey{"first", "second"},
		},
		{
			name:    "empty",
			players: nil,
			want:    []model.PlayerKey{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keys(Rank(tt.players)))
		})
	}
}

func TestRankIsDeterministic(t *testing.T) {
	players := []*model.Player{
		player("a", 0, 30, 95, 40, nil),
		player("b", 1, 100, 100, 70, at(12)),
		player("c", 2, 30, 95, 40, nil),
		player("d", 3, 100, 97, 99, at(8)),
		player("e", 4, 100, 100, 60, at(9)),
	}
	want := []model.PlayerKey{"e", "b", "d", "a", "c"}

	for range 20 {
		assert.Equal(t, want, keys(Rank(players)))
		// Reverse the input to check order independence
		reversed := []*model.Player{players[4], players[3], players[2], players[1], players[0]}
		assert.Equal(t, want, keys(Rank(reversed)))
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	players := []*model.Player{
		player("b", 1, 10, 100, 10, nil),
		player("a", 0, 90, 100, 10, nil),
	}
	_ = Rank(players)
	assert.Equal(t, model.PlayerKey("b"), players[0].Key)
}

func TestRankProjection(t *testing.T) {
	p := player("k", 0, 100, 100, 55, at(3))
	p.UserID = "u1"
	p.Persisted = true

	entries := Rank([]*model.Player{p})
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, model.PlayerKey("k"), e.ConnectionID)
	assert.Equal(t, model.UserID("u1"), e.UserID)
	assert.Equal(t, "k", e.Username)
	assert.Equal(t, 55.0, e.WPM)
	assert.True(t, e.Finished)
	assert.Equal(t, at(3), e.FinishTime)
}

func TestRankRoom(t *testing.T) {
	room := &model.Room{Players: map[model.PlayerKey]*model.Player{
		"x": player("x", 0, 10, 100, 10, nil),
		"y": player("y", 1, 20, 100, 10, nil),
	}}
	assert.Equal(t, []model.PlayerKey{"y", "x"}, keys(RankRoom(room)))
}
