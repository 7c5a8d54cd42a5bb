package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		name        string
		xp          int
		wantLevel   int
		wantNext    int
		wantPercent float64
	}{
		{name: "zero", xp: 0, wantLevel: 1, wantNext: 200, wantPercent: 0},
		{name: "negative is zero", xp: -10, wantLevel: 1, wantNext: 200, wantPercent: 0},
		{name: "mid level 1", xp: 100, wantLevel: 1, wantNext: 200, wantPercent: 50},
		{name: "just below threshold", xp: 199, wantLevel: 1, wantNext: 200, wantPercent: 99.5},
		{name: "on threshold", xp: 200, wantLevel: 2, wantNext: 500, wantPercent: 0},
		{name: "mid level 3", xp: 750, wantLevel: 3, wantNext: 1000, wantPercent: 50},
		{name: "last threshold", xp: 20000, wantLevel: 10, wantNext: 20000, wantPercent: 100},
		{name: "beyond max", xp: 999999, wantLevel: 10, wantNext: 999999, wantPercent: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LevelFor(tt.xp)
			assert.Equal(t, tt.wantLevel, got.Level)
			assert.Equal(t, tt.wantNext, got.XPForNextLevel)
			assert.InDelta(t, tt.wantPercent, got.ProgressPercentage, 1e-9)
		})
	}
}

func TestLevelFor_monotonic(t *testing.T) {
	prev := LevelFor(0)
	for xp := 1; xp <= 25000; xp += 7 {
		cur := LevelFor(xp)
		if cur.Level < prev.Level {
			t.Fatalf("LevelFor(%d).Level = %d < LevelFor(%d).Level = %d", xp, cur.Level, prev.XP, prev.Level)
		}
		if cur.ProgressPercentage < 0 || cur.ProgressPercentage > 100 {
			t.Fatalf("LevelFor(%d).ProgressPercentage = %v out of [0,100]", xp, cur.ProgressPercentage)
		}
		prev = cur
	}
}

func TestLevelFor_maxLevel(t *testing.T) {
	p := LevelFor(999999)
	assert.True(t, p.IsMaxLevel())
	assert.Equal(t, 100.0, p.ProgressPercentage)
	assert.Equal(t, p.XP, p.XPForNextLevel)
	assert.False(t, LevelFor(19999).IsMaxLevel())
}

func TestStreakStageFor(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{0, "No Streak"}, {1, "Seed"}, {3, "Seed"}, {4, "Sapling"}, {8, "Young Plant"}, {12, "Full Plant"}, {40, "Full Plant"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StreakStageFor(tt.days).Name, "days=%d", tt.days)
	}
}
