// Package progress derives a student's level from their cumulative XP.
package progress

// Threshold is the minimum cumulative XP needed to reach Level.
type Threshold struct {
	Level int `json:"level"`
	MinXP int `json:"min_xp"`
}

// Levels is ordered by ascending MinXP and starts at (1, 0).
var Levels = []Threshold{
	{Level: 1, MinXP: 0},
	{Level: 2, MinXP: 200},
	{Level: 3, MinXP: 500},
	{Level: 4, MinXP: 1000},
	{Level: 5, MinXP: 1800},
	{Level: 6, MinXP: 3000},
	{Level: 7, MinXP: 5000},
	{Level: 8, MinXP: 8000},
	{Level: 9, MinXP: 12000},
	{Level: 10, MinXP: 20000},
}

type Progress struct {
	XP                 int     `json:"xp"`
	Level              int     `json:"level"`
	XPForNextLevel     int     `json:"xp_for_next_level"`
	ProgressPercentage float64 `json:"progress_percentage"`
}

// IsMaxLevel reports whether no higher level exists.
func (p Progress) IsMaxLevel() bool {
	return p.Level == Levels[len(Levels)-1].Level
}

// LevelFor computes the Progress for xp against Levels.
// An xp exactly on a threshold belongs to that threshold's level.
func LevelFor(xp int) Progress {
	if xp < 0 {
		xp = 0
	}

	cur := 0
	for i := len(Levels) - 1; i >= 0; i-- {
		if xp >= Levels[i].MinXP {
			cur = i
			break
		}
	}

	p := Progress{XP: xp, Level: Levels[cur].Level}
	if cur == len(Levels)-1 {
		p.XPForNextLevel = xp
		p.ProgressPercentage = 100
		return p
	}

	curMin, nextMin := Levels[cur].MinXP, Levels[cur+1].MinXP
	p.XPForNextLevel = nextMin
	p.ProgressPercentage = clamp(100*float64(xp-curMin)/float64(nextMin-curMin), 0, 100)
	return p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
