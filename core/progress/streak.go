package progress

type StreakStage struct {
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	Progress    int    `json:"progress"`
}

var streakStages = []struct {
	minDays int
	stage   StreakStage
}{
	{12, StreakStage{Name: "Full Plant", Icon: "fa-solid fa-tree", Description: "Your learning habit is flourishing!", Progress: 100}},
	{8, StreakStage{Name: "Young Plant", Icon: "fa-solid fa-seedling", Description: "Growing strong! Consistency is key.", Progress: 75}},
	{4, StreakStage{Name: "Sapling", Icon: "fa-solid fa-leaf", Description: "Your streak has sprouted!", Progress: 50}},
	{1, StreakStage{Name: "Seed", Icon: "fa-solid fa-circle-dot", Description: "A new streak has been planted.", Progress: 25}},
}

// StreakStageFor maps a number of consecutive active days to its stage.
func StreakStageFor(days int) StreakStage {
	for _, s := range streakStages {
		if days >= s.minDays {
			return s.stage
		}
	}
	return StreakStage{Name: "No Streak", Icon: "fa-solid fa-circle", Description: "Start a new streak!"}
}
