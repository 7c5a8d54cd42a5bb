package inmemdb

import (
	"context"
	"slices"
	"sort"

	"github.com/trezcool/elevana/core/activity"
)

type activityRepository struct {
	db *DB
}

var _ activity.Repository = (*activityRepository)(nil)

func NewActivityRepository(db *DB) activity.Repository {
	return &activityRepository{db: db}
}

func (repo *activityRepository) CreateActivity(_ context.Context, sum activity.Summary, content []byte) (activity.Summary, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	sum.ID = repo.db.nextID()
	repo.db.activities[sum.ID] = &activityRow{Summary: sum, content: append([]byte(nil), content...)}
	return sum, nil
}

func (repo *activityRepository) ListActivities(_ context.Context, classroomIDs ...int64) ([]activity.Summary, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	sums := make([]activity.Summary, 0)
	for _, row := range repo.db.activities {
		if slices.Contains(classroomIDs, row.ClassroomID) {
			sums = append(sums, row.Summary)
		}
	}
	sort.Slice(sums, func(i, j int) bool { return sums[i].ID < sums[j].ID })
	return sums, nil
}

func (repo *activityRepository) DeleteActivity(_ context.Context, classroomID, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	row, ok := repo.db.activities[id]
	if !ok || row.ClassroomID != classroomID {
		return activity.ErrNotFound
	}
	delete(repo.db.activities, id)
	return nil
}
