package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/elevana/core/activity"
)

type activityRepository struct {
	db *sqlx.DB
}

var _ activity.Repository = (*activityRepository)(nil)

func NewActivityRepository(db *sqlx.DB) activity.Repository {
	return &activityRepository{db: db}
}

func (repo *activityRepository) CreateActivity(ctx context.Context, sum activity.Summary, content []byte) (activity.Summary, error) {
	q := `INSERT INTO activity (classroom_id, mentor_id, kind, title, xp, file_name, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := repo.db.GetContext(ctx, &sum.ID, q,
		sum.ClassroomID, sum.MentorID, sum.Kind, sum.Title, sum.XP, sum.FileName, string(content), sum.CreatedAt)
	return sum, errors.Wrap(err, "inserting activity")
}

func (repo *activityRepository) ListActivities(ctx context.Context, classroomIDs ...int64) ([]activity.Summary, error) {
	q := `SELECT id, classroom_id, mentor_id, kind, title, xp, file_name, created_at
		FROM activity WHERE classroom_id = ANY($1) ORDER BY id`
	sums := make([]activity.Summary, 0)
	if err := repo.db.SelectContext(ctx, &sums, q, pq.Array(classroomIDs)); err != nil {
		return nil, errors.Wrap(err, "selecting activities")
	}
	return sums, nil
}

func (repo *activityRepository) DeleteActivity(ctx context.Context, classroomID, id int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM activity WHERE classroom_id = $1 AND id = $2`, classroomID, id)
	if err != nil {
		return errors.Wrap(err, "deleting activity")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return activity.ErrNotFound
	}
	return nil
}
