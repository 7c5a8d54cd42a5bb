package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elevana/core/material"
)

const materialColumns = `id, name, url, file_type, mentor_id, classroom_id, uploaded_at`

type materialRepository struct {
	db *sqlx.DB
}

var _ material.Repository = (*materialRepository)(nil)

func NewMaterialRepository(db *sqlx.DB) material.Repository {
	return &materialRepository{db: db}
}

func (repo *materialRepository) CreateMaterial(ctx context.Context, mat material.Material) (material.Material, error) {
	q := `INSERT INTO material (name, url, file_type, mentor_id, classroom_id, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := repo.db.GetContext(ctx, &mat.ID, q, mat.Name, mat.URL, mat.FileType, mat.MentorID, mat.ClassroomID, mat.UploadedAt)
	return mat, errors.Wrap(err, "inserting material")
}

func (repo *materialRepository) QueryMaterials(ctx context.Context, filter material.QueryFilter) ([]material.Material, error) {
	q := `SELECT ` + materialColumns + ` FROM material
		WHERE ($1 = '' OR mentor_id::text = $1)
		AND ($2::bigint IS NULL OR classroom_id = $2)
		AND ($3::bigint[] IS NULL OR id = ANY($3))
		ORDER BY id`
	var ids interface{}
	if filter.IDs != nil {
		ids = pq.Array(filter.IDs)
	}
	mats := make([]material.Material, 0)
	if err := repo.db.SelectContext(ctx, &mats, q, filter.MentorID, filter.ClassroomID, ids); err != nil {
		return nil, errors.Wrap(err, "selecting materials")
	}
	return mats, nil
}

func (repo *materialRepository) AssignMaterials(ctx context.Context, mentorID string, ids []int64, classroomID null.Int64) error {
	q := `UPDATE material SET classroom_id = $3 WHERE mentor_id = $1 AND id = ANY($2)`
	_, err := repo.db.ExecContext(ctx, q, mentorID, pq.Array(ids), classroomID)
	return errors.Wrap(err, "assigning materials")
}

func (repo *materialRepository) DeleteMaterials(ctx context.Context, mentorID string, ids []int64) ([]material.Material, error) {
	q := `DELETE FROM material WHERE mentor_id = $1 AND id = ANY($2) RETURNING ` + materialColumns
	mats := make([]material.Material, 0)
	if err := repo.db.SelectContext(ctx, &mats, q, mentorID, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "deleting materials")
	}
	return mats, nil
}
