package inmemdb

import (
	"context"
	"slices"
	"sort"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elevana/core/material"
)

type materialRepository struct {
	db *DB
}

var _ material.Repository = (*materialRepository)(nil)

func NewMaterialRepository(db *DB) material.Repository {
	return &materialRepository{db: db}
}

func (repo *materialRepository) CreateMaterial(_ context.Context, mat material.Material) (material.Material, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	mat.ID = repo.db.nextID()
	repo.db.materials[mat.ID] = &mat
	return mat, nil
}

func (repo *materialRepository) QueryMaterials(_ context.Context, filter material.QueryFilter) ([]material.Material, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.query(filter), nil
}

func (repo *materialRepository) query(filter material.QueryFilter) []material.Material {
	mats := make([]material.Material, 0)
	for _, mat := range repo.db.materials {
		if filter.MentorID != "" && mat.MentorID != filter.MentorID {
			continue
		}
		if filter.ClassroomID.Valid && !mat.AssignedTo(filter.ClassroomID) {
			continue
		}
		if filter.IDs != nil && !slices.Contains(filter.IDs, mat.ID) {
			continue
		}
		mats = append(mats, *mat)
	}
	sort.Slice(mats, func(i, j int) bool { return mats[i].ID < mats[j].ID })
	return mats
}

func (repo *materialRepository) AssignMaterials(_ context.Context, mentorID string, ids []int64, classroomID null.Int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, mat := range repo.query(material.QueryFilter{MentorID: mentorID, IDs: ids}) {
		repo.db.materials[mat.ID].ClassroomID = classroomID
	}
	return nil
}

func (repo *materialRepository) DeleteMaterials(_ context.Context, mentorID string, ids []int64) ([]material.Material, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	deleted := repo.query(material.QueryFilter{MentorID: mentorID, IDs: ids})
	for _, mat := range deleted {
		delete(repo.db.materials, mat.ID)
	}
	return deleted, nil
}
