package client

import (
	"context"
	"io"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elevana/core"
	"github.com/trezcool/elevana/core/material"
)

// MaterialBackend is the server side of the material cache.
type MaterialBackend interface {
	ListMaterials(ctx context.Context) ([]material.Material, error)
	UploadMaterial(ctx context.Context, fileName string, r io.Reader, classroomID null.Int64, onProgress func(UploadProgress)) (material.Material, error)
	DeleteMaterials(ctx context.Context, ids []int64) error
	AssignMaterials(ctx context.Context, ids []int64, classroomID null.Int64) error
}

// MaterialService caches the materials of the signed-in mentor.
type MaterialService struct {
	*Store[material.Material]
	backend MaterialBackend
}

func NewMaterialService(backend MaterialBackend, logger core.Logger) *MaterialService {
	return &MaterialService{
		Store: NewStore(StoreOptions[material.Material]{
			ID:     func(m material.Material) int64 { return m.ID },
			List:   backend.ListMaterials,
			Logger: logger,
		}),
		backend: backend,
	}
}

func (svc *MaterialService) Load(ctx context.Context) error {
	return svc.Reload(ctx)
}

// ForClassroom returns the cached materials assigned to classroomID (null: unassigned ones).
func (svc *MaterialService) ForClassroom(classroomID null.Int64) []material.Material {
	return filter(svc.All().Get(), func(m material.Material) bool {
		return m.AssignedTo(classroomID)
	})
}

func (svc *MaterialService) Upload(ctx context.Context, fileName string, r io.Reader, classroomID null.Int64, onProgress func(UploadProgress)) (material.Material, error) {
	return svc.Create(ctx, func(ctx context.Context) (material.Material, error) {
		return svc.backend.UploadMaterial(ctx, fileName, r, classroomID, onProgress)
	})
}

func (svc *MaterialService) Delete(ctx context.Context, ids []int64) error {
	drop := idSet(ids)
	return svc.Mutate(ctx,
		func(ctx context.Context) error { return svc.backend.DeleteMaterials(ctx, ids) },
		func(mats []material.Material) []material.Material {
			return filter(mats, func(m material.Material) bool { return !drop[m.ID] })
		},
	)
}

// Assign moves materials to classroomID, or unassigns them when it is null.
func (svc *MaterialService) Assign(ctx context.Context, ids []int64, classroomID null.Int64) error {
	move := idSet(ids)
	return svc.Mutate(ctx,
		func(ctx context.Context) error { return svc.backend.AssignMaterials(ctx, ids, classroomID) },
		func(mats []material.Material) []material.Material {
			for i := range mats {
				if move[mats[i].ID] {
					mats[i].ClassroomID = classroomID
				}
			}
			return mats
		},
	)
}

func idSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
