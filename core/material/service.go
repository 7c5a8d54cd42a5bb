package material

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

var (
	// errors
	ErrNotFound = errors.New("material not found")
)

type (
	// QueryFilter narrows QueryMaterials; zero fields do not filter.
	QueryFilter struct {
		MentorID    string
		ClassroomID null.Int64
		IDs         []int64
	}

	Repository interface {
		CreateMaterial(ctx context.Context, mat Material) (Material, error)
		QueryMaterials(ctx context.Context, filter QueryFilter) ([]Material, error)
		// AssignMaterials sets the classroom of the mentor's materials listed in ids.
		AssignMaterials(ctx context.Context, mentorID string, ids []int64, classroomID null.Int64) error
		// DeleteMaterials deletes the mentor's materials listed in ids and returns them.
		DeleteMaterials(ctx context.Context, mentorID string, ids []int64) ([]Material, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, mentorID string, nm NewMaterial) (Material, error) {
	mat := Material{
		Name:        nm.Name,
		URL:         nm.URL,
		FileType:    nm.FileType,
		MentorID:    mentorID,
		ClassroomID: nm.ClassroomID,
		UploadedAt:  time.Now().UTC(),
	}
	return svc.repo.CreateMaterial(ctx, mat)
}

func (svc *Service) ListForMentor(ctx context.Context, mentorID string) ([]Material, error) {
	return svc.repo.QueryMaterials(ctx, QueryFilter{MentorID: mentorID})
}

func (svc *Service) ListForClassroom(ctx context.Context, classroomID int64) ([]Material, error) {
	return svc.repo.QueryMaterials(ctx, QueryFilter{ClassroomID: null.Int64From(classroomID)})
}

// Assign is idempotent: materials already in the target classroom are left as they are.
func (svc *Service) Assign(ctx context.Context, mentorID string, asg Assignment) error {
	return svc.repo.AssignMaterials(ctx, mentorID, asg.IDs, asg.ClassroomID)
}

// Delete removes the mentor's materials and returns the deleted ones so their files can be dropped.
func (svc *Service) Delete(ctx context.Context, mentorID string, ids []int64) ([]Material, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return svc.repo.DeleteMaterials(ctx, mentorID, ids)
}
