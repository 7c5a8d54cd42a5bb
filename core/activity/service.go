package activity

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/elevana/core"
)

var (
	// errors
	ErrNotFound = errors.New("activity not found")
)

type (
	Repository interface {
		CreateActivity(ctx context.Context, sum Summary, content []byte) (Summary, error)
		ListActivities(ctx context.Context, classroomIDs ...int64) ([]Summary, error)
		// DeleteActivity removes the activity from its classroom. ErrNotFound if it is not there.
		DeleteActivity(ctx context.Context, classroomID, id int64) error
	}

	Service struct {
		repo Repository
	}

	// Upload is an encoded activity sent to one classroom.
	Upload struct {
		MentorID    string
		ClassroomID int64
		Kind        Kind
		FileName    string
		Content     []byte
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create decodes and stores an uploaded activity, returning the decoder warnings with it.
func (svc *Service) Create(ctx context.Context, up Upload) (Summary, []Warning, error) {
	if !up.Kind.Valid() {
		return Summary{}, nil, core.NewValidationError(nil, core.FieldError{Field: "type", Error: activityKindText})
	}
	act, warnings, err := Unmarshal(up.Content)
	if err != nil {
		return Summary{}, nil, core.NewValidationError(err, core.FieldError{Field: "file", Error: err.Error()})
	}
	if core.CleanString(act.Title) == "" {
		return Summary{}, warnings, core.NewValidationError(nil, core.FieldError{Field: "file", Error: "activity has no title"})
	}
	if act.XP < 0 {
		return Summary{}, warnings, core.NewValidationError(nil, core.FieldError{Field: "file", Error: "activity xp cannot be negative"})
	}

	sum := Summary{
		ClassroomID: up.ClassroomID,
		MentorID:    up.MentorID,
		Kind:        up.Kind,
		Title:       core.CleanString(act.Title),
		XP:          act.XP,
		FileName:    up.FileName,
		CreatedAt:   time.Now().UTC(),
	}
	sum, err = svc.repo.CreateActivity(ctx, sum, up.Content)
	return sum, warnings, errors.Wrap(err, "storing activity")
}

func (svc *Service) ListForClassrooms(ctx context.Context, classroomIDs ...int64) ([]Summary, error) {
	if len(classroomIDs) == 0 {
		return nil, nil
	}
	return svc.repo.ListActivities(ctx, classroomIDs...)
}

// Unassign removes an activity from a classroom.
func (svc *Service) Unassign(ctx context.Context, classroomID, id int64) error {
	return svc.repo.DeleteActivity(ctx, classroomID, id)
}
