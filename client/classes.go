package client

import (
	"context"

	"github.com/trezcool/elevana/core"
	"github.com/trezcool/elevana/core/activity"
	"github.com/trezcool/elevana/core/classroom"
)

// ClassBackend is the server side of the classroom cache.
type ClassBackend interface {
	ListClassrooms(ctx context.Context) ([]classroom.Classroom, error)
	GetClassroom(ctx context.Context, id int64) (classroom.Classroom, error)
	CreateClassroom(ctx context.Context, nc classroom.NewClassroom) (classroom.Classroom, error)
	UpdateClassroom(ctx context.Context, id int64, uc classroom.UpdateClassroom) (classroom.Classroom, error)
	DeleteClassroom(ctx context.Context, id int64) error
	RemoveStudent(ctx context.Context, classroomID int64, studentID string) error
	UnassignActivity(ctx context.Context, classroomID, activityID int64) error
	JoinClassroom(ctx context.Context, code string) (classroom.Classroom, error)
}

// ClassService caches the classrooms of the signed-in user.
type ClassService struct {
	*Store[classroom.Classroom]
	backend ClassBackend
}

func NewClassService(backend ClassBackend, logger core.Logger) *ClassService {
	return &ClassService{
		Store: NewStore(StoreOptions[classroom.Classroom]{
			ID:     func(c classroom.Classroom) int64 { return c.ID },
			List:   backend.ListClassrooms,
			Get:    backend.GetClassroom,
			Logger: logger,
		}),
		backend: backend,
	}
}

func (svc *ClassService) Load(ctx context.Context) error {
	return svc.Reload(ctx)
}

func (svc *ClassService) CreateClass(ctx context.Context, nc classroom.NewClassroom) (classroom.Classroom, error) {
	return svc.Create(ctx, func(ctx context.Context) (classroom.Classroom, error) {
		return svc.backend.CreateClassroom(ctx, nc)
	})
}

func (svc *ClassService) UpdateClass(ctx context.Context, id int64, uc classroom.UpdateClassroom) (classroom.Classroom, error) {
	return svc.Update(ctx, func(ctx context.Context) (classroom.Classroom, error) {
		return svc.backend.UpdateClassroom(ctx, id, uc)
	})
}

func (svc *ClassService) DeleteClass(ctx context.Context, id int64) error {
	return svc.Delete(ctx, id, func(ctx context.Context) error {
		return svc.backend.DeleteClassroom(ctx, id)
	})
}

func (svc *ClassService) RemoveStudent(ctx context.Context, classroomID int64, studentID string) error {
	return svc.MutateChild(ctx, classroomID,
		func(ctx context.Context) error { return svc.backend.RemoveStudent(ctx, classroomID, studentID) },
		func(c classroom.Classroom) classroom.Classroom {
			students := make([]classroom.Student, 0, len(c.Students))
			for _, s := range c.Students {
				if s.ID != studentID {
					students = append(students, s)
				}
			}
			c.Students = students
			return c
		},
	)
}

func (svc *ClassService) UnassignActivity(ctx context.Context, classroomID, activityID int64) error {
	return svc.MutateChild(ctx, classroomID,
		func(ctx context.Context) error { return svc.backend.UnassignActivity(ctx, classroomID, activityID) },
		func(c classroom.Classroom) classroom.Classroom {
			acts := make([]activity.Summary, 0, len(c.Activities))
			for _, a := range c.Activities {
				if a.ID != activityID {
					acts = append(acts, a)
				}
			}
			c.Activities = acts
			return c
		},
	)
}

// JoinClass joins the classroom with code and adds it to the cache (students).
func (svc *ClassService) JoinClass(ctx context.Context, code string) (classroom.Classroom, error) {
	return svc.Create(ctx, func(ctx context.Context) (classroom.Classroom, error) {
		return svc.backend.JoinClassroom(ctx, code)
	})
}
