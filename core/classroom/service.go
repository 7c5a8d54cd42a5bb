package classroom

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/elevana/core"
	"github.com/trezcool/elevana/core/activity"
	"github.com/trezcool/elevana/core/material"
	"github.com/trezcool/elevana/core/user"
)

const maxCodeAttempts = 5

var (
	// errors
	ErrNotFound        = errors.New("classroom not found")
	ErrCodeExists      = errors.New("class code already in use")
	ErrStudentNotFound = errors.New("student not found in classroom")
	ErrJoinClosed      = errors.New("this classroom does not accept new students")
	ErrNotMentor       = errors.New("only mentors can manage classrooms")
)

type (
	// QueryFilter narrows QueryClassrooms; zero fields do not filter.
	QueryFilter struct {
		MentorID  string
		StudentID string
	}

	Repository interface {
		// CreateClassroom returns ErrCodeExists when the class code is taken.
		CreateClassroom(ctx context.Context, cls Classroom) (Classroom, error)
		GetClassroom(ctx context.Context, id int64) (Classroom, error)
		GetClassroomByCode(ctx context.Context, code string) (Classroom, error)
		QueryClassrooms(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Classroom, error)
		UpdateClassroom(ctx context.Context, cls Classroom) (Classroom, error)
		DeleteClassroom(ctx context.Context, id int64) error
		// AddStudent is a no-op if the student is already a member.
		AddStudent(ctx context.Context, classroomID int64, studentID string) error
		RemoveStudent(ctx context.Context, classroomID int64, studentID string) error
		ListStudents(ctx context.Context, classroomID int64) ([]Student, error)
	}

	Options struct {
		AppName         string
		FrontendBaseURL string
		Mailer          core.EmailService
	}

	Service struct {
		repo       Repository
		materials  *material.Service
		activities *activity.Service
		opts       Options
	}
)

func NewService(repo Repository, materials *material.Service, activities *activity.Service, opts Options) *Service {
	return &Service{repo: repo, materials: materials, activities: activities, opts: opts}
}

// Create creates a classroom owned by mentor and mails its join code to the mentor.
func (svc *Service) Create(ctx context.Context, mentor user.User, nc NewClassroom) (Classroom, error) {
	if !mentor.IsMentor() {
		return Classroom{}, core.NewValidationError(ErrNotMentor)
	}
	now := time.Now().UTC()
	cls := Classroom{
		Name:             nc.Name,
		Description:      nc.Description,
		MentorID:         mentor.ID,
		AllowNewStudents: nc.AllowNewStudents == nil || *nc.AllowNewStudents,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	var err error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		if cls.ClassCode, err = generateClassCode(); err != nil {
			return Classroom{}, errors.Wrap(err, "generating class code")
		}
		var created Classroom
		created, err = svc.repo.CreateClassroom(ctx, cls)
		if err == nil {
			cls = created
			break
		}
		if errors.Cause(err) != ErrCodeExists {
			return Classroom{}, errors.Wrap(err, "creating classroom")
		}
	}
	if err != nil {
		return Classroom{}, errors.Wrap(err, "creating classroom")
	}

	svc.notifyCreated(mentor, cls)
	return cls, nil
}

func (svc *Service) notifyCreated(mentor user.User, cls Classroom) {
	if svc.opts.Mailer == nil {
		return
	}
	svc.opts.Mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: mentor.Name, Address: mentor.Email}},
		Subject:      fmt.Sprintf("[%s] Your classroom %q is ready", svc.opts.AppName, cls.Name),
		TemplateName: "classroom_created",
		TemplateData: cls,
	})
}

// Get returns the full classroom if usr is its mentor or one of its students.
func (svc *Service) Get(ctx context.Context, usr user.User, id int64) (Classroom, error) {
	cls, err := svc.repo.GetClassroom(ctx, id)
	if err != nil {
		return Classroom{}, err
	}
	if err = svc.loadDetails(ctx, &cls); err != nil {
		return Classroom{}, err
	}
	if cls.MentorID != usr.ID && !cls.HasStudent(usr.ID) {
		return Classroom{}, ErrNotFound
	}
	return cls, nil
}

// GetOwned returns the classroom if mentor owns it, without its collections.
func (svc *Service) GetOwned(ctx context.Context, mentor user.User, id int64) (Classroom, error) {
	cls, err := svc.repo.GetClassroom(ctx, id)
	if err != nil {
		return Classroom{}, err
	}
	if cls.MentorID != mentor.ID {
		return Classroom{}, ErrNotFound
	}
	return cls, nil
}

// List returns the classrooms a mentor owns or a student joined, with their collections.
func (svc *Service) List(ctx context.Context, usr user.User, ordering ...core.DBOrdering) ([]Classroom, error) {
	filter := QueryFilter{MentorID: usr.ID}
	if usr.IsStudent() {
		filter = QueryFilter{StudentID: usr.ID}
	}
	classes, err := svc.repo.QueryClassrooms(ctx, filter, ordering...)
	if err != nil {
		return nil, errors.Wrap(err, "querying classrooms")
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range classes {
		cls := &classes[i]
		g.Go(func() error { return svc.loadDetails(gctx, cls) })
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}
	return classes, nil
}

func (svc *Service) loadDetails(ctx context.Context, cls *Classroom) (err error) {
	if cls.Students, err = svc.repo.ListStudents(ctx, cls.ID); err != nil {
		return errors.Wrap(err, "listing students")
	}
	if cls.Materials, err = svc.materials.ListForClassroom(ctx, cls.ID); err != nil {
		return errors.Wrap(err, "listing materials")
	}
	if cls.Activities, err = svc.activities.ListForClassrooms(ctx, cls.ID); err != nil {
		return errors.Wrap(err, "listing activities")
	}
	if cls.Students == nil {
		cls.Students = []Student{}
	}
	if cls.Materials == nil {
		cls.Materials = []material.Material{}
	}
	if cls.Activities == nil {
		cls.Activities = []activity.Summary{}
	}
	return nil
}

func (svc *Service) Update(ctx context.Context, mentor user.User, id int64, uc UpdateClassroom) (Classroom, error) {
	cls, err := svc.GetOwned(ctx, mentor, id)
	if err != nil {
		return Classroom{}, err
	}
	cls.Name = uc.Name
	cls.Description = uc.Description
	if uc.AllowNewStudents != nil {
		cls.AllowNewStudents = *uc.AllowNewStudents
	}
	cls.UpdatedAt = time.Now().UTC()
	if cls, err = svc.repo.UpdateClassroom(ctx, cls); err != nil {
		return Classroom{}, errors.Wrap(err, "updating classroom")
	}
	if err = svc.loadDetails(ctx, &cls); err != nil {
		return Classroom{}, err
	}
	return cls, nil
}

func (svc *Service) Delete(ctx context.Context, mentor user.User, id int64) error {
	if _, err := svc.GetOwned(ctx, mentor, id); err != nil {
		return err
	}
	return svc.repo.DeleteClassroom(ctx, id)
}

func (svc *Service) RemoveStudent(ctx context.Context, mentor user.User, id int64, studentID string) error {
	if _, err := svc.GetOwned(ctx, mentor, id); err != nil {
		return err
	}
	return svc.repo.RemoveStudent(ctx, id, studentID)
}

func (svc *Service) UnassignActivity(ctx context.Context, mentor user.User, id, activityID int64) error {
	if _, err := svc.GetOwned(ctx, mentor, id); err != nil {
		return err
	}
	return svc.activities.Unassign(ctx, id, activityID)
}

// Join adds student to the classroom with the given code. Joining twice is a no-op.
func (svc *Service) Join(ctx context.Context, student user.User, jr JoinRequest) (Classroom, error) {
	if !student.IsStudent() {
		return Classroom{}, core.NewValidationError(errors.New("only students can join classrooms"))
	}
	cls, err := svc.repo.GetClassroomByCode(ctx, jr.ClassCode)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Classroom{}, core.NewValidationError(nil, core.FieldError{Field: "class_code", Error: classCodeText})
		}
		return Classroom{}, err
	}
	if err = svc.loadDetails(ctx, &cls); err != nil {
		return Classroom{}, err
	}
	if cls.HasStudent(student.ID) {
		return cls, nil
	}
	if !cls.AllowNewStudents {
		return Classroom{}, core.NewValidationError(ErrJoinClosed)
	}
	if err = svc.repo.AddStudent(ctx, cls.ID, student.ID); err != nil {
		return Classroom{}, errors.Wrap(err, "adding student")
	}
	return svc.Get(ctx, student, cls.ID)
}
