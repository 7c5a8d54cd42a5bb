package classroom

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elevana/core"
	"github.com/trezcool/elevana/core/activity"
	"github.com/trezcool/elevana/core/material"
)

const (
	classCodeLen      = 6
	classCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no 0/O, 1/I
)

// Student is a member of a classroom.
type Student struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
	XP    int    `json:"xp" db:"xp"`
}

// Classroom is a mentor-owned group of students, materials and activities.
// ClassCode is generated once on creation and never changes.
type Classroom struct {
	ID               int64               `json:"id" db:"id"`
	Name             string              `json:"name" db:"name"`
	Description      string              `json:"description" db:"description"`
	ClassCode        string              `json:"class_code" db:"class_code"`
	MentorID         string              `json:"mentor_id" db:"mentor_id"`
	AllowNewStudents bool                `json:"allow_new_students" db:"allow_new_students"`
	Materials        []material.Material `json:"materials" db:"-"`
	Activities       []activity.Summary  `json:"activities" db:"-"`
	Students         []Student           `json:"students" db:"-"`
	CreatedAt        time.Time           `json:"created_at" db:"created_at"` // UTC
	UpdatedAt        time.Time           `json:"updated_at" db:"updated_at"` // UTC
}

func (c Classroom) HasStudent(id string) bool {
	for _, s := range c.Students {
		if s.ID == id {
			return true
		}
	}
	return false
}

// NewClassroom contains information needed to create a new Classroom.
type NewClassroom struct {
	Name             string `json:"name" validate:"required,max=255"`
	Description      string `json:"description" validate:"max=2000"`
	AllowNewStudents *bool  `json:"allow_new_students"`
}

func (nc *NewClassroom) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

// UpdateClassroom contains information needed to update a Classroom.
type UpdateClassroom struct {
	Name             string `json:"name" validate:"required,max=255"`
	Description      string `json:"description" validate:"max=2000"`
	AllowNewStudents *bool  `json:"allow_new_students"`
}

func (uc *UpdateClassroom) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	uc.Description = core.CleanString(uc.Description)
	return validate.Struct(uc)
}

// JoinRequest is sent by a student joining a classroom by its code.
type JoinRequest struct {
	ClassCode string `json:"class_code" validate:"required,classcode"`
}

func (jr *JoinRequest) Validate(validate *validator.Validate) error {
	jr.ClassCode = NormalizeClassCode(jr.ClassCode)
	return validate.Struct(jr)
}

func generateClassCode() (string, error) {
	code := make([]byte, classCodeLen)
	max := big.NewInt(int64(len(classCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = classCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}
