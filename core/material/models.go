package material

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Material is an uploaded file, assigned to at most one classroom.
type Material struct {
	ID          int64      `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	URL         string     `json:"url" db:"url"`
	FileType    string     `json:"file_type" db:"file_type"`
	MentorID    string     `json:"mentor_id" db:"mentor_id"`
	ClassroomID null.Int64 `json:"classroom_id" db:"classroom_id"` // null = unassigned
	UploadedAt  time.Time  `json:"uploaded_at" db:"uploaded_at"`   // UTC
}

func (m Material) Assigned() bool { return m.ClassroomID.Valid }

// AssignedTo reports whether m belongs to classroomID; a null classroomID matches unassigned materials.
func (m Material) AssignedTo(classroomID null.Int64) bool {
	if !classroomID.Valid {
		return !m.ClassroomID.Valid
	}
	return m.ClassroomID.Valid && m.ClassroomID.Int64 == classroomID.Int64
}

// NewMaterial is a stored upload waiting to be recorded.
type NewMaterial struct {
	Name        string
	URL         string
	FileType    string
	ClassroomID null.Int64
}

// Assignment moves materials to a classroom, or unassigns them when ClassroomID is null.
type Assignment struct {
	IDs         []int64    `json:"ids" validate:"required,min=1,dive,gt=0"`
	ClassroomID null.Int64 `json:"classroom_id"`
}
