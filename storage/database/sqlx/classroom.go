package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/elevana/core"
	"github.com/trezcool/elevana/core/classroom"
	"github.com/trezcool/elevana/storage/database"
)

const classroomColumns = `c.id, c.name, c.description, c.class_code, c.mentor_id, c.allow_new_students, c.created_at, c.updated_at`

var classroomOrderingFields = map[string]bool{"c.id": true, "c.name": true, "c.created_at": true}

type classroomRepository struct {
	db *sqlx.DB
}

var _ classroom.Repository = (*classroomRepository)(nil)

func NewClassroomRepository(db *sqlx.DB) classroom.Repository {
	return &classroomRepository{db: db}
}

func (repo *classroomRepository) CreateClassroom(ctx context.Context, cls classroom.Classroom) (classroom.Classroom, error) {
	q := `INSERT INTO classroom (name, description, class_code, mentor_id, allow_new_students, created_at, updated_at)
		VALUES (:name, :description, :class_code, :mentor_id, :allow_new_students, :created_at, :updated_at)
		RETURNING id`
	rows, err := repo.db.NamedQueryContext(ctx, q, cls)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return classroom.Classroom{}, classroom.ErrCodeExists
		}
		return classroom.Classroom{}, errors.Wrap(err, "inserting classroom")
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		if err = rows.Scan(&cls.ID); err != nil {
			return classroom.Classroom{}, errors.Wrap(err, "scanning classroom id")
		}
	}
	return cls, errors.Wrap(rows.Err(), "inserting classroom")
}

func (repo *classroomRepository) get(ctx context.Context, where string, arg interface{}) (classroom.Classroom, error) {
	var cls classroom.Classroom
	err := repo.db.GetContext(ctx, &cls, `SELECT `+classroomColumns+` FROM classroom c WHERE `+where, arg)
	if err == sql.ErrNoRows {
		return classroom.Classroom{}, classroom.ErrNotFound
	}
	return cls, errors.Wrap(err, "selecting classroom")
}

func (repo *classroomRepository) GetClassroom(ctx context.Context, id int64) (classroom.Classroom, error) {
	return repo.get(ctx, "c.id = $1", id)
}

func (repo *classroomRepository) GetClassroomByCode(ctx context.Context, code string) (classroom.Classroom, error) {
	return repo.get(ctx, "c.class_code = $1", code)
}

func (repo *classroomRepository) QueryClassrooms(ctx context.Context, filter classroom.QueryFilter, ordering ...core.DBOrdering) ([]classroom.Classroom, error) {
	q := `SELECT ` + classroomColumns + ` FROM classroom c`
	var args []interface{}
	switch {
	case filter.StudentID != "":
		q += ` JOIN classroom_student cs ON cs.classroom_id = c.id WHERE cs.student_id = $1`
		args = append(args, filter.StudentID)
	case filter.MentorID != "":
		q += ` WHERE c.mentor_id = $1`
		args = append(args, filter.MentorID)
	}

	ords := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		ords = append(ords, core.DBOrdering{Field: "c." + ord.Field, Ascending: ord.Ascending})
	}
	q += ` ORDER BY ` + core.OrderBy(ords, classroomOrderingFields, "c.id ASC")

	classes := make([]classroom.Classroom, 0)
	if err := repo.db.SelectContext(ctx, &classes, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting classrooms")
	}
	return classes, nil
}

func (repo *classroomRepository) UpdateClassroom(ctx context.Context, cls classroom.Classroom) (classroom.Classroom, error) {
	q := `UPDATE classroom
		SET name = :name, description = :description, allow_new_students = :allow_new_students, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, cls)
	if err != nil {
		return classroom.Classroom{}, errors.Wrap(err, "updating classroom")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return classroom.Classroom{}, classroom.ErrNotFound
	}
	return repo.GetClassroom(ctx, cls.ID)
}

func (repo *classroomRepository) DeleteClassroom(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM classroom WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting classroom")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return classroom.ErrNotFound
	}
	return nil
}

func (repo *classroomRepository) AddStudent(ctx context.Context, classroomID int64, studentID string) error {
	q := `INSERT INTO classroom_student (classroom_id, student_id, joined_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (classroom_id, student_id) DO NOTHING`
	_, err := repo.db.ExecContext(ctx, q, classroomID, studentID)
	return errors.Wrap(err, "adding student")
}

func (repo *classroomRepository) RemoveStudent(ctx context.Context, classroomID int64, studentID string) error {
	res, err := repo.db.ExecContext(ctx,
		`DELETE FROM classroom_student WHERE classroom_id = $1 AND student_id = $2`, classroomID, studentID)
	if err != nil {
		return errors.Wrap(err, "removing student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return classroom.ErrStudentNotFound
	}
	return nil
}

func (repo *classroomRepository) ListStudents(ctx context.Context, classroomID int64) ([]classroom.Student, error) {
	q := `SELECT u.id, u.name, u.email, u.xp
		FROM classroom_student cs JOIN "user" u ON u.id = cs.student_id
		WHERE cs.classroom_id = $1
		ORDER BY u.name`
	students := make([]classroom.Student, 0)
	if err := repo.db.SelectContext(ctx, &students, q, classroomID); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	return students, nil
}
