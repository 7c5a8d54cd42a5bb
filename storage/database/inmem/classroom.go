package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/elevana/core"
	"github.com/trezcool/elevana/core/classroom"
)

type classroomRepository struct {
	db *DB
}

var _ classroom.Repository = (*classroomRepository)(nil)

func NewClassroomRepository(db *DB) classroom.Repository {
	return &classroomRepository{db: db}
}

func (repo *classroomRepository) CreateClassroom(_ context.Context, cls classroom.Classroom) (classroom.Classroom, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, c := range repo.db.classrooms {
		if c.ClassCode == cls.ClassCode {
			return classroom.Classroom{}, classroom.ErrCodeExists
		}
	}
	cls.ID = repo.db.nextID()
	cls.Students, cls.Materials, cls.Activities = nil, nil, nil
	repo.db.classrooms[cls.ID] = &cls
	return cls, nil
}

func (repo *classroomRepository) GetClassroom(_ context.Context, id int64) (classroom.Classroom, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if cls, ok := repo.db.classrooms[id]; ok {
		return *cls, nil
	}
	return classroom.Classroom{}, classroom.ErrNotFound
}

func (repo *classroomRepository) GetClassroomByCode(_ context.Context, code string) (classroom.Classroom, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, cls := range repo.db.classrooms {
		if cls.ClassCode == code {
			return *cls, nil
		}
	}
	return classroom.Classroom{}, classroom.ErrNotFound
}

func (repo *classroomRepository) QueryClassrooms(_ context.Context, filter classroom.QueryFilter, ordering ...core.DBOrdering) ([]classroom.Classroom, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	classes := make([]classroom.Classroom, 0)
	for _, cls := range repo.db.classrooms {
		if filter.MentorID != "" && cls.MentorID != filter.MentorID {
			continue
		}
		if filter.StudentID != "" && !repo.db.members[cls.ID][filter.StudentID] {
			continue
		}
		classes = append(classes, *cls)
	}
	sortClassrooms(classes, ordering)
	return classes, nil
}

func sortClassrooms(classes []classroom.Classroom, ordering []core.DBOrdering) {
	less := func(a, b classroom.Classroom, ord core.DBOrdering) int {
		switch ord.Field {
		case "name":
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case "created_at":
			return a.CreatedAt.Compare(b.CreatedAt)
		case "id":
			return cmpInt64(a.ID, b.ID)
		}
		return 0
	}
	sort.SliceStable(classes, func(i, j int) bool {
		for _, ord := range ordering {
			c := less(classes[i], classes[j], ord)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return classes[i].ID < classes[j].ID
	})
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (repo *classroomRepository) UpdateClassroom(_ context.Context, cls classroom.Classroom) (classroom.Classroom, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.classrooms[cls.ID]
	if !ok {
		return classroom.Classroom{}, classroom.ErrNotFound
	}
	// the class code is immutable
	orig.Name = cls.Name
	orig.Description = cls.Description
	orig.AllowNewStudents = cls.AllowNewStudents
	orig.UpdatedAt = cls.UpdatedAt
	return *orig, nil
}

func (repo *classroomRepository) DeleteClassroom(_ context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.classrooms[id]; !ok {
		return classroom.ErrNotFound
	}
	delete(repo.db.classrooms, id)
	delete(repo.db.members, id)
	for _, mat := range repo.db.materials {
		if mat.ClassroomID.Valid && mat.ClassroomID.Int64 == id {
			mat.ClassroomID.Valid = false
			mat.ClassroomID.Int64 = 0
		}
	}
	for aid, act := range repo.db.activities {
		if act.ClassroomID == id {
			delete(repo.db.activities, aid)
		}
	}
	return nil
}

func (repo *classroomRepository) AddStudent(_ context.Context, classroomID int64, studentID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.classrooms[classroomID]; !ok {
		return classroom.ErrNotFound
	}
	if repo.db.members[classroomID] == nil {
		repo.db.members[classroomID] = make(map[string]bool)
	}
	repo.db.members[classroomID][studentID] = true
	return nil
}

func (repo *classroomRepository) RemoveStudent(_ context.Context, classroomID int64, studentID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.members[classroomID][studentID] {
		return classroom.ErrStudentNotFound
	}
	delete(repo.db.members[classroomID], studentID)
	return nil
}

func (repo *classroomRepository) ListStudents(_ context.Context, classroomID int64) ([]classroom.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make([]classroom.Student, 0, len(repo.db.members[classroomID]))
	for id := range repo.db.members[classroomID] {
		if usr, ok := repo.db.users[id]; ok {
			students = append(students, classroom.Student{ID: usr.ID, Name: usr.Name, Email: usr.Email, XP: usr.XP})
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].Name < students[j].Name })
	return students, nil
}
