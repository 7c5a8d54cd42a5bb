// Package inmemdb implements the repositories in memory, for tests and the "memory" database engine.
package inmemdb

import (
	"sync"

	"github.com/trezcool/elevana/core/activity"
	"github.com/trezcool/elevana/core/classroom"
	"github.com/trezcool/elevana/core/material"
	"github.com/trezcool/elevana/core/user"
)

type activityRow struct {
	activity.Summary
	content []byte
}

// DB holds every table behind one lock so repositories can join across tables.
type DB struct {
	mu         sync.RWMutex
	users      map[string]*user.User
	classrooms map[int64]*classroom.Classroom
	members    map[int64]map[string]bool // classroom id -> student ids
	materials  map[int64]*material.Material
	activities map[int64]*activityRow
	seq        int64
}

func NewDB() *DB {
	return &DB{
		users:      make(map[string]*user.User),
		classrooms: make(map[int64]*classroom.Classroom),
		members:    make(map[int64]map[string]bool),
		materials:  make(map[int64]*material.Material),
		activities: make(map[int64]*activityRow),
	}
}

func (db *DB) nextID() int64 {
	db.seq++
	return db.seq
}

// Repositories bundles every repository of a DB.
type Repositories struct {
	Users      user.Repository
	Classrooms classroom.Repository
	Materials  material.Repository
	Activities activity.Repository
}

func (db *DB) Repositories() Repositories {
	return Repositories{
		Users:      NewUserRepository(db),
		Classrooms: NewClassroomRepository(db),
		Materials:  NewMaterialRepository(db),
		Activities: NewActivityRepository(db),
	}
}
