// Package sqlxrepos implements the repositories on postgres with sqlx.
package sqlxrepos

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/elevana/core/activity"
	"github.com/trezcool/elevana/core/classroom"
	"github.com/trezcool/elevana/core/material"
	"github.com/trezcool/elevana/core/user"
)

const driverName = "postgres"

// Repositories bundles every repository sharing one connection pool.
type Repositories struct {
	Users      user.Repository
	Classrooms classroom.Repository
	Materials  material.Repository
	Activities activity.Repository
}

func NewRepositories(db *sql.DB) Repositories {
	xdb := sqlx.NewDb(db, driverName)
	return Repositories{
		Users:      NewUserRepository(xdb),
		Classrooms: NewClassroomRepository(xdb),
		Materials:  NewMaterialRepository(xdb),
		Activities: NewActivityRepository(xdb),
	}
}
