package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/elevana/core/user"
	"github.com/trezcool/elevana/storage/database"
)

const userColumns = `id, name, email, role, xp, password_hash, created_at, updated_at, last_login`

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error {
	if excludedIDs == nil {
		excludedIDs = []string{}
	}
	var count int
	q := `SELECT COUNT(*) FROM "user" WHERE email = $1 AND NOT (id::text = ANY($2))`
	if err := repo.db.GetContext(ctx, &count, q, email, pq.Array(excludedIDs)); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `INSERT INTO "user" (` + userColumns + `)
		VALUES (:id, :name, :email, :role, :xp, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, q, usr); err != nil {
		if database.IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var (
		usr user.User
		err error
	)
	if filter.ID != "" {
		err = repo.db.GetContext(ctx, &usr, `SELECT `+userColumns+` FROM "user" WHERE id = $1`, filter.ID)
	} else {
		err = repo.db.GetContext(ctx, &usr, `SELECT `+userColumns+` FROM "user" WHERE email = $1`, filter.Email)
	}
	if err == sql.ErrNoRows {
		return user.User{}, user.ErrNotFound
	}
	return usr, errors.Wrap(err, "selecting user")
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE "user"
		SET name = :name, email = :email, password_hash = :password_hash, last_login = :last_login, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, usr)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
}

func (repo *userRepository) AddXP(ctx context.Context, id string, amount int) (user.User, error) {
	var usr user.User
	q := `UPDATE "user" SET xp = xp + $2 WHERE id = $1 RETURNING ` + userColumns
	err := repo.db.GetContext(ctx, &usr, q, id, amount)
	if err == sql.ErrNoRows {
		return user.User{}, user.ErrNotFound
	}
	return usr, errors.Wrap(err, "adding xp")
}
