package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elevana/core/user"
	inmemdb "github.com/trezcool/elevana/storage/database/inmem"
	testutil "github.com/trezcool/elevana/tests"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	usrRepo = inmemdb.NewDB().Repositories().Users
	validate, _ := testutil.NewValidator()
	return &commandLine{
		db:       new(sql.DB), // never used: migrations are mocked
		usrSvc:   user.NewService(usrRepo),
		validate: validate,
		out:      new(bytes.Buffer),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, err error) bool {
	switch {
	case tt.wantErr != nil:
		return assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
	case tt.wantErrStr != "":
		return assert.EqualError(t, err, tt.wantErrStr)
	}
	return assert.NoError(t, err)
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	migrateFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "streaks", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	t.Run("memory engine", func(t *testing.T) {
		cli := setup(t)
		cli.db = nil
		assert.Error(t, cli.run([]string{"admin", "migrate", "up"}))
	})
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	testutil.CreateUser(t, usrRepo, "Grace", "grace@elevana.test", "Passw0rd!", user.RoleMentor)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-email", "ada@elevana.test", "-name", "Ada"}, wantErr: errHelp},
		{name: "bad flag", args: []string{"adduser", "-lol"}, wantErr: errHelp},
		{name: "email exists", args: []string{"adduser", "-email", "grace@elevana.test", "-name", "Grace"}, pwd: "Passw0rd!", wantErr: user.ErrEmailExists},
		{name: "mentor", args: []string{"adduser", "-email", "Ada@Elevana.test", "-name", "Ada"}, pwd: "Passw0rd!"},
		{name: "student", args: []string{"adduser", "-email", "linus@elevana.test", "-name", "Linus", "-role", "student"}, pwd: "Passw0rd!"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		mockPassword(tt.pwd)
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	t.Run("invalid role", func(t *testing.T) {
		mockPassword("Passw0rd!")
		err := cli.run([]string{"admin", "adduser", "-email", "x@elevana.test", "-name", "X", "-role", "admin"})
		assert.Error(t, err)
	})

	ctx := context.Background()
	ada, err := usrRepo.GetUser(ctx, user.GetFilter{Email: "ada@elevana.test"})
	require.NoError(t, err)
	assert.Equal(t, user.RoleMentor, ada.Role)
	assert.NoError(t, ada.CheckPassword("Passw0rd!"))

	linus, err := usrRepo.GetUser(ctx, user.GetFilter{Email: "linus@elevana.test"})
	require.NoError(t, err)
	assert.True(t, linus.IsStudent())
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	usr := testutil.CreateUser(t, usrRepo, "Ada", "ada@elevana.test", "Passw0rd!", user.RoleMentor)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@elevana.test"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@elevana.test"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, pwd: "N3wPassword"},
		{name: "reset, case insensitive", args: []string{"resetpassword", "-email", "ADA@elevana.test"}, pwd: "N3werPassword"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		mockPassword(tt.pwd)
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(t, cli.run(args)) || tt.pwd == "" || tt.wantErr != nil {
				return
			}
			refreshed, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
			require.NoError(t, err)
			assert.NoError(t, refreshed.CheckPassword(tt.pwd))
		})
	}
}
