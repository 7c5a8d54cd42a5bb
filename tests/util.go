// Package testutil holds helpers shared by the test suites.
package testutil

import (
	"context"
	"log"
	"strings"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/trezcool/elevana/core"
	"github.com/trezcool/elevana/core/activity"
	"github.com/trezcool/elevana/core/classroom"
	"github.com/trezcool/elevana/core/user"
	logsvc "github.com/trezcool/elevana/services/logger"
)

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// NewConfig returns a TEST config whose media dir lives in a temp dir.
func NewConfig(t *testing.T) *core.Config {
	conf := &core.Config{
		AppName:          "Elevana",
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		SecretKey:        "test-secret-key",
		FrontendBaseURL:  "http://elevana.test",
		DefaultFromEmail: "Elevana <noreply@elevana.test>",
	}
	conf.Server.ShutdownTimeout = time.Second
	conf.Server.JWTExpirationDelta = time.Hour
	conf.Server.JWTRefreshExpirationDelta = 24 * time.Hour
	conf.Database.Engine = "memory"
	conf.Storage.MediaDir = t.TempDir()
	conf.Storage.MediaURL = "/media"
	conf.Storage.MaxUploadSize = 1 << 20
	return conf
}

// NewLogger returns a logger writing to the test log.
func NewLogger(t *testing.T) core.Logger {
	return logsvc.NewRollbarLogger(log.New(testWriter{t}, "TEST : ", log.Lshortfile), &core.Config{Env: "TEST", TestMode: true})
}

// NewValidator returns a validator with every domain validator registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	classroom.InitValidators(validate, translator)
	activity.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(t *testing.T, repo user.Repository, name, email, pwd string, role user.Role, createdAt ...time.Time) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}
