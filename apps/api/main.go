package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	echoapi "github.com/trezcool/elevana/apps/api/echo"
	"github.com/trezcool/elevana/core"
	"github.com/trezcool/elevana/core/activity"
	"github.com/trezcool/elevana/core/classroom"
	"github.com/trezcool/elevana/core/material"
	"github.com/trezcool/elevana/core/user"
	appfs "github.com/trezcool/elevana/fs"
	emailsvc "github.com/trezcool/elevana/services/email"
	logsvc "github.com/trezcool/elevana/services/logger"
	"github.com/trezcool/elevana/storage/database"
	inmemdb "github.com/trezcool/elevana/storage/database/inmem"
	sqlxrepos "github.com/trezcool/elevana/storage/database/sqlx"
	"github.com/trezcool/elevana/storage/media"
)

type repositories struct {
	users      user.Repository
	classrooms classroom.Repository
	materials  material.Repository
	activities activity.Repository
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	repos, db, err := setUpRepositories(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	if db != nil {
		defer func() {
			if err = db.Close(); err != nil {
				dbLogger.Error("Failed to close", err)
			}
		}()
	}

	store, err := media.NewLocalStore(conf.Storage.MediaDir, conf.Storage.MediaURL)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up media storage: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug || conf.SendgridApiKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	matSvc := material.NewService(repos.materials)
	actSvc := activity.NewService(repos.activities)
	clsSvc := classroom.NewService(repos.classrooms, matSvc, actSvc, classroom.Options{
		AppName:         conf.AppName,
		FrontendBaseURL: conf.FrontendBaseURL,
		Mailer:          mailSvc,
	})
	usrSvc := user.NewService(repos.users)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	classroom.InitValidators(validate, translator)
	activity.InitValidators(validate, translator)

	core.ParseEmailTemplates(appfs.FS, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("dbEngine").Set(conf.Database.Engine)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:         conf,
		Logger:       logger,
		Validate:     validate,
		Translator:   translator,
		UserSvc:      usrSvc,
		ClassroomSvc: clsSvc,
		MaterialSvc:  matSvc,
		ActivitySvc:  actSvc,
		Media:        store,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpRepositories returns the repositories of the configured engine; db is nil for the memory engine.
func setUpRepositories(conf *core.Config) (repositories, *sql.DB, error) {
	if conf.Database.Engine == "memory" {
		r := inmemdb.NewDB().Repositories()
		return repositories{r.Users, r.Classrooms, r.Materials, r.Activities}, nil, nil
	}

	ctx := context.Background()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return repositories{}, nil, err
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		return repositories{}, nil, err
	}
	if err = database.Migrate(db, "up"); err != nil {
		_ = db.Close()
		return repositories{}, nil, err
	}
	r := sqlxrepos.NewRepositories(db)
	return repositories{r.Users, r.Classrooms, r.Materials, r.Activities}, db, nil
}
