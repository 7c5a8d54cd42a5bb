package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/elevana/core"
	"github.com/trezcool/elevana/core/user"
	logsvc "github.com/trezcool/elevana/services/logger"
	"github.com/trezcool/elevana/storage/database"
	inmemdb "github.com/trezcool/elevana/storage/database/inmem"
	sqlxrepos "github.com/trezcool/elevana/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	var (
		db      *sql.DB
		usrRepo user.Repository
	)
	if conf.Database.Engine == "memory" {
		usrRepo = inmemdb.NewDB().Repositories().Users
	} else {
		var err error
		ctx := context.Background()
		if db, err = database.Open(ctx, conf); err != nil {
			logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
		}
		if err = database.Ping(ctx, db); err != nil {
			logger.Fatal(fmt.Sprintf("pinging database: %v", err), err)
		}
		usrRepo = sqlxrepos.NewRepositories(db).Users
	}

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		db:       db,
		usrSvc:   user.NewService(usrRepo),
		validate: validate,
		out:      os.Stdout,
	}
	err := cli.run(os.Args)
	if db != nil {
		_ = db.Close()
	}
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
