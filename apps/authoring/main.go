package main

import (
	"fmt"
	"log"
	"os"

	"github.com/trezcool/elevana/client"
	"github.com/trezcool/elevana/core"
	logsvc "github.com/trezcool/elevana/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "AUTHORING : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	api, err := client.New(client.OptionsFromConfig(conf, client.NewSession()))
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up client: %v", err), err)
	}

	cli := commandLine{api: api, token: conf.Client.Token, out: os.Stdout}
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
