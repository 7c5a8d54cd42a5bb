package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/elevana/client"
	"github.com/trezcool/elevana/core/activity"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	openFunc         = func(name string) (io.ReadCloser, error) { return os.Open(name) }

	errHelp = errors.New("help provided")
)

type commandLine struct {
	api   *client.API
	token string // pre-issued bearer token, optional
	out   io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  check FILE                                                 - decode an activity CSV and list its warnings")
	fmt.Fprintln(cli.out, "  publish -type TYPE -classes ID[,ID...] [-email EMAIL] FILE  - upload an activity CSV to classrooms")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	checkCmd := flag.NewFlagSet("check", flag.ContinueOnError)
	checkCmd.SetOutput(cli.out)

	publishCmd := flag.NewFlagSet("publish", flag.ContinueOnError)
	publishCmd.SetOutput(cli.out)
	publishKind := publishCmd.String("type", string(activity.KindMission), "mission | case-study | minigame")
	publishClasses := publishCmd.String("classes", "", "Comma separated ids of the target classrooms.")
	publishEmail := publishCmd.String("email", "", "Sign in with this email (the password is prompted) instead of the configured token.")

	switch args[1] {
	case "check":
		if err := checkCmd.Parse(args[2:]); err != nil || checkCmd.NArg() != 1 {
			checkCmd.Usage()
			return errHelp
		}
		return cli.check(checkCmd.Arg(0))

	case "publish":
		if err := publishCmd.Parse(args[2:]); err != nil || publishCmd.NArg() != 1 {
			publishCmd.Usage()
			return errHelp
		}
		kind := activity.Kind(*publishKind)
		if !kind.Valid() {
			return errors.Errorf("unknown activity type %q", *publishKind)
		}
		ids, err := parseIDs(*publishClasses)
		if err != nil {
			return err
		}
		if err = cli.signIn(*publishEmail); err != nil {
			return err
		}
		return cli.publish(context.Background(), publishCmd.Arg(0), kind, ids)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) signIn(email string) error {
	if email == "" {
		if cli.token == "" {
			return errors.New("no token configured: set CLIENT_TOKEN or pass -email")
		}
		_, err := cli.api.Session().Start(cli.token)
		return errors.Wrap(err, "starting session")
	}

	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return errors.Wrap(err, "reading password")
	}
	_, err = cli.api.Login(context.Background(), email, string(pwd))
	return errors.Wrap(err, "signing in")
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, errors.Errorf("invalid classroom id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("at least one classroom is required (-classes)")
	}
	return ids, nil
}

func (cli *commandLine) printWarnings(warnings []activity.Warning) {
	w := bufio.NewWriter(cli.out)
	defer func() { _ = w.Flush() }()
	for _, warn := range warnings {
		fmt.Fprintln(w, "warning:", warn.String())
	}
}
