package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/elevana/core/user"
)

// addUser creates a user from the command line.
func (cli *commandLine) addUser(nu user.NewUser) error {
	ctx := context.Background()
	if err := nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		return err
	}
	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	fmt.Fprintf(cli.out, "%s %q created (id: %s)\n", usr.Role, usr.Email, usr.ID)
	return nil
}
