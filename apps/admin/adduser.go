package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/lectern/core/user"
)

// addUser creates a user through the same rules as the admin dashboard.
func (cli *commandLine) addUser(ctx context.Context, nu user.NewUser) error {
	if err := nu.Validate(cli.validate); err != nil {
		return err
	}
	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return errors.Wrapf(err, "creating %q", nu.Username)
	}
	cli.success("%s %q created", usr.Role, usr.Username)
	return nil
}
