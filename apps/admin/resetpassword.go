package main

import "context"

func (cli *commandLine) resetPassword(ctx context.Context, uname, pwd string) error {
	if err := cli.usrSvc.ResetPassword(ctx, uname, pwd); err != nil {
		return err
	}
	cli.success("password of %q updated", uname)
	return nil
}
