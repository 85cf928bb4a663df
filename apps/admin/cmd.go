package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/trezcool/lectern/core/enrollment"
	"github.com/trezcool/lectern/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

const (
	bootstrapCourse    = "Administration"
	bootstrapAdmission = "ADMIN001"
)

type commandLine struct {
	db        *sqlx.DB
	usrSvc    *user.Service
	enrollSvc *enrollment.Service
	validate  *validator.Validate
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  adduser --username USERNAME [--course COURSE] [--admission NUMBER] [--role ROLE] [--email EMAIL] - create a user (the first admin by default)")
	_, _ = fmt.Fprintln(cli.out, "  resetpassword --username USERNAME - reset user's password")
	_, _ = fmt.Fprintln(cli.out, "  enroll --student USERNAME --course CODE [--remove] - enroll (or unenroll) a student")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
}

// newFlagSet returns a subcommand FlagSet printing its usage to cli.out.
func (cli *commandLine) newFlagSet(name string) *pflag.FlagSet {
	cmd := pflag.NewFlagSet(name, pflag.ContinueOnError)
	cmd.SetOutput(cli.out)
	cmd.Usage = func() {
		_, _ = fmt.Fprintf(cli.out, "Usage of %s:\n", name)
		cmd.PrintDefaults()
	}
	return cmd
}

func (cli *commandLine) success(format string, args ...interface{}) {
	_, _ = color.New(color.FgGreen).Fprintf(cli.out, format+"\n", args...)
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	switch args[1] {
	case "adduser":
		cmd := cli.newFlagSet("adduser")
		uname := cmd.String("username", "", "The new user's username. The password will be prompted next.")
		course := cmd.String("course", bootstrapCourse, "The user's home course.")
		admission := cmd.String("admission", "", "The user's admission number ("+bootstrapAdmission+" for an admin by default).")
		role := cmd.String("role", user.RoleAdmin.String(), "One of admin, lecturer or student.")
		year := cmd.String("year", "", "The student's year (1 to 4).")
		email := cmd.String("email", "", "Where to send the account-created notice.")
		if err := cmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *uname == "" {
			cmd.Usage()
			return errHelp
		}
		if r, ok := user.ParseRole(*role); ok && r == user.RoleAdmin && *admission == "" {
			*admission = bootstrapAdmission
		}
		pwd, err := cli.readPassword(cmd)
		if err != nil {
			return err
		}
		return cli.addUser(ctx, user.NewUser{
			Username:        *uname,
			Password:        pwd,
			Role:            *role,
			Course:          *course,
			Year:            *year,
			AdmissionNumber: *admission,
			Email:           *email,
		})

	case "resetpassword":
		cmd := cli.newFlagSet("resetpassword")
		uname := cmd.String("username", "", "The user's username. The password will be prompted next.")
		if err := cmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *uname == "" {
			cmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword(cmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(ctx, *uname, pwd)

	case "enroll":
		cmd := cli.newFlagSet("enroll")
		student := cmd.String("student", "", "The student's username.")
		course := cmd.String("course", "", "The course code.")
		remove := cmd.Bool("remove", false, "Unenroll instead.")
		if err := cmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *student == "" || *course == "" {
			cmd.Usage()
			return errHelp
		}
		if *remove {
			return cli.unenroll(ctx, *student, *course)
		}
		return cli.enroll(ctx, *student, *course)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) readPassword(cmd *pflag.FlagSet) (string, error) {
	_, _ = fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		cmd.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}
