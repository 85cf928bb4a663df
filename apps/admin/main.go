package main

import (
	"context"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/lectern/core"
	"github.com/trezcool/lectern/core/enrollment"
	"github.com/trezcool/lectern/core/user"
	emailsvc "github.com/trezcool/lectern/services/email"
	logsvc "github.com/trezcool/lectern/services/logger"
	"github.com/trezcool/lectern/storage/database"
	"github.com/trezcool/lectern/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
	if len(os.Args) > 1 && os.Args[1] != "migrate" {
		if err = database.Migrate(context.Background(), db); err != nil {
			logger.Fatal(err.Error(), err)
		}
	}

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// start CLI
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), emailsvc.NewConsoleService(conf, logger), conf)
	cli := commandLine{
		db:        db,
		usrSvc:    usrSvc,
		enrollSvc: enrollment.NewService(sqlxrepos.NewEnrollmentRepository(db), usrSvc),
		validate:  validate,
		out:       os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			printError(err, translator)
		}
		os.Exit(1)
	}
}

func printError(err error, translator ut.Translator) {
	red := color.New(color.FgRed)
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		for fld, msg := range core.TranslateErrors(vErrs, translator) {
			_, _ = red.Fprintf(os.Stderr, "%s: %s\n", fld, msg)
		}
		return
	}
	_, _ = red.Fprintf(os.Stderr, "error: %s\n", err)
}
