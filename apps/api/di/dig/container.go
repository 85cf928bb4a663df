package dig_container

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/lectern/apps/api/echo"
	"github.com/trezcool/lectern/core"
	"github.com/trezcool/lectern/core/enrollment"
	"github.com/trezcool/lectern/core/lecture"
	"github.com/trezcool/lectern/core/user"
	emailsvc "github.com/trezcool/lectern/services/email"
	grammarsvc "github.com/trezcool/lectern/services/grammar"
	logsvc "github.com/trezcool/lectern/services/logger"
	transcribesvc "github.com/trezcool/lectern/services/transcribe"
	"github.com/trezcool/lectern/storage/database"
	"github.com/trezcool/lectern/storage/database/sqlx"
	"github.com/trezcool/lectern/storage/files"
	"github.com/trezcool/lectern/storage/objects"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB, core.DBExecutor) {
	setUp := func() (*sqlx.DB, error) {
		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if err = database.Migrate(context.Background(), db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridAPIKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newHTTPClient(conf *core.Config) *http.Client {
	return &http.Client{Timeout: conf.HuggingFace.Timeout}
}

func newTranscriber(conf *core.Config, client *http.Client, logger core.Logger) lecture.Transcriber {
	return transcribesvc.NewWhisperService(conf, client, logger)
}

func newCorrector(conf *core.Config, client *http.Client) lecture.Corrector {
	if !conf.HuggingFace.GrammarEnabled {
		return grammarsvc.NewPassthroughService()
	}
	return grammarsvc.NewModelService(conf, client)
}

func newAudioStore(conf *core.Config) (lecture.AudioStore, error) {
	switch conf.Storage.Backend {
	case "minio":
		return objects.NewAudioStore(context.Background(), conf)
	case "local", "":
		return files.NewAudioStore(conf.Storage.UploadDir)
	}
	return nil, errors.Errorf("unsupported storage backend %q", conf.Storage.Backend)
}

func newUserGetter(svc *user.Service) enrollment.UserGetter { return svc }
func newEnrollmentSource(svc *enrollment.Service) lecture.EnrollmentSource { return svc }

type lectureServiceParams struct {
	dig.In

	Conf        *core.Config
	DB          core.DB
	Repo        lecture.Repository
	Enrollments lecture.EnrollmentSource
	Corrector   lecture.Corrector
	Transcriber lecture.Transcriber
	AudioStore  lecture.AudioStore
	Logger      core.Logger
}

func newLectureService(p lectureServiceParams) *lecture.Service {
	return lecture.NewService(lecture.ServiceDeps{
		DB:          p.DB,
		Repo:        p.Repo,
		Enrollments: p.Enrollments,
		Corrector:   p.Corrector,
		Transcriber: p.Transcriber,
		AudioStore:  p.AudioStore,
		Logger:      p.Logger,
		Timeout:     p.Conf.HuggingFace.Timeout,
	})
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type serverParams struct {
	dig.In

	Conf          *core.Config
	Logger        core.Logger
	UserSvc       *user.Service
	EnrollmentSvc *enrollment.Service
	LectureSvc    *lecture.Service
	Sessions      sessions.Store
	Validate      *validator.Validate
	Translator    ut.Translator
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		UserSvc:       p.UserSvc,
		EnrollmentSvc: p.EnrollmentSvc,
		LectureSvc:    p.LectureSvc,
		Sessions:      p.Sessions,
		Validate:      p.Validate,
		Translator:    p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(newHTTPClient))
	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(sqlxrepos.NewEnrollmentRepository, dig.As(new(enrollment.Repository))))
	must(c.Provide(sqlxrepos.NewLectureRepository, dig.As(new(lecture.Repository))))
	must(c.Provide(user.NewService))
	must(c.Provide(newUserGetter))
	must(c.Provide(enrollment.NewService))
	must(c.Provide(newEnrollmentSource))
	must(c.Provide(newTranscriber))
	must(c.Provide(newCorrector))
	must(c.Provide(newAudioStore))
	must(c.Provide(newLectureService))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(echoapi.NewSessionStore))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
