package user

import (
	"context"
	"fmt"
	"net/mail"
	texttmpl "text/template"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/lectern/core"
)

var (
	// errors
	ErrNotFound      = errors.New("user not found")
	ErrWrongPassword = errors.New("wrong password")
	ErrRoleMismatch  = errors.New("role mismatch")
	ErrUserExists    = errors.New("a user with this username or admission number already exists")

	NowFunc = time.Now // mockable

	accountCreatedTmpl = texttmpl.Must(texttmpl.New("account_created").Parse(
		`Hello {{.Username}},

An account has been created for you on {{.AppName}}.
Role: {{.Role}}
Course: {{.Course}}

Sign in with your username and the password given to you by the administrator.
`))
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUser(ctx context.Context, username string, exec ...core.DBExecutor) (User, error)
		QueryUsers(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		CountUsers(ctx context.Context, exec ...core.DBExecutor) (int, error)
		SetPassword(ctx context.Context, username string, hash []byte, exec ...core.DBExecutor) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		appName string
	}
)

// NewService panics when repo is nil. mailSvc may be nil (no notifications).
func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	return &Service{repo: repo, mailSvc: mailSvc, appName: conf.AppName}
}

// Create stores a new User. It fails with ErrUserExists (and writes nothing) when
// the username or admission number is already taken.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	role, ok := ParseRole(nu.Role)
	if !ok {
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: roleText})
	}
	if _, err := svc.repo.GetUser(ctx, nu.Username); err == nil {
		return User{}, ErrUserExists
	} else if errors.Cause(err) != ErrNotFound {
		return User{}, errors.Wrap(err, "checking username")
	}

	usr := User{
		Username:        nu.Username,
		Role:            role,
		Course:          nu.Course,
		Year:            strPtr(nu.Year),
		AdmissionNumber: strPtr(nu.AdmissionNumber),
		Email:           nu.Email,
		CreatedAt:       NowFunc().UTC(),
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}
	svc.sendAccountCreatedMail(usr)
	return usr, nil
}

func (svc *Service) sendAccountCreatedMail(usr User) {
	if svc.mailSvc == nil || usr.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:       []mail.Address{{Name: usr.Username, Address: usr.Email}},
		Subject:  "Your account is ready",
		Template: accountCreatedTmpl,
		TemplateData: map[string]string{
			"Username": usr.Username,
			"AppName":  svc.appName,
			"Role":     usr.Role.String(),
			"Course":   usr.Course,
		},
	})
}

// Authenticate verifies the credentials and returns the session Claim.
// Failures are ErrNotFound, ErrWrongPassword or ErrRoleMismatch, checked in that order.
func (svc *Service) Authenticate(ctx context.Context, username, pwd, role string) (Claim, error) {
	usr, err := svc.repo.GetUser(ctx, core.CleanString(username))
	if err != nil {
		return Claim{}, err
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return Claim{}, ErrWrongPassword
	}
	if r, ok := ParseRole(role); !ok || r != usr.Role {
		return Claim{}, ErrRoleMismatch
	}
	return usr.Claim(), nil
}

// Refresh rebuilds the Claim of a session from the current User record.
// A deleted user yields ErrNotFound; a role change since login yields ErrRoleMismatch.
func (svc *Service) Refresh(ctx context.Context, username string, loginRole Role) (Claim, error) {
	usr, err := svc.repo.GetUser(ctx, username)
	if err != nil {
		return Claim{}, err
	}
	if usr.Role != loginRole {
		return Claim{}, ErrRoleMismatch
	}
	return usr.Claim(), nil
}

func (svc *Service) GetByUsername(ctx context.Context, username string) (User, error) {
	return svc.repo.GetUser(ctx, core.CleanString(username))
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, []core.DBOrdering{{Field: "created_at", Ascending: true}})
}

func (svc *Service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountUsers(ctx)
}

func (svc *Service) ResetPassword(ctx context.Context, username, pwd string) error {
	usr, err := svc.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	if err = svc.repo.SetPassword(ctx, usr.Username, usr.PasswordHash); err != nil {
		return errors.Wrap(err, fmt.Sprintf("updating password of %q", usr.Username))
	}
	return nil
}
