package enrollment

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/lectern/core"
	"github.com/trezcool/lectern/core/user"
)

var (
	// errors
	ErrNotAStudent = errors.New("only students can be enrolled")

	NowFunc = time.Now // mockable
)

// Enrollment grants a student visibility into one course code.
type Enrollment struct {
	Student    string    `json:"student"`
	CourseCode string    `json:"course_code"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

type NewEnrollment struct {
	Student    string `json:"student" form:"student" query:"student" validate:"required"`
	CourseCode string `json:"course_code" form:"course_code" query:"course_code" validate:"required"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.Student = core.CleanString(ne.Student)
	ne.CourseCode = core.CleanString(ne.CourseCode)
	return validate.Struct(ne)
}

type (
	Repository interface {
		// CreateEnrollment is a no-op when the pair already exists.
		CreateEnrollment(ctx context.Context, e Enrollment, exec ...core.DBExecutor) error
		DeleteEnrollment(ctx context.Context, student, courseCode string, exec ...core.DBExecutor) error
		QueryEnrollments(ctx context.Context, student string, exec ...core.DBExecutor) ([]Enrollment, error)
	}

	// UserGetter looks up the student being enrolled.
	UserGetter interface {
		GetByUsername(ctx context.Context, username string) (user.User, error)
	}

	Service struct {
		repo  Repository
		users UserGetter
	}
)

func NewService(repo Repository, users UserGetter) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(users, "users"),
	).CheckAndPanic()

	return &Service{repo: repo, users: users}
}

// Enroll grants the student visibility into the course. Enrolling twice is harmless.
func (svc *Service) Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error) {
	usr, err := svc.users.GetByUsername(ctx, ne.Student)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "getting student")
	}
	if !usr.IsStudent() {
		return Enrollment{}, core.NewValidationError(ErrNotAStudent, core.FieldError{Field: "student", Error: ErrNotAStudent.Error()})
	}

	e := Enrollment{
		Student:    usr.Username,
		CourseCode: ne.CourseCode,
		CreatedAt:  NowFunc().UTC(),
	}
	if err = svc.repo.CreateEnrollment(ctx, e); err != nil {
		return Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	return e, nil
}

func (svc *Service) Unenroll(ctx context.Context, student, courseCode string) error {
	return svc.repo.DeleteEnrollment(ctx, core.CleanString(student), core.CleanString(courseCode))
}

func (svc *Service) Query(ctx context.Context, student string) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, core.CleanString(student))
}

// Courses returns the course codes the student is enrolled in.
func (svc *Service) Courses(ctx context.Context, student string) ([]string, error) {
	enrollments, err := svc.Query(ctx, student)
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		codes = append(codes, e.CourseCode)
	}
	return codes, nil
}
