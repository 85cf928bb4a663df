package lecture

import (
	"context"
	"io"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/lectern/core"
	"github.com/trezcool/lectern/core/user"
)

var (
	// errors
	ErrNotFound      = errors.New("lecture not found")
	ErrAccessDenied  = errors.New("access to this lecture denied")
	ErrNotLecturer   = errors.New("only lecturers can author lectures")
	ErrMissingFields = errors.New("missing required fields")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateLecture(ctx context.Context, l Lecture, exec ...core.DBExecutor) (Lecture, error)
		GetLecture(ctx context.Context, id int, exec ...core.DBExecutor) (Lecture, error)
		// QueryLectures returns the lectures matching filter, newest first.
		QueryLectures(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Lecture, error)
	}

	// QueryFilter selects lectures. A zero filter selects all of them.
	QueryFilter struct {
		Author string
		// VisibleTo restricts the result to the lectures the student may see.
		VisibleTo *user.Claim
	}

	// Corrector is the grammar-correction collaborator. It returns the corrected
	// candidates for text, best first. No candidates means nothing to correct.
	Corrector interface {
		Correct(ctx context.Context, text string) ([]string, error)
	}

	// Transcriber is the speech-to-text collaborator.
	Transcriber interface {
		Transcribe(ctx context.Context, audio io.Reader, contentType string) (string, error)
	}

	// AudioStore stages uploaded recordings while they are transcribed.
	AudioStore interface {
		Stage(ctx context.Context, a Audio) (key string, err error)
		Open(ctx context.Context, key string) (io.ReadCloser, error)
		Remove(ctx context.Context, key string) error
	}

	// EnrollmentSource lists the course codes a student is enrolled in.
	EnrollmentSource interface {
		Courses(ctx context.Context, student string) ([]string, error)
	}

	ServiceDeps struct {
		DB          core.DB
		Repo        Repository
		Enrollments EnrollmentSource
		Corrector   Corrector
		Transcriber Transcriber
		AudioStore  AudioStore
		Logger      core.Logger
		// Timeout bounds every collaborator call.
		Timeout time.Duration
	}

	Service struct {
		ServiceDeps
	}
)

func NewService(deps ServiceDeps) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.DB, "DB"),
		vala.IsNotNil(deps.Repo, "Repo"),
		vala.IsNotNil(deps.Enrollments, "Enrollments"),
		vala.IsNotNil(deps.Corrector, "Corrector"),
		vala.IsNotNil(deps.Transcriber, "Transcriber"),
		vala.IsNotNil(deps.AudioStore, "AudioStore"),
		vala.IsNotNil(deps.Logger, "Logger"),
	).CheckAndPanic()

	if deps.Timeout <= 0 {
		deps.Timeout = time.Minute
	}
	return &Service{ServiceDeps: deps}
}

// ListVisible returns the lectures the claim may list, newest first:
// students get their enrolled courses plus their home cohort, lecturers get their own
// lectures and admins get everything.
func (svc *Service) ListVisible(ctx context.Context, claim user.Claim) ([]Lecture, error) {
	var filter QueryFilter
	switch claim.Role {
	case user.RoleStudent:
		filter.VisibleTo = &claim
	case user.RoleLecturer:
		filter.Author = claim.Username
	case user.RoleAdmin:
	default:
		return nil, nil
	}

	lectures, err := svc.Repo.QueryLectures(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying lectures")
	}
	return lectures, nil
}

// Authored returns the lecturer's own lectures, newest first.
func (svc *Service) Authored(ctx context.Context, claim user.Claim) ([]Lecture, error) {
	if claim.Role != user.RoleLecturer {
		return nil, ErrNotLecturer
	}
	return svc.ListVisible(ctx, claim)
}

// Get returns the lecture, ErrNotFound, or ErrAccessDenied when a student may not see it.
func (svc *Service) Get(ctx context.Context, claim user.Claim, id int) (Lecture, error) {
	l, err := svc.Repo.GetLecture(ctx, id)
	if err != nil {
		return Lecture{}, err
	}

	var enrolled []string
	if claim.Role == user.RoleStudent {
		if enrolled, err = svc.Enrollments.Courses(ctx, claim.Username); err != nil {
			return Lecture{}, errors.Wrap(err, "getting enrollments")
		}
	}
	if !CanOpen(claim, enrolled, l) {
		return Lecture{}, ErrAccessDenied
	}
	return l, nil
}

// Save corrects the title and content then stores the lecture authored by the claim.
// Only the corrected text is stored.
func (svc *Service) Save(ctx context.Context, claim user.Claim, nl NewLecture) (Lecture, error) {
	if claim.Role != user.RoleLecturer {
		return Lecture{}, ErrNotLecturer
	}
	if nl.Title == "" || nl.Course == "" || nl.Year == "" || nl.Content == "" {
		return Lecture{}, core.NewValidationError(ErrMissingFields)
	}

	title, err := svc.correct(ctx, nl.Title)
	if err != nil {
		return Lecture{}, err
	}
	content, err := svc.correct(ctx, nl.Content)
	if err != nil {
		return Lecture{}, err
	}

	l := Lecture{
		Title:     title,
		Course:    nl.Course,
		Year:      nl.Year,
		Content:   content,
		Author:    claim.Username,
		CreatedAt: NowFunc().UTC(),
	}
	err = core.RunInTx(ctx, svc.DB, func(tx core.DBExecutor) error {
		var err error
		l, err = svc.Repo.CreateLecture(ctx, l, tx)
		return err
	})
	if err != nil {
		return Lecture{}, core.NewPersistenceError("saving lecture", err)
	}
	return l, nil
}

// correct returns the best candidate, or text itself when there is none.
func (svc *Service) correct(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, svc.Timeout)
	defer cancel()

	candidates, err := svc.Corrector.Correct(ctx, text)
	if err != nil {
		return "", asCollaboratorError("grammar correction", err)
	}
	if len(candidates) == 0 || candidates[0] == "" {
		return text, nil
	}
	return candidates[0], nil
}

// Transcribe stages the audio, sends it to the transcription collaborator and
// removes the staged copy whatever the outcome.
func (svc *Service) Transcribe(ctx context.Context, claim user.Claim, a Audio) (string, error) {
	if claim.Role != user.RoleLecturer {
		return "", ErrNotLecturer
	}

	key, err := svc.AudioStore.Stage(ctx, a)
	if err != nil {
		return "", errors.Wrap(err, "staging audio")
	}
	defer func() {
		if err := svc.AudioStore.Remove(context.Background(), key); err != nil {
			svc.Logger.Error("removing staged audio "+key, err, claim)
		}
	}()

	rc, err := svc.AudioStore.Open(ctx, key)
	if err != nil {
		return "", errors.Wrap(err, "opening staged audio")
	}
	defer func() { _ = rc.Close() }()

	tctx, cancel := context.WithTimeout(ctx, svc.Timeout)
	defer cancel()

	text, err := svc.Transcriber.Transcribe(tctx, rc, a.ContentType)
	if err != nil {
		return "", asCollaboratorError("transcription", err)
	}
	return text, nil
}

func asCollaboratorError(service string, err error) error {
	if _, ok := errors.Cause(err).(*core.CollaboratorError); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return core.NewCollaboratorError(service, errors.Wrap(err, "timed out"))
	}
	return core.NewCollaboratorError(service, err)
}
