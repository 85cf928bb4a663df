package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/lectern/core"
	"github.com/trezcool/lectern/core/enrollment"
)

type enrollmentRow struct {
	Student    string    `db:"student"`
	CourseCode string    `db:"course_code"`
	CreatedAt  time.Time `db:"created_at"`
}

type enrollmentRepository struct {
	repo
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(exec core.DBExecutor) *enrollmentRepository {
	return &enrollmentRepository{repo{exec: exec}}
}

func (r enrollmentRepository) CreateEnrollment(ctx context.Context, e enrollment.Enrollment, exec ...core.DBExecutor) error {
	ex := r.getExec(exec)
	q := ex.Rebind(`INSERT INTO enrollments (student, course_code, created_at) VALUES (?, ?, ?)
		ON CONFLICT (student, course_code) DO NOTHING`)
	if _, err := ex.ExecContext(ctx, q, e.Student, e.CourseCode, e.CreatedAt.UTC()); err != nil {
		return errors.Wrap(err, "inserting enrollment")
	}
	return nil
}

func (r enrollmentRepository) DeleteEnrollment(ctx context.Context, student, courseCode string, exec ...core.DBExecutor) error {
	ex := r.getExec(exec)
	q := ex.Rebind(`DELETE FROM enrollments WHERE student = ? AND course_code = ?`)
	if _, err := ex.ExecContext(ctx, q, student, courseCode); err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return nil
}

func (r enrollmentRepository) QueryEnrollments(ctx context.Context, student string, exec ...core.DBExecutor) ([]enrollment.Enrollment, error) {
	ex := r.getExec(exec)
	q := `SELECT student, course_code, created_at FROM enrollments`
	args := make([]interface{}, 0, 1)
	if student != "" {
		q += ` WHERE student = ?`
		args = append(args, student)
	}
	q += ` ORDER BY student, course_code`

	var rows []enrollmentRow
	if err := ex.SelectContext(ctx, &rows, ex.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting enrollments")
	}
	enrollments := make([]enrollment.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrollments = append(enrollments, enrollment.Enrollment{
			Student:    row.Student,
			CourseCode: row.CourseCode,
			CreatedAt:  row.CreatedAt.UTC(),
		})
	}
	return enrollments, nil
}
