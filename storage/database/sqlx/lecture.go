package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/lectern/core"
	"github.com/trezcool/lectern/core/lecture"
)

type lectureRow struct {
	ID        int       `db:"id"`
	Title     string    `db:"title"`
	Course    string    `db:"course"`
	Year      string    `db:"year"`
	Content   string    `db:"content"`
	Author    string    `db:"author"`
	CreatedAt time.Time `db:"created_at"`
}

func (row lectureRow) lecture() lecture.Lecture {
	return lecture.Lecture{
		ID:        row.ID,
		Title:     row.Title,
		Course:    row.Course,
		Year:      row.Year,
		Content:   row.Content,
		Author:    row.Author,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

const lectureColumns = "id, title, course, year, content, author, created_at"

type lectureRepository struct {
	repo
}

var _ lecture.Repository = (*lectureRepository)(nil) // interface compliance check

func NewLectureRepository(exec core.DBExecutor) *lectureRepository {
	return &lectureRepository{repo{exec: exec}}
}

func (r lectureRepository) CreateLecture(ctx context.Context, l lecture.Lecture, exec ...core.DBExecutor) (lecture.Lecture, error) {
	ex := r.getExec(exec)
	q := ex.Rebind(`INSERT INTO lectures (title, course, year, content, author, created_at)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)

	l.CreatedAt = l.CreatedAt.UTC()
	if err := ex.QueryRowxContext(ctx, q, l.Title, l.Course, l.Year, l.Content, l.Author, l.CreatedAt).Scan(&l.ID); err != nil {
		return lecture.Lecture{}, errors.Wrap(err, "inserting lecture")
	}
	return l, nil
}

func (r lectureRepository) GetLecture(ctx context.Context, id int, exec ...core.DBExecutor) (lecture.Lecture, error) {
	ex := r.getExec(exec)
	var row lectureRow
	q := ex.Rebind(`SELECT ` + lectureColumns + ` FROM lectures WHERE id = ?`)
	if err := ex.GetContext(ctx, &row, q, id); err != nil {
		return lecture.Lecture{}, trapNoRowsErr(err, lecture.ErrNotFound)
	}
	return row.lecture(), nil
}

// QueryLectures applies AND on the filter fields. VisibleTo keeps the lectures of the
// student's enrolled courses OR of the student's home course and year.
func (r lectureRepository) QueryLectures(ctx context.Context, filter lecture.QueryFilter, exec ...core.DBExecutor) ([]lecture.Lecture, error) {
	ex := r.getExec(exec)
	q := `SELECT ` + lectureColumns + ` FROM lectures WHERE 1 = 1`
	args := make([]interface{}, 0, 4)
	if filter.Author != "" {
		q += ` AND author = ?`
		args = append(args, filter.Author)
	}
	if claim := filter.VisibleTo; claim != nil {
		q += ` AND (course IN (SELECT course_code FROM enrollments WHERE student = ?) OR (course = ? AND year = ?))`
		args = append(args, claim.Username, claim.Course, claim.Year)
	}
	q += orderBy([]core.DBOrdering{{Field: "created_at"}, {Field: "id"}})

	var rows []lectureRow
	if err := ex.SelectContext(ctx, &rows, ex.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting lectures")
	}
	lectures := make([]lecture.Lecture, 0, len(rows))
	for _, row := range rows {
		lectures = append(lectures, row.lecture())
	}
	return lectures, nil
}
