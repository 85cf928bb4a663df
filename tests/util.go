package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/lectern/core/enrollment"
	"github.com/trezcool/lectern/core/lecture"
	"github.com/trezcool/lectern/core/user"
	"github.com/trezcool/lectern/storage/database"
)

// PrepareDB opens a fresh, migrated SQLite database that lives as long as the test.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	uname, pwd string,
	role user.Role,
	course, year string,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Username:  uname,
		Role:      role,
		Course:    course,
		CreatedAt: tstamp,
	}
	if year != "" {
		usr.Year = &year
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateLecture(
	t *testing.T,
	repo lecture.Repository,
	title, course, year, author string,
	createdAt ...time.Time,
) lecture.Lecture {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	l, err := repo.CreateLecture(context.Background(), lecture.Lecture{
		Title:     title,
		Course:    course,
		Year:      year,
		Content:   "Content of " + title,
		Author:    author,
		CreatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateLecture() failed: %v", err)
	}
	return l
}

func Enroll(t *testing.T, repo enrollment.Repository, student string, courses ...string) {
	t.Helper()

	for _, c := range courses {
		err := repo.CreateEnrollment(context.Background(), enrollment.Enrollment{
			Student:    student,
			CourseCode: c,
			CreatedAt:  time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("Enroll() failed: %v", err)
		}
	}
}
