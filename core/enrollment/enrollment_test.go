package enrollment_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lectern/core"
	"github.com/trezcool/lectern/core/enrollment"
	"github.com/trezcool/lectern/core/user"
	"github.com/trezcool/lectern/storage/database/sqlx"
	"github.com/trezcool/lectern/tests"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, nil, &core.Config{AppName: "Lectern"})
	svc := enrollment.NewService(sqlxrepos.NewEnrollmentRepository(db), usrSvc)

	testutil.CreateUser(t, usrRepo, "alice", "Notebook&Pens9", user.RoleStudent, "CS101", "2")
	testutil.CreateUser(t, usrRepo, "carol", "Notebook&Pens9", user.RoleStudent, "CS101", "1")
	testutil.CreateUser(t, usrRepo, "bob", "Chalkboard!77", user.RoleLecturer, "CS101", "")

	t.Run("enroll", func(t *testing.T) {
		e, err := svc.Enroll(ctx, enrollment.NewEnrollment{Student: "alice", CourseCode: "CS303"})
		require.NoError(t, err)
		assert.Equal(t, "alice", e.Student)
		assert.False(t, e.CreatedAt.IsZero())

		_, err = svc.Enroll(ctx, enrollment.NewEnrollment{Student: "alice", CourseCode: "CS202"})
		require.NoError(t, err)
		_, err = svc.Enroll(ctx, enrollment.NewEnrollment{Student: "carol", CourseCode: "CS202"})
		require.NoError(t, err)
	})

	t.Run("enrolling twice is a no-op", func(t *testing.T) {
		_, err := svc.Enroll(ctx, enrollment.NewEnrollment{Student: "alice", CourseCode: "CS202"})
		require.NoError(t, err)

		courses, err := svc.Courses(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, []string{"CS202", "CS303"}, courses)
	})

	t.Run("unknown student", func(t *testing.T) {
		_, err := svc.Enroll(ctx, enrollment.NewEnrollment{Student: "ghost", CourseCode: "CS202"})
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})

	t.Run("not a student", func(t *testing.T) {
		_, err := svc.Enroll(ctx, enrollment.NewEnrollment{Student: "bob", CourseCode: "CS202"})
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, enrollment.ErrNotAStudent, vErr.Err)

		courses, err := svc.Courses(ctx, "bob")
		require.NoError(t, err)
		assert.Empty(t, courses)
	})

	t.Run("query all", func(t *testing.T) {
		all, err := svc.Query(ctx, "")
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "alice", all[0].Student)
		assert.Equal(t, "carol", all[2].Student)
	})

	t.Run("unenroll", func(t *testing.T) {
		require.NoError(t, svc.Unenroll(ctx, " alice ", "CS303"))
		require.NoError(t, svc.Unenroll(ctx, "alice", "CS999"))

		courses, err := svc.Courses(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, []string{"CS202"}, courses)
	})
}
