package main

import (
	"context"

	"github.com/trezcool/lectern/core/enrollment"
)

func (cli *commandLine) enroll(ctx context.Context, student, course string) error {
	ne := enrollment.NewEnrollment{Student: student, CourseCode: course}
	if err := ne.Validate(cli.validate); err != nil {
		return err
	}
	e, err := cli.enrollSvc.Enroll(ctx, ne)
	if err != nil {
		return err
	}
	cli.success("%q enrolled in %s", e.Student, e.CourseCode)
	return nil
}

func (cli *commandLine) unenroll(ctx context.Context, student, course string) error {
	if err := cli.enrollSvc.Unenroll(ctx, student, course); err != nil {
		return err
	}
	cli.success("%q unenrolled from %s", student, course)
	return nil
}
