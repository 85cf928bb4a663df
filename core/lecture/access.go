package lecture

import "github.com/trezcool/lectern/core/user"

// Visible reports whether a student may see l. Either grant path is sufficient:
// an enrollment in l's course, or l belonging to the student's home course and year.
func Visible(claim user.Claim, enrolled []string, l Lecture) bool {
	return enrolledIn(enrolled, l.Course) || inCohort(claim, l)
}

func enrolledIn(enrolled []string, course string) bool {
	for _, c := range enrolled {
		if c == course {
			return true
		}
	}
	return false
}

func inCohort(claim user.Claim, l Lecture) bool {
	return l.Course == claim.Course && l.Year == claim.Year
}

// CanOpen reports whether the claim may open a single lecture.
// Admins and lecturers may open any lecture.
func CanOpen(claim user.Claim, enrolled []string, l Lecture) bool {
	switch claim.Role {
	case user.RoleAdmin, user.RoleLecturer:
		return true
	case user.RoleStudent:
		return Visible(claim, enrolled, l)
	}
	return false
}
