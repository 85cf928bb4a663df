package lecture

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/lectern/core/user"
)

func TestVisible(t *testing.T) {
	student := user.Claim{Username: "alice", Role: user.RoleStudent, Course: "CS101", Year: "2"}

	tests := []struct {
		name     string
		enrolled []string
		l        Lecture
		want     bool
	}{
		{name: "enrolled, home cohort", enrolled: []string{"CS101"}, l: Lecture{Course: "CS101", Year: "2"}, want: true},
		{name: "enrolled, other cohort", enrolled: []string{"CS202"}, l: Lecture{Course: "CS202", Year: "3"}, want: true},
		{name: "not enrolled, home cohort", l: Lecture{Course: "CS101", Year: "2"}, want: true},
		{name: "not enrolled, other cohort", enrolled: []string{"CS202"}, l: Lecture{Course: "CS303", Year: "2"}},
		{name: "home course, other year", l: Lecture{Course: "CS101", Year: "3"}},
		{name: "other course, home year", l: Lecture{Course: "CS303", Year: "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Visible(student, tt.enrolled, tt.l))
		})
	}
}

func TestCanOpen(t *testing.T) {
	foreign := Lecture{Course: "CS303", Year: "4"}
	assert.True(t, CanOpen(user.Claim{Username: "admin", Role: user.RoleAdmin}, nil, foreign))
	assert.True(t, CanOpen(user.Claim{Username: "bob", Role: user.RoleLecturer}, nil, foreign))
	assert.False(t, CanOpen(user.Claim{Username: "alice", Role: user.RoleStudent, Course: "CS101", Year: "2"}, nil, foreign))
	assert.True(t, CanOpen(user.Claim{Username: "alice", Role: user.RoleStudent}, []string{"CS303"}, foreign))
	assert.False(t, CanOpen(user.Claim{}, nil, foreign))
}
