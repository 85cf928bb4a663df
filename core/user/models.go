package user

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/lectern/core"
)

// Role is one of the three portal roles.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleLecturer Role = "lecturer"
	RoleStudent  Role = "student"
)

var AllRoles = []Role{RoleAdmin, RoleLecturer, RoleStudent}

// ParseRole matches s case-insensitively against the known roles.
func ParseRole(s string) (Role, bool) {
	r := Role(core.CleanString(s, true /* lower */))
	switch r {
	case RoleAdmin, RoleLecturer, RoleStudent:
		return r, true
	}
	return "", false
}

func (r Role) IsValid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

func (r Role) String() string { return string(r) }

// Dashboard is the only dashboard path a Role may reach.
func (r Role) Dashboard() string {
	switch r {
	case RoleAdmin:
		return "/admin"
	case RoleLecturer:
		return "/lecturer"
	case RoleStudent:
		return "/student"
	}
	return "/"
}

type User struct {
	Username        string    `json:"username"`
	Role            Role      `json:"role"`
	Course          string    `json:"course"`
	Year            *string   `json:"year"`
	AdmissionNumber *string   `json:"admission_number"`
	Email           string    `json:"email,omitempty"`
	PasswordHash    []byte    `json:"-"`
	CreatedAt       time.Time `json:"created_at"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := hashPassword(pwd)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return checkPassword(u.PasswordHash, pwd)
}

func (u *User) IsAdmin() bool    { return u.Role == RoleAdmin }
func (u *User) IsLecturer() bool { return u.Role == RoleLecturer }
func (u *User) IsStudent() bool  { return u.Role == RoleStudent }

// Claim derives the session claim from the User.
func (u User) Claim() Claim {
	var year string
	if u.Year != nil {
		year = *u.Year
	}
	return Claim{
		Username: u.Username,
		Role:     u.Role,
		Course:   u.Course,
		Year:     year,
	}
}

// Claim is the server-held snapshot of the caller established at login.
type Claim struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Course   string `json:"course"`
	Year     string `json:"year"`
}

func (c Claim) IsZero() bool { return c.Username == "" }

func (c Claim) Dashboard() string { return c.Role.Dashboard() }

// CanReach reports whether the claim may open the dashboard of the given role.
func (c Claim) CanReach(dashboard Role) bool {
	return !c.IsZero() && c.Role == dashboard
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Username        string `json:"username" form:"username" validate:"required,min=4,alphanum_"`
	Password        string `json:"password" form:"password" validate:"required"`
	Role            string `json:"role" form:"role" validate:"required,role"`
	Course          string `json:"course" form:"course" validate:"required"`
	Year            string `json:"year" form:"year" validate:"omitempty,year"`
	AdmissionNumber string `json:"admission_number" form:"admission_number"`
	Email           string `json:"email" form:"email" validate:"omitempty,email"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Username = core.CleanString(nu.Username)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	nu.Course = core.CleanString(nu.Course)
	nu.Year = core.CleanString(nu.Year)
	nu.AdmissionNumber = core.CleanString(nu.AdmissionNumber)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	return validate.Struct(nu)
}

// Credentials is what a caller presents at login.
type Credentials struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
	Role     string `json:"role" form:"role" validate:"required"`
}

func (c *Credentials) Validate(validate *validator.Validate) error {
	c.Username = core.CleanString(c.Username)
	return validate.Struct(c)
}

type QueryFilter struct {
	Role   Role
	Course string
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
