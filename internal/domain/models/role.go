package models

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedRole = errors.New("unsupported role")

// Role is the closed set of subjects a ranking can be requested for.
// Only the types declared in this file implement it.
type Role interface {
	fmt.Stringer
	isRole()
}

type StudentRole struct{}

type CompanyRole struct{}

type DepartmentRole struct{}

func (StudentRole) isRole()    {}
func (CompanyRole) isRole()    {}
func (DepartmentRole) isRole() {}

func (StudentRole) String() string    { return "student" }
func (CompanyRole) String() string    { return "company" }
func (DepartmentRole) String() string { return "department" }

var (
	Student    Role = StudentRole{}
	Company    Role = CompanyRole{}
	Department Role = DepartmentRole{}
)

func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "student":
		return Student, nil
	case "company":
		return Company, nil
	case "department":
		return Department, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedRole, s)
	}
}
