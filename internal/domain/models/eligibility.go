package models

// Condition is one eligibility rule of a resource. Nil / empty / zero fields are unspecified.
type Condition struct {
	DepartmentID  string
	MinAverageGPA *float64
	MinCurrentGPA *float64
	NeedStatus    *bool
}

// StudentFacts is what eligibility is evaluated against. GPA is nil when no record is on file.
type StudentFacts struct {
	DepartmentID string
	NeedStatus   bool
	GPA          *GPASummary
}

func (c Condition) HasDepartment() bool {
	return c.DepartmentID != ""
}

func (c Condition) DepartmentMatches(s StudentFacts) bool {
	return !c.HasDepartment() || c.DepartmentID == s.DepartmentID
}

// Matches reports whether every specified field is satisfied.
// A GPA threshold with no GPA record on file fails.
func (c Condition) Matches(s StudentFacts) bool {
	if !c.DepartmentMatches(s) {
		return false
	}
	if c.NeedStatus != nil && *c.NeedStatus != s.NeedStatus {
		return false
	}
	if threshold, ok := positive(c.MinAverageGPA); ok {
		if s.GPA == nil || s.GPA.Average < threshold {
			return false
		}
	}
	if threshold, ok := positive(c.MinCurrentGPA); ok {
		if s.GPA == nil || s.GPA.Current < threshold {
			return false
		}
	}
	return true
}

// Eligible ORs the conditions; no conditions means open to all.
func Eligible(conditions []Condition, s StudentFacts) bool {
	if len(conditions) == 0 {
		return true
	}
	for _, c := range conditions {
		if c.Matches(s) {
			return true
		}
	}
	return false
}

func positive(v *float64) (float64, bool) {
	if v == nil || *v <= 0 {
		return 0, false
	}
	return *v, true
}
