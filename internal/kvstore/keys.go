package kvstore

import "strings"

const (
	GlobalResourceClicksKey = "resource:global:clicks"
	GlobalStudentViewsKey   = "student:global:views"
)

func UserResourceClicksKey(userID string) string {
	return UserResourceClicks.Key(userID)
}

func UserCategoryClicksKey(userID string) string {
	return "user:" + userID + ":type:clicks"
}

func ResourceViewedByKey(resourceID string) string {
	return ResourceViewedBy.Key(resourceID)
}

func CompanyStudentClicksKey(companyID string) string {
	return CompanyStudentClicks.Key(companyID)
}

func StudentViewedByCompanyKey(studentID string) string {
	return StudentViewedByCompany.Key(studentID)
}

// SimilarKey is the neighbor list of an entity in the given namespace ("student", "company", "user").
func SimilarKey(namespace, id string) string {
	return namespace + ":" + id + ":similar"
}

// KeyLayout describes a "prefix:{id}:suffix" key family.
type KeyLayout struct {
	Prefix string
	Suffix string
}

var (
	UserResourceClicks     = KeyLayout{Prefix: "user:", Suffix: ":resource:clicks"}
	ResourceViewedBy       = KeyLayout{Prefix: "resource:", Suffix: ":viewed_by"}
	CompanyStudentClicks   = KeyLayout{Prefix: "company:", Suffix: ":student:clicks"}
	StudentViewedByCompany = KeyLayout{Prefix: "student:", Suffix: ":viewed_by_company"}
)

func (l KeyLayout) Key(id string) string {
	return l.Prefix + id + l.Suffix
}

func (l KeyLayout) Pattern() string {
	return l.Prefix + "*" + l.Suffix
}

// ParseID extracts the id from a key of this layout.
func (l KeyLayout) ParseID(key string) (string, bool) {
	if !strings.HasPrefix(key, l.Prefix) || !strings.HasSuffix(key, l.Suffix) {
		return "", false
	}
	id := key[len(l.Prefix) : len(key)-len(l.Suffix)]
	if id == "" {
		return "", false
	}
	return id, true
}
