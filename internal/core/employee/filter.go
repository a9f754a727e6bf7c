package employee

import "strings"

// AllDepartments は部署フィルタを無効にする値です。
const AllDepartments = "all"

// Filter は一覧検索の条件です。空文字のフィールドは条件なしを表します。
type Filter struct {
	Search     string
	Department string
	Status     Status
}

// NewFilter はクエリパラメータから Filter を組み立てます。
// 部署に "all" が指定された場合は部署条件を付けません。
// 未定義のステータスはエラーにせず、そのまま条件として扱います。
func NewFilter(search, department, status string) Filter {
	department = strings.TrimSpace(department)
	if department == AllDepartments {
		department = ""
	}
	return Filter{
		Search:     strings.TrimSpace(search),
		Department: department,
		Status:     Status(strings.TrimSpace(status)),
	}
}

// Matches は emp が条件を満たすかどうかを返します。
func (f Filter) Matches(emp *Employee) bool {
	if emp == nil {
		return false
	}
	if f.Department != "" && emp.Department != f.Department {
		return false
	}
	if f.Status != "" && emp.Status != f.Status {
		return false
	}
	if f.Search == "" {
		return true
	}

	needle := strings.ToLower(f.Search)
	for _, v := range []string{
		emp.FirstName,
		emp.LastName,
		derefString(emp.Email),
		derefString(emp.Phone),
		emp.Department,
		emp.Position,
	} {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
