package employee

import "context"

// Repository は社員永続化の抽象です。
// email の一意性はストア側の制約で保証され、違反時は ErrEmailAlreadyExists を返します。
type Repository interface {
	Create(ctx context.Context, employee *Employee) (*Employee, error)
	Update(ctx context.Context, employee *Employee) (*Employee, error)
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*Employee, error)
	FindByEmail(ctx context.Context, email string) (*Employee, error)
	// List は作成日時の降順 (同値は ID の降順) で返却し、次ページの有無を併せて返します。
	List(ctx context.Context, filter ListEmployeesFilter) ([]*Employee, bool, error)
	Count(ctx context.Context, filter Filter) (int, error)
	ListAll(ctx context.Context) ([]*Employee, error)
	ListDepartments(ctx context.Context) ([]string, error)
}

// ListEmployeesFilter は一覧取得用フィルタです。
type ListEmployeesFilter struct {
	Filter
	Limit  int
	Offset int
}
