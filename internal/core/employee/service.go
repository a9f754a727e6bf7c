package employee

import (
	"context"
	"errors"
	"math"
	"time"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// NoopTransactionManager はトランザクションを張らずに fn を実行する TransactionManager を返します。
func NoopTransactionManager() TransactionManager {
	return noopTransactionManager{}
}

const (
	defaultListPageSize = 20
	maxListPageSize     = 100
)

// Service は社員に関するユースケースをまとめます。
type Service struct {
	repo  Repository
	clock Clock
	tx    TransactionManager
}

// UseCase は社員ユースケースの公開インターフェースです。
type UseCase interface {
	CreateEmployee(ctx context.Context, payload Payload) (*Employee, error)
	GetEmployee(ctx context.Context, id int64) (*Employee, error)
	ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error)
	ListDepartments(ctx context.Context) ([]string, error)
	UpdateEmployee(ctx context.Context, id int64, payload Payload) (*Employee, error)
	DeleteEmployee(ctx context.Context, id int64) error
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Service{repo: repo, clock: clock, tx: tx}
}

// ListEmployeesInput は一覧取得時の入力です。Page は 1 始まりです。
type ListEmployeesInput struct {
	Filter   Filter
	Page     int
	PageSize int
}

// ListEmployeesResult は一覧取得結果を表します。
type ListEmployeesResult struct {
	Employees []*Employee
	Count     int
	Page      int
	PageSize  int
	HasNext   bool
}

// CreateEmployee は新しい社員を作成します。
func (s *Service) CreateEmployee(ctx context.Context, payload Payload) (*Employee, error) {
	fields, err := MapAndValidate(payload, ModeCreate)
	if err != nil {
		return nil, err
	}

	var created *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if fields.Email != nil {
			if err := s.ensureEmailAvailable(txCtx, *fields.Email, 0); err != nil {
				return err
			}
		}

		result, err := s.repo.Create(txCtx, NewEmployee(fields, s.clock.Now()))
		if err != nil {
			return err
		}

		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateEmployee は社員情報を更新します。payload に含まれない項目は変更しません。
func (s *Service) UpdateEmployee(ctx context.Context, id int64, payload Payload) (*Employee, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}

	fields, err := MapAndValidate(payload, ModeUpdate)
	if err != nil {
		return nil, err
	}

	var updated *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}

		if fields.Email != nil && (existing.Email == nil || *existing.Email != *fields.Email) {
			if err := s.ensureEmailAvailable(txCtx, *fields.Email, existing.ID); err != nil {
				return err
			}
		}

		existing.apply(fields)

		now := s.clock.Now()
		if now.Before(existing.CreatedAt) {
			now = existing.CreatedAt
		}
		existing.UpdatedAt = now

		result, err := s.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}

		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteEmployee は社員を削除します。
func (s *Service) DeleteEmployee(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}

	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.FindByID(txCtx, id); err != nil {
			return err
		}
		return s.repo.Delete(txCtx, id)
	})
}

// GetEmployee は社員を取得します。
func (s *Service) GetEmployee(ctx context.Context, id int64) (*Employee, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}

	var result *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListEmployees は条件に一致する社員をページ単位で取得します。
func (s *Service) ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error) {
	pageSize := normalizePageSize(in.PageSize)
	page := in.Page
	if page < 1 {
		page = 1
	}
	if maxPage := math.MaxInt / pageSize; page > maxPage {
		page = maxPage
	}

	result := &ListEmployeesResult{Page: page, PageSize: pageSize}
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		count, err := s.repo.Count(txCtx, in.Filter)
		if err != nil {
			return err
		}

		employees, hasNext, err := s.repo.List(txCtx, ListEmployeesFilter{
			Filter: in.Filter,
			Limit:  pageSize,
			Offset: (page - 1) * pageSize,
		})
		if err != nil {
			return err
		}

		result.Count = count
		result.Employees = employees
		result.HasNext = hasNext
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListDepartments は登録済みの部署名を昇順で重複なく返します。
func (s *Service) ListDepartments(ctx context.Context) ([]string, error) {
	var departments []string
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.ListDepartments(txCtx)
		if err != nil {
			return err
		}
		departments = found
		return nil
	}); err != nil {
		return nil, err
	}
	return departments, nil
}

// ensureEmailAvailable は email が selfID 以外の社員に使われていないことを確認します。
// 最終的な一意性はストアの制約で担保されます。
func (s *Service) ensureEmailAvailable(ctx context.Context, email string, selfID int64) error {
	emp, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrEmployeeNotFound) {
			return nil
		}
		return err
	}
	if emp != nil && emp.ID != selfID {
		return ErrEmailAlreadyExists
	}
	return nil
}

func normalizePageSize(pageSize int) int {
	if pageSize <= 0 {
		return defaultListPageSize
	}
	if pageSize > maxListPageSize {
		return maxListPageSize
	}
	return pageSize
}
