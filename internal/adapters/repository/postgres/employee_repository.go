package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/ogurasousui/employee-roster/internal/core/employee"
	pgdb "github.com/ogurasousui/employee-roster/internal/platform/db/postgres"
)

const (
	employeeUniqueViolationCode = "23505"
	employeeCheckViolationCode  = "23514"

	employeeEmailUniqueConstraint = "employees_email_key"
	employeeSalaryCheckConstraint = "employees_salary_check"
	employeeStatusCheckConstraint = "employees_status_check"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var employeeColumns = []string{
	"id",
	"first_name",
	"last_name",
	"email",
	"phone",
	"department",
	"position",
	"hire_date",
	"salary::text",
	"status",
	"created_at",
	"updated_at",
}

// 検索対象の列。
var searchColumns = []string{"first_name", "last_name", "email", "phone", "department", "position"}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EmployeeRepository は PostgreSQL を利用した社員永続化の実装です。
type EmployeeRepository struct {
	pool pgdb.Queryer
}

var _ employee.Repository = (*EmployeeRepository)(nil)

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(pool pgdb.Queryer) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

// Create は社員を新規作成します。
func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	query, args, err := psql.Insert("employees").
		Columns("first_name", "last_name", "email", "phone", "department", "position", "hire_date", "salary", "status", "created_at", "updated_at").
		Values(
			e.FirstName,
			e.LastName,
			nullableString(e.Email),
			nullableString(e.Phone),
			e.Department,
			e.Position,
			nullableDate(e.HireDate),
			sq.Expr("?::numeric", nullableDecimal(e.Salary)),
			string(e.Status),
			e.CreatedAt,
			e.UpdatedAt,
		).
		Suffix("RETURNING " + strings.Join(employeeColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, err
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	created, err := scanEmployee(exec.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return created, nil
}

// Update は社員情報を更新します。
func (r *EmployeeRepository) Update(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	query, args, err := psql.Update("employees").
		SetMap(map[string]any{
			"first_name": e.FirstName,
			"last_name":  e.LastName,
			"email":      nullableString(e.Email),
			"phone":      nullableString(e.Phone),
			"department": e.Department,
			"position":   e.Position,
			"hire_date":  nullableDate(e.HireDate),
			"salary":     sq.Expr("?::numeric", nullableDecimal(e.Salary)),
			"status":     string(e.Status),
			"updated_at": e.UpdatedAt,
		}).
		Where(sq.Eq{"id": e.ID}).
		Suffix("RETURNING " + strings.Join(employeeColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, err
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	updated, err := scanEmployee(exec.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return updated, nil
}

// Delete は社員を削除します。
func (r *EmployeeRepository) Delete(ctx context.Context, id int64) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return translateEmployeePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

// FindByID は ID で社員を取得します。
func (r *EmployeeRepository) FindByID(ctx context.Context, id int64) (*employee.Employee, error) {
	return r.findOne(ctx, sq.Eq{"id": id})
}

// FindByEmail はメールアドレスで社員を取得します。
func (r *EmployeeRepository) FindByEmail(ctx context.Context, email string) (*employee.Employee, error) {
	return r.findOne(ctx, sq.Eq{"email": email})
}

func (r *EmployeeRepository) findOne(ctx context.Context, pred sq.Eq) (*employee.Employee, error) {
	query, args, err := psql.Select(employeeColumns...).
		From("employees").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	found, err := scanEmployee(exec.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return found, nil
}

// List は条件に一致する社員を作成日時の降順で取得します。
func (r *EmployeeRepository) List(ctx context.Context, filter employee.ListEmployeesFilter) ([]*employee.Employee, bool, error) {
	if filter.Limit <= 0 {
		return nil, false, errors.New("postgres: list limit must be positive")
	}
	if filter.Offset < 0 {
		return nil, false, errors.New("postgres: list offset must not be negative")
	}

	limitWithBuffer := filter.Limit + 1

	builder := applyFilter(psql.Select(employeeColumns...).From("employees"), filter.Filter).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limitWithBuffer)).
		Offset(uint64(filter.Offset))

	employees, err := r.query(ctx, builder, filter.Limit)
	if err != nil {
		return nil, false, err
	}

	hasNext := false
	if len(employees) == limitWithBuffer {
		employees = employees[:filter.Limit]
		hasNext = true
	}
	return employees, hasNext, nil
}

// Count は条件に一致する社員数を返します。
func (r *EmployeeRepository) Count(ctx context.Context, filter employee.Filter) (int, error) {
	query, args, err := applyFilter(psql.Select("COUNT(*)").From("employees"), filter).ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	if err := exec.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, translateEmployeePgError(err)
	}
	return count, nil
}

// ListAll は全社員を作成日時の降順で取得します。
func (r *EmployeeRepository) ListAll(ctx context.Context) ([]*employee.Employee, error) {
	builder := psql.Select(employeeColumns...).
		From("employees").
		OrderBy("created_at DESC", "id DESC")
	return r.query(ctx, builder, 0)
}

// ListDepartments は部署名を重複なく昇順で返します。
func (r *EmployeeRepository) ListDepartments(ctx context.Context) ([]string, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `SELECT DISTINCT department FROM employees ORDER BY department`)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}

	departments, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return departments, nil
}

func (r *EmployeeRepository) query(ctx context.Context, builder sq.SelectBuilder, sizeHint int) ([]*employee.Employee, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	defer rows.Close()

	employees := make([]*employee.Employee, 0, sizeHint)
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, translateEmployeePgError(err)
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, translateEmployeePgError(err)
	}
	return employees, nil
}

func applyFilter(builder sq.SelectBuilder, filter employee.Filter) sq.SelectBuilder {
	if filter.Search != "" {
		pattern := "%" + likeEscaper.Replace(filter.Search) + "%"
		or := make(sq.Or, 0, len(searchColumns))
		for _, col := range searchColumns {
			or = append(or, sq.ILike{col: pattern})
		}
		builder = builder.Where(or)
	}
	if filter.Department != "" {
		builder = builder.Where(sq.Eq{"department": filter.Department})
	}
	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": string(filter.Status)})
	}
	return builder
}

func scanEmployee(row pgx.Row) (*employee.Employee, error) {
	var (
		id         int64
		firstName  string
		lastName   string
		email      sql.NullString
		phone      sql.NullString
		department string
		position   string
		hireDate   sql.NullTime
		salary     sql.NullString
		status     string
		createdAt  time.Time
		updatedAt  time.Time
	)

	if err := row.Scan(
		&id,
		&firstName,
		&lastName,
		&email,
		&phone,
		&department,
		&position,
		&hireDate,
		&salary,
		&status,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, err
	}

	emp := &employee.Employee{
		ID:         id,
		FirstName:  firstName,
		LastName:   lastName,
		Department: department,
		Position:   position,
		Status:     employee.Status(status),
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}
	if email.Valid {
		v := email.String
		emp.Email = &v
	}
	if phone.Valid {
		v := phone.String
		emp.Phone = &v
	}
	if hireDate.Valid {
		t := hireDate.Time.UTC()
		date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		emp.HireDate = &date
	}
	if salary.Valid {
		d, err := decimal.NewFromString(salary.String)
		if err != nil {
			return nil, err
		}
		emp.Salary = &d
	}
	return emp, nil
}

func translateEmployeePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return employee.ErrEmployeeNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case employeeUniqueViolationCode:
			if pgErr.ConstraintName == employeeEmailUniqueConstraint {
				return employee.ErrEmailAlreadyExists
			}
		case employeeCheckViolationCode:
			switch pgErr.ConstraintName {
			case employeeSalaryCheckConstraint:
				return &employee.ValidationError{Field: employee.FieldSalary, Message: "negative salary"}
			case employeeStatusCheckConstraint:
				return &employee.ValidationError{Field: employee.FieldStatus, Message: "invalid status"}
			}
		}
	}

	return err
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableDate(value *time.Time) any {
	if value == nil {
		return nil
	}
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, time.UTC)
}

func nullableDecimal(value *decimal.Decimal) any {
	if value == nil {
		return nil
	}
	return value.StringFixed(2)
}
