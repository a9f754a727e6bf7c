package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status は社員の在籍状態を表します。
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusOnLeave  Status = "on_leave"
)

// Employee は社員エンティティです。
type Employee struct {
	ID         int64
	FirstName  string
	LastName   string
	Email      *string
	Phone      *string
	Department string
	Position   string
	HireDate   *time.Time
	Salary     *decimal.Decimal
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FullName は表示用の氏名を返します。
func (e *Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

// Clone は Employee のディープコピーを返します。
func (e *Employee) Clone() *Employee {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Email = cloneString(e.Email)
	clone.Phone = cloneString(e.Phone)
	clone.HireDate = cloneTime(e.HireDate)
	if e.Salary != nil {
		salary := *e.Salary
		clone.Salary = &salary
	}
	return &clone
}

// IsValid はステータスが定義済みの値かどうかを返します。
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusOnLeave:
		return true
	default:
		return false
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}
