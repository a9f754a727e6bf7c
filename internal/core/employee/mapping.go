package employee

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Payload は外部フィールド名をキーとする未検証の入力です。
type Payload map[string]any

// Mode は検証モードです。
type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

// 外部フィールド名。
const (
	FieldFirstName  = "firstName"
	FieldLastName   = "lastName"
	FieldEmail      = "email"
	FieldPhone      = "phone"
	FieldDepartment = "department"
	FieldPosition   = "position"
	FieldHireDate   = "hireDate"
	FieldSalary     = "salary"
	FieldStatus     = "status"
)

const (
	maxNameLength  = 100
	maxEmailLength = 255
	maxPhoneLength = 20

	// DateLayout は hireDate の入出力形式です。
	DateLayout = "2006-01-02"
)

var maxSalary = decimal.RequireFromString("99999999.99")

// 給与として受け付ける 10 進指数の範囲。
const (
	minSalaryExponent = -10
	maxSalaryExponent = 10
)

// Fields は検証済みの入力です。nil のポインタは「指定なし」を表し、
// 任意項目は XSet が true かつ値が nil の場合に値のクリアを表します。
type Fields struct {
	FirstName   *string
	LastName    *string
	Department  *string
	Position    *string
	Status      *Status
	Email       *string
	EmailSet    bool
	Phone       *string
	PhoneSet    bool
	HireDate    *time.Time
	HireDateSet bool
	Salary      *decimal.Decimal
	SalarySet   bool
}

// MapAndValidate は外部入力を検証し、内部表現へ変換します。
// 未知のキーは無視されます。最初に見つかった違反を *ValidationError で返します。
func MapAndValidate(payload Payload, mode Mode) (Fields, error) {
	var f Fields
	var err error

	if f.FirstName, err = requiredText(payload, FieldFirstName, mode); err != nil {
		return Fields{}, err
	}
	if f.LastName, err = requiredText(payload, FieldLastName, mode); err != nil {
		return Fields{}, err
	}
	if f.Email, f.EmailSet, err = mapEmail(payload); err != nil {
		return Fields{}, err
	}
	if f.Phone, f.PhoneSet, err = optionalText(payload, FieldPhone, maxPhoneLength); err != nil {
		return Fields{}, err
	}
	if f.Department, err = requiredText(payload, FieldDepartment, mode); err != nil {
		return Fields{}, err
	}
	if f.Position, err = requiredText(payload, FieldPosition, mode); err != nil {
		return Fields{}, err
	}
	if f.HireDate, f.HireDateSet, err = mapHireDate(payload); err != nil {
		return Fields{}, err
	}
	if f.Salary, f.SalarySet, err = mapSalary(payload); err != nil {
		return Fields{}, err
	}
	if f.Status, err = mapStatus(payload, mode); err != nil {
		return Fields{}, err
	}

	return f, nil
}

// NewEmployee は検証済みの作成入力から Employee を組み立てます。
func NewEmployee(f Fields, now time.Time) *Employee {
	emp := &Employee{
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	emp.apply(f)
	return emp
}

func (e *Employee) apply(f Fields) {
	if f.FirstName != nil {
		e.FirstName = *f.FirstName
	}
	if f.LastName != nil {
		e.LastName = *f.LastName
	}
	if f.Department != nil {
		e.Department = *f.Department
	}
	if f.Position != nil {
		e.Position = *f.Position
	}
	if f.Status != nil {
		e.Status = *f.Status
	}
	if f.EmailSet {
		e.Email = cloneString(f.Email)
	}
	if f.PhoneSet {
		e.Phone = cloneString(f.Phone)
	}
	if f.HireDateSet {
		e.HireDate = cloneTime(f.HireDate)
	}
	if f.SalarySet {
		if f.Salary == nil {
			e.Salary = nil
		} else {
			salary := *f.Salary
			e.Salary = &salary
		}
	}
}

func requiredText(payload Payload, field string, mode Mode) (*string, error) {
	raw, ok := payload[field]
	if !ok {
		if mode == ModeCreate {
			return nil, newValidationError(field, "required")
		}
		return nil, nil
	}

	s, err := asString(field, raw)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, newValidationError(field, "required")
	}
	if utf8.RuneCountInString(s) > maxNameLength {
		return nil, newValidationError(field, fmt.Sprintf("must be at most %d characters", maxNameLength))
	}
	return &s, nil
}

func optionalText(payload Payload, field string, maxLen int) (*string, bool, error) {
	raw, ok := payload[field]
	if !ok {
		return nil, false, nil
	}
	if raw == nil {
		return nil, true, nil
	}

	s, err := asString(field, raw)
	if err != nil {
		return nil, false, err
	}
	if s == "" {
		return nil, true, nil
	}
	if utf8.RuneCountInString(s) > maxLen {
		return nil, false, newValidationError(field, fmt.Sprintf("must be at most %d characters", maxLen))
	}
	return &s, true, nil
}

func mapEmail(payload Payload) (*string, bool, error) {
	email, set, err := optionalText(payload, FieldEmail, maxEmailLength)
	if err != nil || email == nil {
		return email, set, err
	}

	addr, err := mail.ParseAddress(*email)
	if err != nil || addr.Address != *email {
		return nil, false, newValidationError(FieldEmail, "invalid email")
	}
	at := strings.LastIndexByte(*email, '@')
	if domain := (*email)[at+1:]; !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
		return nil, false, newValidationError(FieldEmail, "invalid email")
	}
	return email, true, nil
}

func mapHireDate(payload Payload) (*time.Time, bool, error) {
	raw, ok := payload[FieldHireDate]
	if !ok {
		return nil, false, nil
	}

	switch v := raw.(type) {
	case nil:
		return nil, true, nil
	case time.Time:
		d := normalizeDate(v)
		return &d, true, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, true, nil
		}
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return nil, false, newValidationError(FieldHireDate, "must be a date in YYYY-MM-DD format")
		}
		return &t, true, nil
	default:
		return nil, false, newValidationError(FieldHireDate, "must be a date in YYYY-MM-DD format")
	}
}

func mapSalary(payload Payload) (*decimal.Decimal, bool, error) {
	raw, ok := payload[FieldSalary]
	if !ok {
		return nil, false, nil
	}

	var (
		salary decimal.Decimal
		err    error
	)
	switch v := raw.(type) {
	case nil:
		return nil, true, nil
	case decimal.Decimal:
		salary = v
	case json.Number:
		salary, err = decimal.NewFromString(v.String())
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, true, nil
		}
		salary, err = decimal.NewFromString(s)
	case float64:
		salary = decimal.NewFromFloat(v)
	case int:
		salary = decimal.NewFromInt(int64(v))
	case int64:
		salary = decimal.NewFromInt(v)
	default:
		return nil, false, newValidationError(FieldSalary, "must be a number")
	}
	if err != nil {
		return nil, false, newValidationError(FieldSalary, "must be a number")
	}
	// 指数が範囲外の値は比較や丸めの前に拒否する
	if exp := salary.Exponent(); exp < minSalaryExponent || exp > maxSalaryExponent {
		return nil, false, newValidationError(FieldSalary, "must be a number")
	}

	if salary.IsNegative() {
		return nil, false, newValidationError(FieldSalary, "negative salary")
	}
	if !salary.Equal(salary.Truncate(2)) {
		return nil, false, newValidationError(FieldSalary, "must have at most 2 decimal places")
	}
	if salary.GreaterThan(maxSalary) {
		return nil, false, newValidationError(FieldSalary, "must not exceed "+maxSalary.StringFixed(2))
	}

	salary = salary.Round(2)
	return &salary, true, nil
}

func mapStatus(payload Payload, mode Mode) (*Status, error) {
	raw, ok := payload[FieldStatus]
	if !ok || raw == nil {
		if mode == ModeCreate {
			status := StatusActive
			return &status, nil
		}
		if ok {
			return nil, newValidationError(FieldStatus, "invalid status")
		}
		return nil, nil
	}

	s, isString := raw.(string)
	if !isString {
		return nil, newValidationError(FieldStatus, "invalid status")
	}
	s = strings.TrimSpace(s)
	if s == "" && mode == ModeCreate {
		status := StatusActive
		return &status, nil
	}

	status := Status(s)
	if !status.IsValid() {
		return nil, newValidationError(FieldStatus, "invalid status")
	}
	return &status, nil
}

func asString(field string, raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case nil:
		return "", nil
	default:
		return "", newValidationError(field, "must be a string")
	}
}

func normalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
