package employee

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestMapAndValidate_CreateRequiresFields(t *testing.T) {
	t.Parallel()

	base := Payload{
		"firstName":  "Ada",
		"lastName":   "Lovelace",
		"department": "Engineering",
		"position":   "Analyst",
	}

	for _, field := range []string{FieldFirstName, FieldLastName, FieldDepartment, FieldPosition} {
		field := field
		t.Run(field, func(t *testing.T) {
			t.Parallel()

			payload := Payload{}
			for k, v := range base {
				if k != field {
					payload[k] = v
				}
			}

			_, err := MapAndValidate(payload, ModeCreate)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != field || verr.Message != "required" {
				t.Fatalf("unexpected validation error: %+v", verr)
			}
		})
	}
}

func TestMapAndValidate_CreateDefaults(t *testing.T) {
	t.Parallel()

	fields, err := MapAndValidate(Payload{
		"firstName":  "  Ada ",
		"lastName":   "Lovelace",
		"department": "Engineering",
		"position":   "Analyst",
		"nickname":   "ignored",
	}, ModeCreate)
	if err != nil {
		t.Fatalf("MapAndValidate returned error: %v", err)
	}

	if fields.Status == nil || *fields.Status != StatusActive {
		t.Fatalf("expected default status active, got %v", fields.Status)
	}
	if *fields.FirstName != "Ada" {
		t.Fatalf("expected trimmed first name, got %q", *fields.FirstName)
	}
	if fields.EmailSet || fields.PhoneSet || fields.SalarySet || fields.HireDateSet {
		t.Fatalf("expected absent optional fields to stay unset: %+v", fields)
	}
}

func TestMapAndValidate_UpdateAllowsPartial(t *testing.T) {
	t.Parallel()

	fields, err := MapAndValidate(Payload{"position": "Lead"}, ModeUpdate)
	if err != nil {
		t.Fatalf("MapAndValidate returned error: %v", err)
	}
	if fields.FirstName != nil || fields.Status != nil {
		t.Fatalf("expected absent fields to stay nil: %+v", fields)
	}
	if fields.Position == nil || *fields.Position != "Lead" {
		t.Fatalf("unexpected position: %v", fields.Position)
	}
}

func TestMapAndValidate_Rules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload Payload
		field   string
		message string
	}{
		{name: "invalid email", payload: Payload{"email": "not-an-email"}, field: FieldEmail, message: "invalid email"},
		{name: "email with display name", payload: Payload{"email": "Ada <ada@x.com>"}, field: FieldEmail, message: "invalid email"},
		{name: "negative salary", payload: Payload{"salary": "-0.01"}, field: FieldSalary, message: "negative salary"},
		{name: "negative json salary", payload: Payload{"salary": json.Number("-5")}, field: FieldSalary, message: "negative salary"},
		{name: "salary precision", payload: Payload{"salary": "10.123"}, field: FieldSalary, message: "must have at most 2 decimal places"},
		{name: "salary too large", payload: Payload{"salary": "100000000"}, field: FieldSalary, message: "must not exceed 99999999.99"},
		{name: "salary not a number", payload: Payload{"salary": "abc"}, field: FieldSalary, message: "must be a number"},
		{name: "salary huge exponent", payload: Payload{"salary": json.Number("1e50000000")}, field: FieldSalary, message: "must be a number"},
		{name: "salary tiny exponent", payload: Payload{"salary": "1e-5000000"}, field: FieldSalary, message: "must be a number"},
		{name: "email without domain dot", payload: Payload{"email": "ada@x"}, field: FieldEmail, message: "invalid email"},
		{name: "invalid status", payload: Payload{"status": "retired"}, field: FieldStatus, message: "invalid status"},
		{name: "null status", payload: Payload{"status": nil}, field: FieldStatus, message: "invalid status"},
		{name: "bad hire date", payload: Payload{"hireDate": "01/02/2024"}, field: FieldHireDate, message: "must be a date in YYYY-MM-DD format"},
		{name: "phone too long", payload: Payload{"phone": strings.Repeat("1", 21)}, field: FieldPhone, message: "must be at most 20 characters"},
		{name: "name too long", payload: Payload{"firstName": strings.Repeat("a", 101)}, field: FieldFirstName, message: "must be at most 100 characters"},
		{name: "name not a string", payload: Payload{"lastName": 42}, field: FieldLastName, message: "must be a string"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := MapAndValidate(tt.payload, ModeUpdate)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if verr.Field != tt.field || verr.Message != tt.message {
				t.Fatalf("expected %s: %s, got %s", tt.field, tt.message, verr.Error())
			}
		})
	}
}

func TestMapAndValidate_OptionalValues(t *testing.T) {
	t.Parallel()

	fields, err := MapAndValidate(Payload{
		"email":    "ada@x.com",
		"phone":    "",
		"salary":   json.Number("0"),
		"hireDate": "2020-02-29",
	}, ModeUpdate)
	if err != nil {
		t.Fatalf("MapAndValidate returned error: %v", err)
	}

	if !fields.EmailSet || fields.Email == nil || *fields.Email != "ada@x.com" {
		t.Fatalf("unexpected email: %+v", fields)
	}
	if !fields.PhoneSet || fields.Phone != nil {
		t.Fatalf("expected empty phone to clear the value: %+v", fields)
	}
	if !fields.SalarySet || fields.Salary == nil || !fields.Salary.Equal(decimal.Zero) {
		t.Fatalf("expected zero salary to be accepted: %+v", fields.Salary)
	}
	if !fields.HireDateSet || !fields.HireDate.Equal(time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected hire date: %v", fields.HireDate)
	}
}

func TestFilter_Matches(t *testing.T) {
	t.Parallel()

	email := "ada.eng@x.com"
	emp := &Employee{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      &email,
		Department: "Research",
		Position:   "Analyst",
		Status:     StatusOnLeave,
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{name: "empty", filter: NewFilter("", "", ""), want: true},
		{name: "email substring", filter: NewFilter("ENG", "", ""), want: true},
		{name: "no match", filter: NewFilter("zzz", "", ""), want: false},
		{name: "department all", filter: NewFilter("", "all", ""), want: true},
		{name: "department all is case sensitive", filter: NewFilter("", "All", ""), want: false},
		{name: "department mismatch", filter: NewFilter("", "Sales", ""), want: false},
		{name: "status", filter: NewFilter("", "", "on_leave"), want: true},
		{name: "status mismatch", filter: NewFilter("ada", "Research", "active"), want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.filter.Matches(emp); got != tt.want {
				t.Fatalf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
