package handler

import (
	"time"

	"github.com/ogurasousui/employee-roster/internal/core/employee"
	"github.com/ogurasousui/employee-roster/internal/core/roster"
)

// employeeResponse は社員の外部表現です。salary は小数 2 桁の文字列で返します。
type employeeResponse struct {
	ID         int64     `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Email      *string   `json:"email"`
	Phone      *string   `json:"phone"`
	Department string    `json:"department"`
	Position   string    `json:"position"`
	HireDate   *string   `json:"hireDate"`
	Salary     *string   `json:"salary"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type listEmployeesResponse struct {
	Results  []employeeResponse `json:"results"`
	Count    int                `json:"count"`
	Page     int                `json:"page"`
	PageSize int                `json:"pageSize"`
	HasNext  bool               `json:"hasNext"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type importRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type importResponse struct {
	Created int              `json:"created"`
	Skipped int              `json:"skipped"`
	Errors  []importRowError `json:"errors"`
}

func toEmployeeResponse(e *employee.Employee) employeeResponse {
	resp := employeeResponse{
		ID:         e.ID,
		FirstName:  e.FirstName,
		LastName:   e.LastName,
		Email:      e.Email,
		Phone:      e.Phone,
		Department: e.Department,
		Position:   e.Position,
		Status:     string(e.Status),
		CreatedAt:  e.CreatedAt.UTC(),
		UpdatedAt:  e.UpdatedAt.UTC(),
	}
	if e.HireDate != nil {
		v := e.HireDate.Format(employee.DateLayout)
		resp.HireDate = &v
	}
	if e.Salary != nil {
		v := e.Salary.StringFixed(2)
		resp.Salary = &v
	}
	return resp
}

func toListResponse(result *employee.ListEmployeesResult) listEmployeesResponse {
	results := make([]employeeResponse, 0, len(result.Employees))
	for _, e := range result.Employees {
		results = append(results, toEmployeeResponse(e))
	}
	return listEmployeesResponse{
		Results:  results,
		Count:    result.Count,
		Page:     result.Page,
		PageSize: result.PageSize,
		HasNext:  result.HasNext,
	}
}

func toImportResponse(s *roster.ImportSummary) importResponse {
	rows := make([]importRowError, 0, len(s.Errors))
	for _, e := range s.Errors {
		rows = append(rows, importRowError{Row: e.Row, Message: e.Message})
	}
	return importResponse{Created: s.Created, Skipped: s.Skipped, Errors: rows}
}
