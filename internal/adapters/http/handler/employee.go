package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ogurasousui/employee-roster/internal/core/employee"
)

const maxJSONBodySize = 1 << 20

// EmployeeHandler は社員 CRUD の HTTP 実装です。
type EmployeeHandler struct {
	svc employee.UseCase
}

// NewEmployeeHandler は EmployeeHandler を生成します。
func NewEmployeeHandler(svc employee.UseCase) *EmployeeHandler {
	return &EmployeeHandler{svc: svc}
}

// List は検索条件とページ指定に従って社員一覧を返します。
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := queryInt(q.Get("page"), "page")
	if err != nil {
		writeError(w, r, err)
		return
	}
	pageSize, err := queryInt(q.Get("pageSize"), "pageSize")
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.svc.ListEmployees(r.Context(), employee.ListEmployeesInput{
		Filter:   employee.NewFilter(q.Get("search"), q.Get("department"), q.Get("status")),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toListResponse(result))
}

// Departments は部署名の一覧を返します。
func (h *EmployeeHandler) Departments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.svc.ListDepartments(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if departments == nil {
		departments = []string{}
	}
	writeJSON(w, http.StatusOK, departments)
}

// Create は社員を作成します。
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	payload, err := decodePayload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := h.svc.CreateEmployee(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toEmployeeResponse(created))
}

// Get は社員を 1 件返します。
func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	found, err := h.svc.GetEmployee(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeResponse(found))
}

// Update は指定されたフィールドのみ社員情報を更新します。
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	payload, err := decodePayload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := h.svc.UpdateEmployee(r.Context(), id, payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeResponse(updated))
}

// Delete は社員を削除します。
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.svc.DeleteEmployee(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("Employee %d deleted successfully", id)})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, employee.ErrInvalidID
	}
	return id, nil
}

func queryInt(raw, field string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &employee.ValidationError{Field: field, Message: "must be an integer"}
	}
	return v, nil
}

// decodePayload は JSON オブジェクトを数値精度を保ったまま Payload に変換します。
func decodePayload(w http.ResponseWriter, r *http.Request) (employee.Payload, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodySize))
	dec.UseNumber()

	var payload employee.Payload
	if err := dec.Decode(&payload); err != nil {
		var sizeErr *http.MaxBytesError
		if errors.As(err, &sizeErr) {
			return nil, err
		}
		return nil, errInvalidBody
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errInvalidBody
	}
	if payload == nil {
		payload = employee.Payload{}
	}
	return payload, nil
}
