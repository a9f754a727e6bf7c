// Package roster は社員名簿のスプレッドシート一括取り込みと書き出しを扱います。
package roster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ogurasousui/employee-roster/internal/core/employee"
)

// SheetName は書き出すシート名です。
const SheetName = "Employees"

// Columns は取り込み・書き出しで共通の列見出しです。
var Columns = []string{
	"First Name",
	"Last Name",
	"Email",
	"Phone",
	"Department",
	"Position",
	"Hire Date",
	"Salary",
	"Status",
}

// columnFields は列位置と外部フィールド名の対応です。
var columnFields = []string{
	employee.FieldFirstName,
	employee.FieldLastName,
	employee.FieldEmail,
	employee.FieldPhone,
	employee.FieldDepartment,
	employee.FieldPosition,
	employee.FieldHireDate,
	employee.FieldSalary,
	employee.FieldStatus,
}

// 型付きで扱う列の位置。
const (
	HireDateColumn = 6
	SalaryColumn   = 7
)

const defaultMaxRows = 10000

// Sheet は書き出し用の表データです。
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
}

// Codec はスプレッドシート形式の読み書きを抽象化します。
// Decode は先頭シートの全行を見出し行を含めて返し、dateColumns の数値セルは
// YYYY-MM-DD 形式の文字列に変換します。解釈できないファイルは *employee.FileFormatError を返します。
type Codec interface {
	Decode(r io.Reader, dateColumns ...int) ([][]string, error)
	Encode(w io.Writer, sheet Sheet) error
}

// RowError は取り込み時にスキップした行の理由です。
type RowError struct {
	Row     int
	Message string
}

// ImportSummary は取り込み結果です。
type ImportSummary struct {
	Created int
	Skipped int
	Errors  []RowError
}

// UseCase は一括転送ユースケースの公開インターフェースです。
type UseCase interface {
	Import(ctx context.Context, r io.Reader) (*ImportSummary, error)
	Export(ctx context.Context, w io.Writer) error
}

// Service は取り込み・書き出しを実行します。
type Service struct {
	repo    employee.Repository
	codec   Codec
	clock   employee.Clock
	tx      employee.TransactionManager
	maxRows int
}

// Option は Service の設定を変更します。
type Option func(*Service)

// WithMaxRows は取り込み可能なデータ行数の上限を設定します。
func WithMaxRows(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRows = n
		}
	}
}

// NewService は Service を生成します。
func NewService(repo employee.Repository, codec Codec, clock employee.Clock, tx employee.TransactionManager, opts ...Option) *Service {
	if clock == nil {
		clock = systemClock{}
	}
	if tx == nil {
		tx = employee.NoopTransactionManager()
	}
	s := &Service{repo: repo, codec: codec, clock: clock, tx: tx, maxRows: defaultMaxRows}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

type parsedRow struct {
	number  int
	payload employee.Payload
}

// Import はスプレッドシートを読み込み、有効な行を 1 トランザクションで登録します。
// 検証エラーやメールアドレス重複の行はスキップして集計します。
// ストアの失敗は取り込み全体をロールバックします。
func (s *Service) Import(ctx context.Context, r io.Reader) (*ImportSummary, error) {
	rows, err := s.codec.Decode(r, HireDateColumn)
	if err != nil {
		return nil, err
	}

	parsed, err := s.parseRows(rows)
	if err != nil {
		return nil, err
	}

	var summary ImportSummary
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		summary = ImportSummary{}
		seen := make(map[string]struct{})
		now := s.clock.Now()

		for _, row := range parsed {
			if err := txCtx.Err(); err != nil {
				return err
			}

			fields, err := employee.MapAndValidate(row.payload, employee.ModeCreate)
			if err != nil {
				var verr *employee.ValidationError
				if errors.As(err, &verr) {
					summary.skip(row.number, verr.Error())
					continue
				}
				return err
			}

			if fields.Email != nil {
				if _, dup := seen[*fields.Email]; dup {
					summary.skip(row.number, "duplicate email in file")
					continue
				}
				taken, err := s.emailTaken(txCtx, *fields.Email)
				if err != nil {
					return err
				}
				if taken {
					summary.skip(row.number, employee.ErrEmailAlreadyExists.Error())
					continue
				}
			}

			if _, err := s.repo.Create(txCtx, employee.NewEmployee(fields, now)); err != nil {
				return fmt.Errorf("row %d: %w", row.number, err)
			}
			if fields.Email != nil {
				seen[*fields.Email] = struct{}{}
			}
			summary.Created++
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return &summary, nil
}

// Export は全社員を作成日時の降順で書き出します。
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	var employees []*employee.Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.ListAll(txCtx)
		if err != nil {
			return err
		}
		employees = found
		return nil
	}); err != nil {
		return err
	}

	sheet := Sheet{Name: SheetName, Header: Columns, Rows: make([][]any, 0, len(employees))}
	for _, emp := range employees {
		sheet.Rows = append(sheet.Rows, exportRow(emp))
	}
	return s.codec.Encode(w, sheet)
}

func (s *Service) parseRows(rows [][]string) ([]parsedRow, error) {
	if len(rows) == 0 {
		return nil, &employee.FileFormatError{Reason: "missing header row"}
	}
	if len(rows[0]) < len(Columns) {
		return nil, &employee.FileFormatError{Row: 1, Reason: fmt.Sprintf("header must have %d columns", len(Columns))}
	}

	parsed := make([]parsedRow, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		number := i + 2
		if isBlank(cells) {
			continue
		}
		if len(cells) > len(Columns) && !isBlank(cells[len(Columns):]) {
			return nil, &employee.FileFormatError{Row: number, Reason: fmt.Sprintf("expected at most %d columns", len(Columns))}
		}
		if len(parsed) >= s.maxRows {
			return nil, &employee.FileFormatError{Reason: fmt.Sprintf("too many rows: limit is %d", s.maxRows)}
		}

		payload := make(employee.Payload, len(columnFields))
		for col, field := range columnFields {
			if col < len(cells) {
				payload[field] = cells[col]
			} else {
				payload[field] = ""
			}
		}
		parsed = append(parsed, parsedRow{number: number, payload: payload})
	}
	return parsed, nil
}

func (s *Service) emailTaken(ctx context.Context, email string) (bool, error) {
	_, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, employee.ErrEmployeeNotFound) {
		return false, nil
	}
	return false, err
}

func (s *ImportSummary) skip(row int, message string) {
	s.Skipped++
	s.Errors = append(s.Errors, RowError{Row: row, Message: message})
}

func exportRow(emp *employee.Employee) []any {
	row := []any{
		emp.FirstName,
		emp.LastName,
		stringOrEmpty(emp.Email),
		stringOrEmpty(emp.Phone),
		emp.Department,
		emp.Position,
		"",
		"",
		string(emp.Status),
	}
	if emp.HireDate != nil {
		row[HireDateColumn] = emp.HireDate.Format(employee.DateLayout)
	}
	if emp.Salary != nil {
		row[SalaryColumn] = *emp.Salary
	}
	return row
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
