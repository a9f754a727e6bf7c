package roster

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ogurasousui/employee-roster/internal/core/employee"
)

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

type memoryRepo struct {
	employees []*employee.Employee
	sequence  int64
	createErr error
}

func (r *memoryRepo) Create(_ context.Context, e *employee.Employee) (*employee.Employee, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	clone := e.Clone()
	r.sequence++
	clone.ID = r.sequence
	r.employees = append(r.employees, clone)
	return clone.Clone(), nil
}

func (r *memoryRepo) Update(context.Context, *employee.Employee) (*employee.Employee, error) {
	return nil, errors.New("not implemented")
}

func (r *memoryRepo) Delete(context.Context, int64) error {
	return errors.New("not implemented")
}

func (r *memoryRepo) FindByID(_ context.Context, id int64) (*employee.Employee, error) {
	for _, e := range r.employees {
		if e.ID == id {
			return e.Clone(), nil
		}
	}
	return nil, employee.ErrEmployeeNotFound
}

func (r *memoryRepo) FindByEmail(_ context.Context, email string) (*employee.Employee, error) {
	for _, e := range r.employees {
		if e.Email != nil && *e.Email == email {
			return e.Clone(), nil
		}
	}
	return nil, employee.ErrEmployeeNotFound
}

func (r *memoryRepo) List(context.Context, employee.ListEmployeesFilter) ([]*employee.Employee, bool, error) {
	return nil, false, errors.New("not implemented")
}

func (r *memoryRepo) Count(context.Context, employee.Filter) (int, error) {
	return 0, errors.New("not implemented")
}

func (r *memoryRepo) ListAll(context.Context) ([]*employee.Employee, error) {
	out := make([]*employee.Employee, 0, len(r.employees))
	for _, e := range r.employees {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *memoryRepo) ListDepartments(context.Context) ([]string, error) {
	return nil, errors.New("not implemented")
}

// snapshotTx は失敗時にリポジトリの内容を巻き戻します。
type snapshotTx struct {
	repo      *memoryRepo
	rollbacks int
}

func (t *snapshotTx) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (t *snapshotTx) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	saved := append([]*employee.Employee(nil), t.repo.employees...)
	if err := fn(ctx); err != nil {
		t.repo.employees = saved
		t.rollbacks++
		return err
	}
	return nil
}

// tableCodec は行データをそのまま受け渡すテスト用 Codec です。
type tableCodec struct {
	rows      [][]string
	decodeErr error
	encoded   Sheet
}

func (c *tableCodec) Decode(io.Reader, ...int) ([][]string, error) {
	if c.decodeErr != nil {
		return nil, c.decodeErr
	}
	return c.rows, nil
}

func (c *tableCodec) Encode(w io.Writer, sheet Sheet) error {
	c.encoded = sheet
	_, err := w.Write([]byte("xlsx"))
	return err
}

func header() []string {
	return append([]string(nil), Columns...)
}

func newTestService(repo *memoryRepo, codec *tableCodec, opts ...Option) (*Service, *snapshotTx) {
	tx := &snapshotTx{repo: repo}
	clk := &stubClock{now: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)}
	return NewService(repo, codec, clk, tx, opts...), tx
}

func TestService_Import_SkipAndTally(t *testing.T) {
	t.Parallel()

	repo := &memoryRepo{}
	existing := "taken@x.com"
	repo.employees = append(repo.employees, &employee.Employee{ID: 100, FirstName: "Old", LastName: "Timer", Email: &existing, Department: "Ops", Position: "Lead", Status: employee.StatusActive})

	codec := &tableCodec{rows: [][]string{
		header(),
		{"Ada", "Lovelace", "ada@x.com", "555-0100", "Engineering", "Analyst", "2024-01-15", "1200.50", "active"},
		{"", "NoFirst", "nofirst@x.com", "", "Engineering", "Analyst", "", "", ""},
		{"Bob", "Stone", "ada@x.com", "", "Sales", "Rep", "", "", ""},
		{},
		{"Cy", "Young", "taken@x.com", "", "Sales", "Rep", "", "", ""},
		{"Dee", "Long", "", "", "Sales", "Rep", "", "-1", ""},
		{"Eve", "Adams", "", "", "Sales", "Rep", "", "", "on_leave"},
	}}
	svc, tx := newTestService(repo, codec)

	summary, err := svc.Import(context.Background(), bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}

	if summary.Created != 2 || summary.Skipped != 4 {
		t.Fatalf("expected created=2 skipped=4, got %+v", summary)
	}
	wantRows := []int{3, 4, 6, 7}
	for i, row := range wantRows {
		if summary.Errors[i].Row != row {
			t.Fatalf("error %d: expected row %d, got %+v", i, row, summary.Errors[i])
		}
	}
	if summary.Errors[1].Message != "duplicate email in file" {
		t.Fatalf("unexpected duplicate message: %q", summary.Errors[1].Message)
	}
	if tx.rollbacks != 0 {
		t.Fatalf("expected commit, got %d rollbacks", tx.rollbacks)
	}

	ada, err := repo.FindByEmail(context.Background(), "ada@x.com")
	if err != nil {
		t.Fatalf("expected imported employee: %v", err)
	}
	if ada.Salary == nil || ada.Salary.StringFixed(2) != "1200.50" {
		t.Fatalf("unexpected salary: %v", ada.Salary)
	}
	if ada.HireDate == nil || ada.HireDate.Format(employee.DateLayout) != "2024-01-15" {
		t.Fatalf("unexpected hire date: %v", ada.HireDate)
	}
	if ada.Phone == nil || *ada.Phone != "555-0100" {
		t.Fatalf("unexpected phone: %v", ada.Phone)
	}

	eve := repo.employees[len(repo.employees)-1]
	if eve.FirstName != "Eve" || eve.Status != employee.StatusOnLeave || eve.Email != nil {
		t.Fatalf("unexpected last employee: %+v", eve)
	}
}

func TestService_Import_DefaultsStatus(t *testing.T) {
	t.Parallel()

	repo := &memoryRepo{}
	codec := &tableCodec{rows: [][]string{
		header(),
		{"Ada", "Lovelace", "", "", "Engineering", "Analyst"},
	}}
	svc, _ := newTestService(repo, codec)

	summary, err := svc.Import(context.Background(), bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if summary.Created != 1 || repo.employees[0].Status != employee.StatusActive {
		t.Fatalf("expected one active employee, got %+v", repo.employees)
	}
}

func TestService_Import_StoreFailureRollsBack(t *testing.T) {
	t.Parallel()

	repo := &memoryRepo{}
	codec := &tableCodec{rows: [][]string{
		header(),
		{"Ada", "Lovelace", "ada@x.com", "", "Engineering", "Analyst", "", "", ""},
		{"Bob", "Stone", "bob@x.com", "", "Sales", "Rep", "", "", ""},
	}}
	svc, tx := newTestService(repo, codec)

	calls := 0
	wrapped := &failingRepo{memoryRepo: repo, failOn: 2, calls: &calls}
	svc.repo = wrapped

	_, err := svc.Import(context.Background(), bytes.NewReader(nil))
	if !errors.Is(err, employee.ErrEmailAlreadyExists) {
		t.Fatalf("expected store conflict to abort import, got %v", err)
	}
	if tx.rollbacks != 1 {
		t.Fatalf("expected rollback, got %d", tx.rollbacks)
	}
	if len(repo.employees) != 0 {
		t.Fatalf("expected nothing committed, got %d employees", len(repo.employees))
	}
}

type failingRepo struct {
	*memoryRepo
	failOn int
	calls  *int
}

func (r *failingRepo) Create(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	*r.calls++
	if *r.calls == r.failOn {
		return nil, employee.ErrEmailAlreadyExists
	}
	return r.memoryRepo.Create(ctx, e)
}

func TestService_Import_FileFormatErrors(t *testing.T) {
	t.Parallel()

	tooWide := append(header(), "Extra")
	tests := []struct {
		name    string
		rows    [][]string
		decode  error
		opts    []Option
		wantRow int
	}{
		{name: "decode failure", decode: &employee.FileFormatError{Reason: "not a valid xlsx workbook"}},
		{name: "empty workbook", rows: [][]string{}},
		{name: "short header", rows: [][]string{{"First Name", "Last Name"}}, wantRow: 1},
		{
			name:    "row too wide",
			rows:    [][]string{header(), {"Ada", "Lovelace", "", "", "Eng", "Analyst", "", "", "", "surplus"}},
			wantRow: 2,
		},
		{
			name: "too many rows",
			rows: [][]string{tooWide, {"A", "B", "", "", "C", "D"}, {"E", "F", "", "", "G", "H"}},
			opts: []Option{WithMaxRows(1)},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := &memoryRepo{}
			svc, tx := newTestService(repo, &tableCodec{rows: tt.rows, decodeErr: tt.decode}, tt.opts...)

			_, err := svc.Import(context.Background(), bytes.NewReader(nil))
			if !errors.Is(err, employee.ErrFileFormat) {
				t.Fatalf("expected ErrFileFormat, got %v", err)
			}
			var ferr *employee.FileFormatError
			if !errors.As(err, &ferr) || ferr.Row != tt.wantRow {
				t.Fatalf("expected row %d, got %v", tt.wantRow, err)
			}
			if tx.rollbacks != 0 || len(repo.employees) != 0 {
				t.Fatalf("expected no transaction work on parse failure")
			}
		})
	}
}

func TestService_Export(t *testing.T) {
	t.Parallel()

	repo := &memoryRepo{}
	email := "ada@x.com"
	salary := decimal.RequireFromString("1200.50")
	hired := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.employees = []*employee.Employee{
		{ID: 1, FirstName: "Ada", LastName: "Lovelace", Email: &email, Department: "Engineering", Position: "Analyst", HireDate: &hired, Salary: &salary, Status: employee.StatusActive, CreatedAt: base},
		{ID: 2, FirstName: "Bob", LastName: "Stone", Department: "Sales", Position: "Rep", Status: employee.StatusInactive, CreatedAt: base.Add(time.Hour)},
	}
	codec := &tableCodec{}
	svc, _ := newTestService(repo, codec)

	var buf bytes.Buffer
	if err := svc.Export(context.Background(), &buf); err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	if buf.String() != "xlsx" {
		t.Fatalf("expected codec output to be written, got %q", buf.String())
	}

	sheet := codec.encoded
	if sheet.Name != SheetName || len(sheet.Header) != 9 || sheet.Header[0] != "First Name" {
		t.Fatalf("unexpected sheet: %+v", sheet)
	}
	if len(sheet.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(sheet.Rows))
	}
	if sheet.Rows[0][0] != "Bob" || sheet.Rows[0][SalaryColumn] != "" || sheet.Rows[0][8] != "inactive" {
		t.Fatalf("expected newest employee first, got %v", sheet.Rows[0])
	}
	ada := sheet.Rows[1]
	if ada[2] != "ada@x.com" || ada[HireDateColumn] != "2024-01-15" {
		t.Fatalf("unexpected row: %v", ada)
	}
	if d, ok := ada[SalaryColumn].(decimal.Decimal); !ok || !d.Equal(salary) {
		t.Fatalf("expected decimal salary cell, got %#v", ada[SalaryColumn])
	}
}
