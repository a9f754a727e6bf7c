// Package spreadsheet は xlsx 形式の読み書きを提供します。
package spreadsheet

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ogurasousui/employee-roster/internal/core/employee"
	"github.com/ogurasousui/employee-roster/internal/core/roster"
)

// ContentType は xlsx の MIME タイプです。
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	defaultUnzipSizeLimit = 128 << 20
	maxUnzipXMLSizeLimit  = 16 << 20
	defaultMaxRows        = 10000
)

// XLSXCodec は excelize を用いた roster.Codec 実装です。
// 展開後のサイズとデータ行数に上限を設け、超えた時点で読み込みを打ち切ります。
type XLSXCodec struct {
	unzipSizeLimit int64
	maxRows        int
}

var _ roster.Codec = XLSXCodec{}

// CodecOption は XLSXCodec の設定を変更します。
type CodecOption func(*XLSXCodec)

// WithUnzipSizeLimit はワークブック展開後の合計サイズの上限を設定します。
func WithUnzipSizeLimit(n int64) CodecOption {
	return func(c *XLSXCodec) {
		if n > 0 {
			c.unzipSizeLimit = n
		}
	}
}

// WithMaxRows は読み込むデータ行 (空行と見出し行を除く) の上限を設定します。
func WithMaxRows(n int) CodecOption {
	return func(c *XLSXCodec) {
		if n > 0 {
			c.maxRows = n
		}
	}
}

// NewXLSXCodec は XLSXCodec を生成します。
func NewXLSXCodec(opts ...CodecOption) XLSXCodec {
	c := XLSXCodec{unzipSizeLimit: defaultUnzipSizeLimit, maxRows: defaultMaxRows}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Decode は先頭シートの行を見出し行を含めて返します。末尾の空行は含めません。
func (c XLSXCodec) Decode(r io.Reader, dateColumns ...int) ([][]string, error) {
	unzipLimit := c.unzipSizeLimit
	if unzipLimit <= 0 {
		unzipLimit = defaultUnzipSizeLimit
	}
	maxRows := c.maxRows
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}

	f, err := excelize.OpenReader(r, excelize.Options{
		UnzipSizeLimit:    unzipLimit,
		UnzipXMLSizeLimit: min(unzipLimit, maxUnzipXMLSizeLimit),
	})
	if err != nil {
		return nil, &employee.FileFormatError{Reason: "not a valid xlsx workbook"}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &employee.FileFormatError{Reason: "workbook has no sheets"}
	}

	iter, err := f.Rows(sheets[0])
	if err != nil {
		return nil, &employee.FileFormatError{Reason: fmt.Sprintf("read sheet %q: %v", sheets[0], err)}
	}
	defer iter.Close()

	var (
		rows       [][]string
		blanks     int
		dataRows   int
		headerSeen bool
	)
	for iter.Next() {
		cells, err := iter.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, &employee.FileFormatError{Row: len(rows) + blanks + 1, Reason: fmt.Sprintf("read row: %v", err)}
		}
		// 空行は後続に値のある行が現れるまで保留する
		if isBlankRow(cells) {
			blanks++
			continue
		}
		for ; blanks > 0; blanks-- {
			rows = append(rows, nil)
		}

		if !headerSeen {
			headerSeen = true
		} else {
			dataRows++
			if dataRows > maxRows {
				return nil, &employee.FileFormatError{Reason: fmt.Sprintf("too many rows: limit is %d", maxRows)}
			}
			for _, col := range dateColumns {
				if col >= 0 && col < len(cells) {
					cells[col] = convertSerialDate(cells[col])
				}
			}
		}
		rows = append(rows, cells)
	}
	if err := iter.Error(); err != nil {
		return nil, &employee.FileFormatError{Reason: fmt.Sprintf("read sheet %q: %v", sheets[0], err)}
	}
	return rows, nil
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Encode は sheet を xlsx として書き出します。
func (XLSXCodec) Encode(w io.Writer, sheet roster.Sheet) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", cerr)
		}
	}()

	name := sheet.Name
	if name == "" {
		name = "Sheet1"
	}
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := writeRow(f, name, 1, toCells(sheet.Header)); err != nil {
		return err
	}
	if len(sheet.Header) > 0 {
		if err := styleHeader(f, name, len(sheet.Header)); err != nil {
			return err
		}
	}
	for i, row := range sheet.Rows {
		if err := writeRow(f, name, i+2, row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, cells []any) error {
	for col, value := range cells {
		cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}

		switch v := value.(type) {
		case nil:
			continue
		case string:
			if v == "" {
				continue
			}
			err = f.SetCellStr(sheet, cell, v)
		case decimal.Decimal:
			err = f.SetCellFloat(sheet, cell, v.InexactFloat64(), 2, 64)
		default:
			err = f.SetCellValue(sheet, cell, v)
		}
		if err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	return nil
}

func styleHeader(f *excelize.File, sheet string, columns int) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, style); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	last, err := excelize.ColumnNumberToName(columns)
	if err != nil {
		return fmt.Errorf("column name: %w", err)
	}
	if err := f.SetColWidth(sheet, "A", last, 18); err != nil {
		return fmt.Errorf("column width: %w", err)
	}
	return nil
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// convertSerialDate は Excel のシリアル値を YYYY-MM-DD に変換します。
// 数値でない値はそのまま返します。
func convertSerialDate(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw
	}
	serial, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || serial <= 0 {
		return raw
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return raw
	}
	return t.Format(employee.DateLayout)
}
