package employee

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation は入力値の形式や制約違反を表す分類です。
	ErrValidation = errors.New("validation failed")
	// ErrFileFormat は取り込みファイル自体が解釈できない場合の分類です。
	ErrFileFormat = errors.New("malformed import file")
	// ErrEmailAlreadyExists はメールアドレスが他の社員と重複する場合に返却されます。
	ErrEmailAlreadyExists = errors.New("employee with this email already exists")
	// ErrEmployeeNotFound は社員が存在しない場合に返却されます。
	ErrEmployeeNotFound = errors.New("employee not found")
	// ErrInvalidID は ID が不正な場合に返却されます。
	ErrInvalidID = errors.New("invalid employee id")
)

// ValidationError はフィールド単位の検証エラーです。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// FileFormatError は取り込みファイルの構造的な不備を表します。
// Row は 1 始まりのシート行番号で、ファイル全体の問題では 0 です。
type FileFormatError struct {
	Row    int
	Reason string
}

func (e *FileFormatError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("invalid import file: row %d: %s", e.Row, e.Reason)
	}
	return "invalid import file: " + e.Reason
}

func (e *FileFormatError) Unwrap() error { return ErrFileFormat }
