package handler

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/ogurasousui/employee-roster/internal/adapters/spreadsheet"
	"github.com/ogurasousui/employee-roster/internal/core/roster"
)

const (
	uploadField    = "file"
	exportFileName = "employees.xlsx"

	defaultMaxUploadSize = 10 << 20
	multipartMemory      = 8 << 20
)

// RosterHandler はスプレッドシートの取り込みと書き出しを扱います。
type RosterHandler struct {
	svc           roster.UseCase
	maxUploadSize int64
}

// NewRosterHandler は RosterHandler を生成します。maxUploadSize が 0 以下の場合は 10MiB です。
func NewRosterHandler(svc roster.UseCase, maxUploadSize int64) *RosterHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxUploadSize
	}
	return &RosterHandler{svc: svc, maxUploadSize: maxUploadSize}
}

// Import は multipart の file フィールドで受け取った xlsx を取り込みます。
func (h *RosterHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var sizeErr *http.MaxBytesError
		if errors.As(err, &sizeErr) {
			writeError(w, r, err)
			return
		}
		writeError(w, r, errMissingFile)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, _, err := r.FormFile(uploadField)
	if err != nil {
		writeError(w, r, errMissingFile)
		return
	}
	defer file.Close()

	summary, err := h.svc.Import(r.Context(), file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toImportResponse(summary))
}

// Export は全社員を xlsx の添付ファイルとして返します。
func (h *RosterHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.svc.Export(r.Context(), &buf); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", spreadsheet.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFileName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
