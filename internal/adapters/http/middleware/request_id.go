// Package middleware は HTTP ハンドラ共通の前後処理を提供します。
package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ogurasousui/employee-roster/internal/platform/logging"
)

// RequestIDHeader はリクエスト ID を受け渡すヘッダー名です。
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 128

// RequestID はリクエスト ID をコンテキストとレスポンスヘッダーに設定します。
// クライアントが送った値が不正な場合は新しく採番します。
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}
