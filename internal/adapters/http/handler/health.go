package handler

import (
	"net/http"

	pgdb "github.com/ogurasousui/employee-roster/internal/platform/db/postgres"
	"github.com/ogurasousui/employee-roster/internal/platform/logging"
)

// HealthHandler は死活監視用のエンドポイントです。
type HealthHandler struct {
	db pgdb.Pinger
}

// NewHealthHandler は HealthHandler を生成します。
func NewHealthHandler(db pgdb.Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

type healthResponse struct {
	Status string `json:"status"`
}

// Live は常に 200 を返します。
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// Ready はデータベースに疎通できない場合 503 を返します。
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := pgdb.Ping(r.Context(), h.db); err != nil {
			logging.FromContext(r.Context()).WarnContext(r.Context(), "readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
