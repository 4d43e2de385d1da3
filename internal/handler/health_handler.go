package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/ledger/internal/repository"
)

// healthCheckTimeout はストア疎通確認のタイムアウト。
const healthCheckTimeout = 2 * time.Second

type healthResponse struct {
	Status string `json:"status"`
}

// NewHealthHandler はストアへのpingで稼働状態を返すハンドラーを生成する。
// GET /health
func NewHealthHandler(checker repository.HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := checker.PingContext(ctx); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}
