package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"shopify-catalog-mirror/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TenantSyncer runs one tenant sync on demand
type TenantSyncer interface {
	SyncTenantByID(ctx context.Context, id uuid.UUID) (*domain.SyncResult, error)
}

// SyncSummary is the manual sync response body
type SyncSummary struct {
	TenantID        uuid.UUID        `json:"tenantId"`
	StartedAt       time.Time        `json:"startedAt"`
	FinishedAt      time.Time        `json:"finishedAt"`
	CustomersSynced int64            `json:"customersSynced"`
	OrdersSynced    int64            `json:"ordersSynced"`
	ProductsSynced  int64            `json:"productsSynced"`
	Skipped         int64            `json:"skipped"`
	State           domain.SyncState `json:"state"`
	Error           string           `json:"error,omitempty"`
}

func summarize(result *domain.SyncResult) SyncSummary {
	return SyncSummary{
		TenantID:        result.TenantID,
		StartedAt:       result.StartedAt,
		FinishedAt:      result.FinishedAt,
		CustomersSynced: result.Counts.Customers,
		OrdersSynced:    result.Counts.Orders,
		ProductsSynced:  result.Counts.Products,
		Skipped:         result.Skipped,
		State:           result.State,
	}
}

// SyncHandler handles POST /api/tenants/{tenantId}/sync
func SyncHandler(syncer TenantSyncer, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := uuid.Parse(chi.URLParam(r, "tenantId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid tenant id")
			return
		}

		result, err := syncer.SyncTenantByID(r.Context(), tenantID)
		if errors.Is(err, domain.ErrTenantNotFound) {
			writeError(w, http.StatusNotFound, "tenant not found")
			return
		}
		if err != nil {
			logger.Error().Err(err).Str("tenantId", tenantID.String()).Msg("Manual sync failed")
			if result == nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			status := http.StatusInternalServerError
			var upstream interface{ FailureClass() string }
			if errors.As(err, &upstream) {
				status = http.StatusBadGateway
			}
			summary := summarize(result)
			summary.Error = err.Error()
			writeJSON(w, status, summary)
			return
		}

		writeJSON(w, http.StatusOK, summarize(result))
	}
}
