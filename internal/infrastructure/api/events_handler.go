package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"shopify-catalog-mirror/internal/domain"
	"shopify-catalog-mirror/internal/infrastructure/pubsub"
	"shopify-catalog-mirror/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const eventWriteTimeout = 5 * time.Second

// EventSubscriber hands out live ingestion event subscriptions
type EventSubscriber interface {
	Subscribe(ctx context.Context, filter *pubsub.EventFilter) *pubsub.EventChannel
}

// EventsHandler handles GET /api/tenants/{tenantId}/events. It upgrades to
// a websocket and streams the tenant's ingestion events as JSON until the
// client goes away. ?types= narrows the stream to a comma separated list.
func EventsHandler(tenants ports.TenantRepository, events EventSubscriber, allowedOrigins []string, logger zerolog.Logger) http.HandlerFunc {
	originPatterns := originHosts(allowedOrigins)
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := uuid.Parse(chi.URLParam(r, "tenantId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid tenant id")
			return
		}
		if _, err := tenants.GetByID(r.Context(), tenantID); err != nil {
			if errors.Is(err, domain.ErrTenantNotFound) {
				writeError(w, http.StatusNotFound, "tenant not found")
				return
			}
			logger.Error().Err(err).Str("tenantId", tenantID.String()).Msg("Failed to load tenant")
			writeError(w, http.StatusInternalServerError, "failed to load tenant")
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			logger.Warn().Err(err).Msg("Websocket upgrade failed")
			return
		}
		defer conn.Close(websocket.StatusInternalError, "stream ended")

		// Nothing is read from the client; CloseRead handles control frames
		// and cancels ctx once the peer disconnects.
		ctx := conn.CloseRead(r.Context())
		sub := events.Subscribe(ctx, &pubsub.EventFilter{
			TenantID: tenantID,
			Types:    parseEventTypes(r.URL.Query().Get("types")),
		})

		logger.Info().
			Str("tenantId", tenantID.String()).
			Str("channelId", sub.ID).
			Msg("Event stream opened")

		for {
			select {
			case <-ctx.Done():
				conn.Close(websocket.StatusNormalClosure, "")
				return
			case event, ok := <-sub.Events:
				if !ok {
					conn.Close(websocket.StatusGoingAway, "subscription closed")
					return
				}
				writeCtx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
				err := wsjson.Write(writeCtx, conn, event)
				cancel()
				if err != nil {
					logger.Debug().Err(err).Str("channelId", sub.ID).Msg("Event stream write failed")
					return
				}
			}
		}
	}
}

func parseEventTypes(raw string) []domain.IngestionEventType {
	var types []domain.IngestionEventType
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			types = append(types, domain.IngestionEventType(part))
		}
	}
	return types
}

// originHosts turns CORS origins such as "https://app.example.com" into the
// host patterns the websocket handshake matches the Origin header against.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if _, rest, ok := strings.Cut(origin, "://"); ok {
			origin = rest
		}
		if origin = strings.TrimSuffix(origin, "/"); origin != "" {
			hosts = append(hosts, origin)
		}
	}
	return hosts
}
