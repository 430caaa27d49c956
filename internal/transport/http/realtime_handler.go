package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/IgorGrieder/encurtador-live/internal/infrastructure/logger"
	"github.com/IgorGrieder/encurtador-live/internal/processing/links"
	"go.uber.org/zap"
)

type RealtimeHandler struct {
	svc      *links.Service
	shutdown context.Context
}

// NewRealtimeHandler builds the stream handler. Open streams end when
// shutdown is done; a nil shutdown keeps them open until the client leaves.
func NewRealtimeHandler(svc *links.Service, shutdown context.Context) *RealtimeHandler {
	return &RealtimeHandler{svc: svc, shutdown: shutdown}
}

// Stream pushes one server-sent event per change of the link until the client
// disconnects.
func (h *RealtimeHandler) Stream(w http.ResponseWriter, r *http.Request) error {
	code := r.PathValue("id")

	feed, err := h.svc.OpenFeed(r.Context(), code)
	if err != nil {
		if errors.Is(err, links.ErrNotFound) {
			return renderView(w, http.StatusNotFound, viewNotFound, nil)
		}
		return err
	}
	defer feed.Close()

	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		logger.Warn("event stream flush unsupported", zap.Error(err), zap.String("short_code", code))
		return nil
	}

	ctx := r.Context()
	if h.shutdown != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(h.shutdown, cancel)
		defer stop()
	}

	liveFeedsActive.Inc()
	defer liveFeedsActive.Dec()

	err = feed.Run(ctx, func(update links.FeedUpdate) error {
		data, err := json.Marshal(update)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		liveFeedEventsTotal.Inc()
		return rc.Flush()
	})
	if err != nil {
		// Headers are already sent; the stream just ends.
		logger.Warn("live feed stopped", zap.Error(err), zap.String("short_code", code))
	}
	return nil
}
