// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package webhook

import (
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/updater/lib/schema/forge"
)

// maxBodySize caps a delivery. GitHub's documented maximum is about
// 25 MB for pushes with long commit lists.
const maxBodySize = 32 * 1024 * 1024

const (
	// DefaultDedupWindow is how long a delivery key is remembered.
	// GitHub retries within minutes.
	DefaultDedupWindow = time.Hour

	// DefaultDedupSize bounds the number of remembered deliveries.
	DefaultDedupSize = 4096
)

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	// Secret is the shared HMAC secret configured on the GitHub
	// webhook. Required unless AllowUnsigned is set.
	Secret []byte

	// AllowUnsigned accepts deliveries without verifying a signature
	// when Secret is empty. Only for webhooks configured without a
	// secret.
	AllowUnsigned bool

	// DedupWindow and DedupSize size the replay cache. Zero values
	// take the defaults.
	DedupWindow time.Duration
	DedupSize   int

	// OnEvent receives every verified, translated event. It runs on
	// the request goroutine; long work must be handed off. Required.
	OnEvent func(*forge.Event)

	// Logger is the structured logger. Required.
	Logger *slog.Logger
}

// Handler is the http.Handler for GitHub webhook deliveries.
type Handler struct {
	secret        []byte
	allowUnsigned bool
	onEvent       func(*forge.Event)
	logger        *slog.Logger

	// deliveries remembers recently processed delivery keys. The
	// mutex makes check-then-add atomic.
	mu         sync.Mutex
	deliveries *expirable.LRU[string, struct{}]
}

// NewHandler creates a Handler. Panics if OnEvent or Logger is nil, or
// if Secret is empty without AllowUnsigned.
func NewHandler(config HandlerConfig) *Handler {
	if len(config.Secret) == 0 && !config.AllowUnsigned {
		panic("webhook.NewHandler: Secret is required unless AllowUnsigned is set")
	}
	if config.OnEvent == nil {
		panic("webhook.NewHandler: OnEvent is required")
	}
	if config.Logger == nil {
		panic("webhook.NewHandler: Logger is required")
	}
	window := config.DedupWindow
	if window == 0 {
		window = DefaultDedupWindow
	}
	size := config.DedupSize
	if size == 0 {
		size = DefaultDedupSize
	}
	return &Handler{
		secret:        config.Secret,
		allowUnsigned: config.AllowUnsigned,
		onEvent:       config.OnEvent,
		logger:        config.Logger,
		deliveries:    expirable.NewLRU[string, struct{}](size, nil, window),
	}
}

// ServeHTTP handles a single delivery.
func (h *Handler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(writer, "", http.StatusMethodNotAllowed)
		return
	}

	// Read the body first; HMAC verification needs the raw bytes.
	body, err := io.ReadAll(io.LimitReader(request.Body, maxBodySize))
	if err != nil {
		h.logger.Error("webhook: failed to read body", "error", err)
		http.Error(writer, "", http.StatusInternalServerError)
		return
	}
	if len(body) == 0 {
		http.Error(writer, "", http.StatusBadRequest)
		return
	}

	// Verify before parsing anything, so unauthenticated bytes never
	// reach the JSON decoder.
	if len(h.secret) > 0 || !h.allowUnsigned {
		if err := VerifySignature(h.secret, body, request.Header); err != nil {
			h.logger.Warn("webhook: signature verification failed",
				"error", err,
				"remote_addr", request.RemoteAddr,
			)
			// 401 with no information disclosure.
			http.Error(writer, "", http.StatusUnauthorized)
			return
		}
	}

	eventType := request.Header.Get("X-GitHub-Event")
	deliveryID := request.Header.Get("X-GitHub-Delivery")
	if eventType == "" {
		h.logger.Warn("webhook: missing X-GitHub-Event header")
		http.Error(writer, "", http.StatusBadRequest)
		return
	}

	// Replay protection: GitHub redelivers on timeouts, and a replayed
	// push must not start a second update.
	if h.isDuplicate(deliveryKey(deliveryID, body)) {
		h.logger.Debug("webhook: duplicate delivery, ignoring",
			"delivery_id", deliveryID,
			"event_type", eventType,
		)
		// Return 200 so GitHub doesn't retry.
		writer.WriteHeader(http.StatusOK)
		return
	}

	// Event types we don't translate (ping, installation) are logged
	// and acknowledged.
	kind, known := forge.ParseKind(eventType)
	if !known {
		h.logger.Debug("webhook: unhandled event type, ignoring",
			"event_type", eventType,
			"delivery_id", deliveryID,
		)
		writer.WriteHeader(http.StatusOK)
		return
	}

	h.logger.Info("webhook received", "event_type", eventType, "delivery_id", deliveryID)

	event, err := Translate(kind, body)
	if err != nil {
		h.logger.Error("webhook: translation failed",
			"event_type", eventType,
			"delivery_id", deliveryID,
			"error", err,
		)
		// Return 200; retrying won't fix a translation error.
		writer.WriteHeader(http.StatusOK)
		return
	}

	h.onEvent(event)
	writer.WriteHeader(http.StatusOK)
}

// deliveryKey identifies a delivery for replay protection: the
// X-GitHub-Delivery value when present, otherwise a digest of the
// body.
func deliveryKey(deliveryID string, body []byte) string {
	if deliveryID != "" {
		return "id:" + deliveryID
	}
	digest := blake3.Sum256(body)
	return "blake3:" + hex.EncodeToString(digest[:])
}

// isDuplicate records key and reports whether it was already present.
func (h *Handler) isDuplicate(key string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.deliveries.Contains(key) {
		return true
	}
	h.deliveries.Add(key, struct{}{})
	return false
}
