package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mesmaili/alias-sms/internal/cache"
	"github.com/mesmaili/alias-sms/internal/model"
	"github.com/mesmaili/alias-sms/internal/resolve"
	"github.com/mesmaili/alias-sms/internal/retention"
	"github.com/mesmaili/alias-sms/internal/service"
	"github.com/mesmaili/alias-sms/internal/store"
)

type Handler struct {
	aliases  store.AliasStore
	logs     store.LogStore
	cache    cache.AliasCache
	pipeline *service.Pipeline
	pruner   *retention.Pruner
}

func NewHandler(aliases store.AliasStore, logs store.LogStore, c cache.AliasCache, p *service.Pipeline, pruner *retention.Pruner) *Handler {
	return &Handler{
		aliases:  aliases,
		logs:     logs,
		cache:    c,
		pipeline: p,
		pruner:   pruner,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type aliasRequest struct {
	ID                string  `json:"id"`
	Alias             string  `json:"alias"`
	PhoneNumber       string  `json:"phoneNumber"`
	PredefinedMessage string  `json:"predefinedMessage"`
	DefaultPrefix     *string `json:"defaultPrefix"`
}

type aliasResponse struct {
	ID                string    `json:"id"`
	Alias             string    `json:"alias"`
	NormalizedAlias   string    `json:"normalizedAlias"`
	PhoneNumber       string    `json:"phoneNumber"`
	MaskedPhone       string    `json:"maskedPhone"`
	PredefinedMessage string    `json:"predefinedMessage"`
	DefaultPrefix     *string   `json:"defaultPrefix,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func toAliasResponse(e model.AliasEntry) aliasResponse {
	return aliasResponse{
		ID:                e.ID,
		Alias:             e.Alias,
		NormalizedAlias:   e.NormalizedAlias,
		PhoneNumber:       e.PhoneNumber,
		MaskedPhone:       resolve.MaskPhone(e.PhoneNumber),
		PredefinedMessage: e.PredefinedMessage,
		DefaultPrefix:     e.DefaultPrefix,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}

func (h *Handler) ListAliases(w http.ResponseWriter, r *http.Request) {
	entries, err := h.aliases.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	items := make([]aliasResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, toAliasResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) SaveAlias(w http.ResponseWriter, r *http.Request) {
	var req aliasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	// On edit, the record may be moving to a new alias; drop the old key
	// from the cache so the old short code stops resolving.
	if req.ID != "" {
		if old, err := h.aliases.FindByID(ctx, req.ID); err == nil {
			h.invalidate(ctx, old.NormalizedAlias)
		}
	}

	saved, err := h.aliases.Upsert(ctx, model.AliasEntry{
		ID:                req.ID,
		Alias:             req.Alias,
		PhoneNumber:       req.PhoneNumber,
		PredefinedMessage: req.PredefinedMessage,
		DefaultPrefix:     req.DefaultPrefix,
	})
	if err != nil {
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			http.Error(w, ve.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.invalidate(ctx, saved.NormalizedAlias)
	writeJSON(w, http.StatusOK, toAliasResponse(saved))
}

func (h *Handler) DeleteAlias(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := r.Context()

	if old, err := h.aliases.FindByID(ctx, id); err == nil {
		h.invalidate(ctx, old.NormalizedAlias)
	}

	if err := h.aliases.Delete(ctx, id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

type logResponse struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Alias          string    `json:"alias"`
	MaskedPhone    string    `json:"maskedPhone"`
	MessagePreview string    `json:"messagePreview"`
	Status         string    `json:"status"`
	FailureReason  *string   `json:"failureReason,omitempty"`
}

func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	offset := parseInt(r.URL.Query().Get("offset"), 0)

	entries, err := h.logs.List(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	items := make([]logResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, logResponse{
			ID:             e.ID,
			Timestamp:      e.Timestamp,
			Alias:          e.Alias,
			MaskedPhone:    e.MaskedPhone,
			MessagePreview: e.MessagePreview,
			Status:         string(e.Status),
			FailureReason:  e.FailureReason,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type sendRequest struct {
	Alias string  `json:"alias"`
	Text  *string `json:"text"`
}

// Send is the short-code / direct-button invocation source.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Alias == "" {
		http.Error(w, "alias is required", http.StatusBadRequest)
		return
	}

	h.invoke(w, r, req.Alias, req.Text)
}

type deepLinkRequest struct {
	URL string `json:"url"`
}

// DeepLink is the myapp://send?alias=...&text=... invocation source. The
// whole URI is posted, as delivered to the app by the platform.
func (h *Handler) DeepLink(w http.ResponseWriter, r *http.Request) {
	var req deepLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	dl, err := resolve.ParseDeepLink(req.URL)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.invoke(w, r, dl.AliasRaw, dl.Text)
}

type voiceRequest struct {
	Command string `json:"command"`
}

// Voice accepts a transcribed "Send message to <alias>: <text>" command.
func (h *Handler) Voice(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	cmd := resolve.ParseVoiceCommand(req.Command)
	if cmd == nil {
		http.Error(w, `invalid command format, use: "Send message to <alias>: <text>"`, http.StatusUnprocessableEntity)
		return
	}

	h.invoke(w, r, cmd.AliasRaw, &cmd.Body)
}

func (h *Handler) invoke(w http.ResponseWriter, r *http.Request, rawAlias string, override *string) {
	outcome, err := h.pipeline.Invoke(r.Context(), rawAlias, override)
	if err != nil {
		var se *model.SendError
		if errors.As(err, &se) {
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"status": "failed",
				"reason": se.Reason,
			})
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	switch outcome {
	case service.OutcomeAliasNotFound:
		status = http.StatusNotFound
	case service.OutcomeAuthFailed:
		status = http.StatusForbidden
	case service.OutcomeAborted:
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]any{"status": string(outcome)})
}

func (h *Handler) RetentionStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"running": h.pruner.IsRunning()})
}

func (h *Handler) RetentionStart(w http.ResponseWriter, r *http.Request) {
	h.pruner.Start()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.pruner.IsRunning()})
}

func (h *Handler) RetentionStop(w http.ResponseWriter, r *http.Request) {
	h.pruner.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.pruner.IsRunning()})
}

func (h *Handler) invalidate(ctx context.Context, key string) {
	if err := h.cache.Invalidate(ctx, key); err != nil {
		slog.Warn("alias cache invalidate failed", "key", key, "err", err)
	}
}

func parseInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
