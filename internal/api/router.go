package api

import "net/http"

func Router(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", h.Health)

	mux.HandleFunc("GET /v1/aliases", h.ListAliases)
	mux.HandleFunc("POST /v1/aliases", h.SaveAlias)
	mux.HandleFunc("DELETE /v1/aliases/{id}", h.DeleteAlias)

	mux.HandleFunc("GET /v1/logs", h.ListLogs)

	mux.HandleFunc("POST /v1/send", h.Send)
	mux.HandleFunc("POST /v1/deeplink", h.DeepLink)
	mux.HandleFunc("POST /v1/voice", h.Voice)

	mux.HandleFunc("GET /v1/retention/status", h.RetentionStatus)
	mux.HandleFunc("POST /v1/retention/start", h.RetentionStart)
	mux.HandleFunc("POST /v1/retention/stop", h.RetentionStop)

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("alias-sms"))
	})

	return mux
}
