// Package server contains the HTTP API for the panel.
package server

import (
	"context"
	"net/http"
	"time"

	"daqpanel/internal/server/handlers"
	"daqpanel/internal/server/middleware"
)

// Server is the HTTP server for the panel API.
type Server struct {
	httpServer *http.Server
}

// New creates a new panel server. Reads are open to any proxied user;
// mutating routes require membership in adminGroup and are rate limited.
// metrics may be nil when the prometheus endpoint is disabled.
func New(addr string, h *handlers.Handlers, adminGroup string, metrics http.Handler) *Server {
	limit := middleware.RateLimit(5, 10)
	admin := func(hf http.HandlerFunc) http.Handler {
		return limit(middleware.RequireAdmin(hf))
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	// Fleet reads are served from the cache and never block on upstream.
	mux.HandleFunc("GET /clients", h.ListClients)
	mux.HandleFunc("GET /clients/{id}/status", h.GetClientStatus)
	mux.HandleFunc("GET /clients/{id}/logs", h.GetClientLogs)

	// Gateway pass-through control actions.
	mux.Handle("POST /clients/{id}/restart", admin(h.RestartClient))
	mux.Handle("POST /clients/{id}/stop-all", admin(h.StopAllJobs))
	mux.Handle("POST /clients/{id}/jobs/{uid}/stop", admin(h.StopClientJob))
	mux.HandleFunc("GET /clients/{id}/schemas/jobs", h.GetJobSchemas)
	mux.HandleFunc("GET /clients/{id}/schemas/messages", h.GetMessageSchemas)

	mux.Handle("POST /runs", limit(http.HandlerFunc(h.StartRun)))
	mux.Handle("POST /runs/{id}/stop", limit(http.HandlerFunc(h.StopRun)))
	mux.HandleFunc("GET /runs", h.ListRuns)
	mux.HandleFunc("GET /runs/{id}", h.GetRun)
	mux.Handle("PUT /runs/{id}/note", limit(http.HandlerFunc(h.UpdateRunNote)))

	mux.Handle("POST /messages", limit(http.HandlerFunc(h.SendMessage)))
	mux.HandleFunc("GET /messages", h.ListMessages)

	mux.HandleFunc("GET /templates", h.ListTemplates)
	mux.HandleFunc("GET /templates/{id}", h.GetTemplate)
	mux.Handle("POST /templates", admin(h.CreateTemplate))
	mux.Handle("PUT /templates/{id}", admin(h.UpdateTemplate))
	mux.Handle("DELETE /templates/{id}", admin(h.DeleteTemplate))
	mux.Handle("POST /templates/{id}/parameters", admin(h.AddTemplateParameter))
	mux.Handle("DELETE /templates/{id}/parameters/{paramId}", admin(h.DeleteTemplateParameter))

	mux.HandleFunc("GET /run-types", h.ListRunTypes)
	mux.HandleFunc("GET /run-types/{id}", h.GetRunType)
	mux.Handle("POST /run-types", admin(h.CreateRunType))
	mux.Handle("PUT /run-types/{id}", admin(h.UpdateRunType))
	mux.Handle("DELETE /run-types/{id}", admin(h.DeleteRunType))
	mux.HandleFunc("GET /run-types/{id}/templates", h.ListRunTypeTemplates)
	mux.Handle("POST /run-types/{id}/templates/{templateId}", admin(h.LinkRunTypeTemplate))
	mux.Handle("DELETE /run-types/{id}/templates/{templateId}", admin(h.UnlinkRunTypeTemplate))
	mux.HandleFunc("GET /run-types/{id}/parameters", h.ListRunTypeParameterDefaults)
	mux.Handle("PUT /run-types/{id}/parameters/{name}", admin(h.SetRunTypeParameterDefault))

	mux.HandleFunc("GET /webhooks", h.ListWebhooks)
	mux.HandleFunc("GET /webhooks/{id}", h.GetWebhook)
	mux.Handle("POST /webhooks", admin(h.CreateWebhook))
	mux.Handle("PUT /webhooks/{id}", admin(h.UpdateWebhook))
	mux.Handle("DELETE /webhooks/{id}", admin(h.DeleteWebhook))

	// Identity extraction wraps everything so read handlers can attribute
	// actions too.
	root := middleware.Access(adminGroup)(mux)

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      root,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
