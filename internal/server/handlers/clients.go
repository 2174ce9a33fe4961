package handlers

import (
	"net/http"

	"daqpanel/pkg/api"
)

// ListClients handles GET /clients.
// Served entirely from the cache's known-clients set; never hits upstream.
func (h *Handlers) ListClients(w http.ResponseWriter, r *http.Request) {
	known := h.cache.Clients()

	clients := make([]api.ClientResponse, 0, len(known))
	for _, c := range known {
		resp := api.ClientResponse{
			ID:       c.ID,
			Hostname: c.Hostname,
			Tags:     c.Tags,
		}
		if snap, ok := h.cache.Status(c.ID); ok {
			resp.Connected = snap.Connected
		}
		clients = append(clients, resp)
	}

	h.respondJson(w, http.StatusOK, clients)
}

// GetClientStatus handles GET /clients/{id}/status.
// Returns the cached snapshot synchronously, or null for unknown clients.
func (h *Handlers) GetClientStatus(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("id")

	snap, ok := h.cache.Status(clientID)
	if !ok {
		h.respondJson(w, http.StatusOK, nil)
		return
	}
	h.respondJson(w, http.StatusOK, snap)
}

// GetClientLogs handles GET /clients/{id}/logs.
func (h *Handlers) GetClientLogs(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("id")
	h.respondJson(w, http.StatusOK, h.cache.Logs(clientID))
}

// RestartClient handles POST /clients/{id}/restart.
func (h *Handlers) RestartClient(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("id")

	if err := h.daq.Restart(r.Context(), clientID); err != nil {
		h.logger.Error("restart failed", "client_id", clientID, "error", err)
		h.httpError(w, "Failed to restart client", http.StatusBadGateway)
		return
	}
	h.respondJson(w, http.StatusOK, map[string]string{"status": "restarting"})
}

// StopAllJobs handles POST /clients/{id}/stop-all.
func (h *Handlers) StopAllJobs(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("id")

	if err := h.daq.StopAll(r.Context(), clientID); err != nil {
		h.logger.Error("stop-all failed", "client_id", clientID, "error", err)
		h.httpError(w, "Failed to stop jobs", http.StatusBadGateway)
		return
	}
	h.respondJson(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// StopClientJob handles POST /clients/{id}/jobs/{uid}/stop.
func (h *Handlers) StopClientJob(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("id")
	jobUID := r.PathValue("uid")
	remove := r.URL.Query().Get("remove") == "true"

	if err := h.daq.StopJob(r.Context(), clientID, jobUID, remove); err != nil {
		h.logger.Error("stop job failed", "client_id", clientID, "job_uid", jobUID, "error", err)
		h.httpError(w, "Failed to stop job", http.StatusBadGateway)
		return
	}
	h.respondJson(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// GetJobSchemas handles GET /clients/{id}/schemas/jobs.
// Proxied to the upstream; schemas are not cached.
func (h *Handlers) GetJobSchemas(w http.ResponseWriter, r *http.Request) {
	schemas, err := h.daq.JobSchemas(r.Context(), r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Failed to fetch job schemas", http.StatusBadGateway)
		return
	}
	h.respondJson(w, http.StatusOK, schemas)
}

// GetMessageSchemas handles GET /clients/{id}/schemas/messages.
func (h *Handlers) GetMessageSchemas(w http.ResponseWriter, r *http.Request) {
	schemas, err := h.daq.MessageSchemas(r.Context(), r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Failed to fetch message schemas", http.StatusBadGateway)
		return
	}
	h.respondJson(w, http.StatusOK, schemas)
}
