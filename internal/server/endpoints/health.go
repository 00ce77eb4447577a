package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/mkandasamy/deedflow/internal/api"
	"github.com/mkandasamy/deedflow/internal/mongo"
	"github.com/mkandasamy/deedflow/internal/svcctx"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

var _ api.Endpoint = (*HealthEndpoint)(nil)

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Server health
//	@Description	Returns OK if the HTTP server is responding
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

var _ api.Endpoint = (*ReadyEndpoint)(nil)

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Server readiness
//	@Description	Returns OK only when the document store is reachable
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/ready [get]
func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Store: "ok"}

	gw := svcctx.StoreFrom(r.Context())
	if gw == nil {
		resp.Status = "degraded"
		resp.Store = "not_initialized"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	if err := gw.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Store = "unhealthy"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (includes document store)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			if resp.Store != "" {
				fmt.Printf("Store:  %s\n", resp.Store)
			}
			return nil
		},
	}
}

// ServerStatusResponse is the detailed status response.
type ServerStatusResponse struct {
	Server  string      `json:"server"`
	Mongo   MongoStatus `json:"mongo"`
	Streams StreamStats `json:"streams"`
}

// StreamStats counts live progress streams.
type StreamStats struct {
	ActiveDocuments int `json:"active_documents"`
}

// MongoStatus shows MongoDB container and health status.
type MongoStatus struct {
	Container string `json:"container"`
	Health    string `json:"health"`
	URI       string `json:"uri,omitempty"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct {
	// MongoManager is set by the server since it's not in Services.
	// Nil when running against an external URI or the in-memory store.
	MongoManager *mongo.DockerManager
}

var _ api.Endpoint = (*StatusEndpoint)(nil)

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Detailed server status
//	@Description	Returns server and MongoDB container status
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	ServerStatusResponse
//	@Router			/status [get]
func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := ServerStatusResponse{
		Server: "running",
	}

	if e.MongoManager != nil {
		status, err := e.MongoManager.Status(r.Context())
		if err != nil {
			resp.Mongo.Container = "error"
		} else {
			resp.Mongo.Container = string(status)
		}
		resp.Mongo.URI = e.MongoManager.URI()
	} else {
		resp.Mongo.Container = "unmanaged"
	}

	gw := svcctx.StoreFrom(r.Context())
	if gw != nil {
		if err := gw.Ping(r.Context()); err != nil {
			resp.Mongo.Health = "unhealthy"
		} else {
			resp.Mongo.Health = "healthy"
		}
	} else {
		resp.Mongo.Health = "not_initialized"
	}

	if eventBus := svcctx.BusFrom(r.Context()); eventBus != nil {
		resp.Streams.ActiveDocuments = eventBus.TopicCount()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "server-status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ServerStatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			fmt.Printf("Server: %s\n", resp.Server)
			fmt.Printf("Active streams: %d\n", resp.Streams.ActiveDocuments)
			fmt.Printf("Mongo:\n")
			fmt.Printf("  Container: %s\n", resp.Mongo.Container)
			fmt.Printf("  Health:    %s\n", resp.Mongo.Health)
			if resp.Mongo.URI != "" {
				fmt.Printf("  URI:       %s\n", resp.Mongo.URI)
			}
			return nil
		},
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
