package endpoints

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/mkandasamy/deedflow/internal/api"
	"github.com/mkandasamy/deedflow/internal/model"
	"github.com/mkandasamy/deedflow/internal/svcctx"
)

// StreamEndpoint handles GET /api/v1/stream/{document_id}, the live progress
// stream for one document.
type StreamEndpoint struct{}

var _ api.Endpoint = (*StreamEndpoint)(nil)

func (e *StreamEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/v1/stream/{document_id}", e.handler
}

func (e *StreamEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Stream processing progress
//	@Description	Server-sent event stream of progress for one document. Events are live-only; progress emitted before subscribing is not replayed.
//	@Tags			documents
//	@Produce		text/event-stream
//	@Param			document_id	path	string	true	"Document ID"
//	@Success		200	{string}	string	"event stream"
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/v1/stream/{document_id} [get]
func (e *StreamEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("document_id")

	gw := svcctx.StoreFrom(r.Context())
	eventBus := svcctx.BusFrom(r.Context())
	if gw == nil || eventBus == nil {
		writeError(w, http.StatusServiceUnavailable, "server not fully initialized")
		return
	}

	if _, err := gw.GetDocument(r.Context(), documentID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("document %s not found", documentID))
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := eventBus.Subscribe(documentID)
	for frame := range eventBus.Stream(r.Context(), sub) {
		if _, err := fmt.Fprint(w, frame); err != nil {
			return
		}
		flusher.Flush()
	}
}

func (e *StreamEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "stream <document-id>",
		Short: "Follow live processing progress for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			return client.Stream(cmd.Context(), "/api/v1/stream/"+args[0], func(line string) {
				if line != "" {
					fmt.Println(line)
				}
			})
		},
	}
}
