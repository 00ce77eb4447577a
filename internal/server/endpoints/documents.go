package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkandasamy/deedflow/internal/api"
	"github.com/mkandasamy/deedflow/internal/model"
	"github.com/mkandasamy/deedflow/internal/svcctx"
)

// GetDocumentEndpoint handles GET /api/v1/documents/{document_id}.
type GetDocumentEndpoint struct{}

var _ api.Endpoint = (*GetDocumentEndpoint)(nil)

func (e *GetDocumentEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/v1/documents/{document_id}", e.handler
}

func (e *GetDocumentEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get a processed document
//	@Description	Returns the full document record including page texts and summary
//	@Tags			documents
//	@Produce		json
//	@Param			document_id	path	string	true	"Document ID"
//	@Success		200	{object}	model.Document
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/v1/documents/{document_id} [get]
func (e *GetDocumentEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("document_id")

	gw := svcctx.StoreFrom(r.Context())
	if gw == nil {
		writeError(w, http.StatusServiceUnavailable, "server not fully initialized")
		return
	}

	doc, err := gw.GetDocument(r.Context(), documentID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("document %s not found", documentID))
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (e *GetDocumentEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <document-id>",
		Short: "Get a document with its pages and summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var doc model.Document
			if err := client.Get(cmd.Context(), "/api/v1/documents/"+args[0], &doc); err != nil {
				return err
			}
			return api.Output(doc)
		},
	}
}

// DeleteResponse confirms a document deletion.
type DeleteResponse struct {
	DocumentID string `json:"document_id"`
	Deleted    bool   `json:"deleted"`
}

// DeleteDocumentEndpoint handles DELETE /api/v1/documents/{document_id}.
type DeleteDocumentEndpoint struct{}

var _ api.Endpoint = (*DeleteDocumentEndpoint)(nil)

func (e *DeleteDocumentEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/v1/documents/{document_id}", e.handler
}

func (e *DeleteDocumentEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Delete a document
//	@Description	Removes the document record and its stored file. Refused while a run is in flight.
//	@Tags			documents
//	@Produce		json
//	@Param			document_id	path	string	true	"Document ID"
//	@Success		200	{object}	DeleteResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Router			/api/v1/documents/{document_id} [delete]
func (e *DeleteDocumentEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("document_id")

	gw := svcctx.StoreFrom(r.Context())
	orchestrator := svcctx.OrchestratorFrom(r.Context())
	logger := svcctx.LoggerFrom(r.Context())
	if gw == nil {
		writeError(w, http.StatusServiceUnavailable, "server not fully initialized")
		return
	}

	if orchestrator != nil && orchestrator.Active(documentID) {
		writeError(w, http.StatusConflict, fmt.Sprintf("document %s is being processed", documentID))
		return
	}

	doc, err := gw.GetDocument(r.Context(), documentID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("document %s not found", documentID))
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := gw.DeleteDocument(r.Context(), documentID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if doc.FilePath != "" {
		if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) && logger != nil {
			logger.Warn("failed to remove stored file", "document_id", documentID, "path", doc.FilePath, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, DeleteResponse{DocumentID: documentID, Deleted: true})
}

func (e *DeleteDocumentEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete a document and its stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/v1/documents/"+args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}
