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

// PageProgress is the per-page slice of a status response.
type PageProgress struct {
	PageNumber    int    `json:"page_number"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// DocumentStatusResponse reports processing progress for one document.
type DocumentStatusResponse struct {
	DocumentID string         `json:"document_id"`
	FileName   string         `json:"file_name"`
	Status     string         `json:"status"`
	Processing bool           `json:"processing"`
	TotalPages int            `json:"total_pages"`
	Pages      []PageProgress `json:"pages"`
}

// DocumentStatusEndpoint handles GET /api/v1/status/{document_id}.
type DocumentStatusEndpoint struct{}

var _ api.Endpoint = (*DocumentStatusEndpoint)(nil)

func (e *DocumentStatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/v1/status/{document_id}", e.handler
}

func (e *DocumentStatusEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Document processing status
//	@Description	Returns document and per-page status for a processing run
//	@Tags			documents
//	@Produce		json
//	@Param			document_id	path	string	true	"Document ID"
//	@Success		200	{object}	DocumentStatusResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/v1/status/{document_id} [get]
func (e *DocumentStatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("document_id")

	gw := svcctx.StoreFrom(r.Context())
	orchestrator := svcctx.OrchestratorFrom(r.Context())
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

	resp := DocumentStatusResponse{
		DocumentID: doc.ID,
		FileName:   doc.FileName,
		Status:     string(doc.Status),
		TotalPages: doc.TotalPages,
		Pages:      make([]PageProgress, 0, len(doc.Pages)),
	}
	if orchestrator != nil {
		resp.Processing = orchestrator.Active(doc.ID)
	}
	for _, page := range doc.Pages {
		resp.Pages = append(resp.Pages, PageProgress{
			PageNumber:    page.PageNumber,
			Status:        string(page.Status),
			FailureReason: page.FailureReason,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *DocumentStatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status <document-id>",
		Short: "Show processing status for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp DocumentStatusResponse
			if err := client.Get(cmd.Context(), "/api/v1/status/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
