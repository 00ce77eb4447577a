package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/mkandasamy/deedflow/internal/api"
)

// maxBatchFiles bounds a multi-document upload.
const maxBatchFiles = 5

// BatchItem reports the outcome of one file in a batch upload.
type BatchItem struct {
	FileName string           `json:"file_name"`
	Accepted bool             `json:"accepted"`
	Error    string           `json:"error,omitempty"`
	Result   *ProcessResponse `json:"result,omitempty"`
}

// BatchResponse is returned for a multi-document upload.
type BatchResponse struct {
	Total    int         `json:"total"`
	Accepted int         `json:"accepted"`
	Items    []BatchItem `json:"items"`
}

// ProcessMultipleEndpoint handles POST /api/v1/process-multiple.
type ProcessMultipleEndpoint struct{}

var _ api.Endpoint = (*ProcessMultipleEndpoint)(nil)

func (e *ProcessMultipleEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/v1/process-multiple", e.handler
}

func (e *ProcessMultipleEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Process multiple land documents
//	@Description	Upload up to 5 documents; each gets its own pipeline run and stream
//	@Tags			documents
//	@Accept			mpfd
//	@Produce		json
//	@Param			files		formData	file	true	"Document files (PDF or image)"
//	@Param			client_name	formData	string	false	"Client the documents belong to"
//	@Success		202	{object}	BatchResponse
//	@Failure		400	{object}	ErrorResponse
//	@Router			/api/v1/process-multiple [post]
func (e *ProcessMultipleEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}
	if len(files) > maxBatchFiles {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("too many files: max %d per request", maxBatchFiles))
		return
	}

	clientName := r.FormValue("client_name")

	resp := BatchResponse{Total: len(files)}
	for _, fh := range files {
		item := BatchItem{FileName: fh.Filename}
		result, _, err := acceptUpload(r, fh, clientName)
		if err != nil {
			item.Error = err.Error()
		} else {
			item.Accepted = true
			item.Result = result
			resp.Accepted++
		}
		resp.Items = append(resp.Items, item)
	}

	writeJSON(w, http.StatusAccepted, resp)
}

func (e *ProcessMultipleEndpoint) Command(getServerURL func() string) *cobra.Command {
	var clientName string
	cmd := &cobra.Command{
		Use:   "process-multiple <file> [file...]",
		Short: "Upload and process up to 5 land documents",
		Args:  cobra.RangeArgs(1, maxBatchFiles),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp BatchResponse
			err := client.PostFiles(cmd.Context(), "/api/v1/process-multiple", args,
				map[string]string{"client_name": clientName}, &resp)
			if err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&clientName, "client", "", "Client the documents belong to")
	return cmd
}
