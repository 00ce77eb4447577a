package endpoints

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mkandasamy/deedflow/internal/api"
	"github.com/mkandasamy/deedflow/internal/model"
	"github.com/mkandasamy/deedflow/internal/svcctx"
)

// maxUploadMemory bounds in-memory multipart parsing; larger files spill to disk.
const maxUploadMemory = 100 << 20 // 100MB

// ProcessResponse is returned when a document is accepted for processing.
type ProcessResponse struct {
	DocumentID     string `json:"document_id"`
	FileName       string `json:"file_name"`
	Status         string `json:"status"`
	StreamEndpoint string `json:"sse_endpoint"`
}

// ProcessEndpoint handles POST /api/v1/process with a single file upload.
type ProcessEndpoint struct{}

var _ api.Endpoint = (*ProcessEndpoint)(nil)

func (e *ProcessEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/v1/process", e.handler
}

func (e *ProcessEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Process a land document
//	@Description	Upload a scanned Tamil land document and start the processing pipeline
//	@Tags			documents
//	@Accept			mpfd
//	@Produce		json
//	@Param			files		formData	file	true	"Document file (PDF or image)"
//	@Param			client_name	formData	string	false	"Client the document belongs to"
//	@Success		202	{object}	ProcessResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/v1/process [post]
func (e *ProcessEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	if len(files) > 1 {
		writeError(w, http.StatusBadRequest, "expected a single file; use /api/v1/process-multiple for batches")
		return
	}

	clientName := r.FormValue("client_name")

	resp, status, err := acceptUpload(r, files[0], clientName)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (e *ProcessEndpoint) Command(getServerURL func() string) *cobra.Command {
	var clientName string
	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Upload and process a land document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ProcessResponse
			err := client.PostFiles(cmd.Context(), "/api/v1/process", args[:1],
				map[string]string{"client_name": clientName}, &resp)
			if err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&clientName, "client", "", "Client the document belongs to")
	return cmd
}

// acceptUpload validates and stores one uploaded file, records the document,
// and starts a pipeline run in the background. Returns the HTTP status to use
// on error.
func acceptUpload(r *http.Request, fh *multipart.FileHeader, clientName string) (*ProcessResponse, int, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fh.Filename)), ".")
	fileType, ok := model.FileTypeFromExt(ext)
	if !ok {
		return nil, http.StatusBadRequest, fmt.Errorf("unsupported file type %q: supported are %s",
			ext, strings.Join(model.SupportedExts(), ", "))
	}

	ctx := r.Context()
	gw := svcctx.StoreFrom(ctx)
	homeDir := svcctx.HomeFrom(ctx)
	orchestrator := svcctx.OrchestratorFrom(ctx)
	logger := svcctx.LoggerFrom(ctx)
	if gw == nil || homeDir == nil || orchestrator == nil {
		return nil, http.StatusServiceUnavailable, fmt.Errorf("server not fully initialized")
	}

	now := time.Now().UTC()
	documentID := uuid.NewString()

	if err := homeDir.EnsureUploadDir(now, clientName); err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to create upload directory: %w", err)
	}
	destPath := homeDir.UploadPath(now, clientName, documentID, ext)

	src, err := fh.Open()
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to store file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(destPath)
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to save file: %w", err)
	}
	dst.Close()

	doc := &model.Document{
		ID:         documentID,
		FileName:   fh.Filename,
		FileType:   fileType,
		FilePath:   destPath,
		ClientName: clientName,
		Status:     model.StatusUploaded,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := gw.CreateDocument(ctx, doc); err != nil {
		os.Remove(destPath)
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to record document: %w", err)
	}

	// The run outlives the upload request.
	runCtx := context.WithoutCancel(ctx)
	go func() {
		if err := orchestrator.Process(runCtx, doc); err != nil && logger != nil {
			logger.Error("processing failed", "document_id", doc.ID, "error", err)
		}
	}()

	return &ProcessResponse{
		DocumentID:     documentID,
		FileName:       fh.Filename,
		Status:         string(model.StatusUploaded),
		StreamEndpoint: "/api/v1/stream/" + documentID,
	}, 0, nil
}
