package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/corpus-kb/corpus/internal/api"
	"github.com/corpus-kb/corpus/internal/store"
	"github.com/corpus-kb/corpus/internal/svcctx"
)

// UploadResponse describes an accepted upload.
type UploadResponse struct {
	Resource  *store.Resource `json:"resource"`
	Job       *store.Job      `json:"job,omitempty"`
	Duplicate bool            `json:"duplicate"`
}

// UploadResourceEndpoint handles POST /api/resources/upload with a
// multipart file upload.
type UploadResourceEndpoint struct{}

var _ api.Endpoint = (*UploadResourceEndpoint)(nil)

func (e *UploadResourceEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/resources/upload", e.handler
}

func (e *UploadResourceEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Upload a document
//	@Description	Upload a document file. Identical content resolves to the existing resource; otherwise extraction is scheduled.
//	@Tags			resources
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"Document file"
//	@Success		202		{object}	UploadResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/resources/upload [post]
func (e *UploadResourceEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	const maxMemory = 100 << 20 // 100MB
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	result, err := svcctx.UploaderFrom(r.Context()).Upload(r.Context(), header.Filename, file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusAccepted
	if result.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, UploadResponse{
		Resource:  result.Resource,
		Job:       result.Job,
		Duplicate: result.Duplicate,
	})
}

func (e *UploadResourceEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp UploadResponse
			if err := client.PostFile(cmd.Context(), "/api/resources/upload", args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
