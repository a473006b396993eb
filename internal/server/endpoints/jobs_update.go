package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/corpus-kb/corpus/internal/api"
	"github.com/corpus-kb/corpus/internal/store"
	"github.com/corpus-kb/corpus/internal/svcctx"
)

// UpdateJobRequest is the body for updating a job. External workers
// attach their result and flip the status to processed in one call.
type UpdateJobRequest struct {
	Status string         `json:"status,omitempty"`
	Result map[string]any `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// UpdateJobEndpoint handles PATCH /api/jobs/{id}.
type UpdateJobEndpoint struct{}

var _ api.Endpoint = (*UpdateJobEndpoint)(nil)

func (e *UpdateJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PATCH", "/api/jobs/{id}", e.handler
}

func (e *UpdateJobEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Update a job
//	@Description	Attach a worker result and/or change the job status. Workers deliver their output with status processed; the dispatcher takes it from there.
//	@Tags			jobs
//	@Accept			json
//	@Produce		json
//	@Param			id	path		string				true	"Job ID"
//	@Param			job	body		UpdateJobRequest	true	"Fields to update"
//	@Success		200	{object}	store.Job
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/jobs/{id} [patch]
func (e *UpdateJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req UpdateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	status := store.JobStatus(req.Status)
	if req.Result != nil && status == "" {
		status = store.JobStatusProcessed
	}
	switch status {
	case store.JobStatusPending, store.JobStatusRunning, store.JobStatusProcessed,
		store.JobStatusCompleted, store.JobStatusFailed:
	default:
		writeError(w, http.StatusBadRequest, "unknown status "+req.Status)
		return
	}

	s := svcctx.StoreFrom(r.Context())

	var (
		job *store.Job
		err error
	)
	if req.Result != nil {
		job, err = s.AttachJobResult(id, req.Result, status)
	} else {
		if err = s.UpdateJobStatus(id, status, req.Error); err == nil {
			job, err = s.GetJob(id)
		}
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (e *UpdateJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	var status, jobErr string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a job's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp store.Job
			req := UpdateJobRequest{Status: status, Error: jobErr}
			if err := client.Patch(cmd.Context(), "/api/jobs/"+args[0], req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().StringVar(&jobErr, "error", "", "error message for failed jobs")
	return cmd
}
