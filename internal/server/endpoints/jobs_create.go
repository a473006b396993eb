package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/corpus-kb/corpus/internal/api"
	"github.com/corpus-kb/corpus/internal/store"
	"github.com/corpus-kb/corpus/internal/svcctx"
)

// CreateJobRequest is the body for creating a job.
type CreateJobRequest struct {
	Type     string         `json:"type"`
	Priority string         `json:"priority,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// CreateJobEndpoint handles POST /api/jobs.
type CreateJobEndpoint struct{}

var _ api.Endpoint = (*CreateJobEndpoint)(nil)

func (e *CreateJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/jobs", e.handler
}

func (e *CreateJobEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Create a job
//	@Description	Create a new pending job for external workers to pick up
//	@Tags			jobs
//	@Accept			json
//	@Produce		json
//	@Param			job	body		CreateJobRequest	true	"Job to create"
//	@Success		201	{object}	store.Job
//	@Failure		400	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/jobs [post]
func (e *CreateJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Type == "" {
		writeError(w, http.StatusBadRequest, "job type is required")
		return
	}

	priority := store.JobPriority(req.Priority)
	switch priority {
	case "", store.PriorityLow, store.PriorityNormal, store.PriorityHigh:
	default:
		writeError(w, http.StatusBadRequest, "unknown priority "+req.Priority)
		return
	}

	job, err := svcctx.StoreFrom(r.Context()).CreateJob(req.Type, priority, req.Payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (e *CreateJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	var priority string
	cmd := &cobra.Command{
		Use:   "create <type>",
		Short: "Create a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp store.Job
			req := CreateJobRequest{Type: args[0], Priority: priority}
			if err := client.Post(cmd.Context(), "/api/jobs", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&priority, "priority", "", "job priority (low, normal, high)")
	return cmd
}
