package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/corpus-kb/corpus/internal/api"
	"github.com/corpus-kb/corpus/internal/store"
	"github.com/corpus-kb/corpus/internal/svcctx"
)

// ListJobsEndpoint handles GET /api/jobs.
type ListJobsEndpoint struct{}

var _ api.Endpoint = (*ListJobsEndpoint)(nil)

func (e *ListJobsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/jobs", e.handler
}

func (e *ListJobsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List jobs
//	@Description	List jobs, optionally filtered by status and type. Pending jobs are ordered by priority then age so workers can take the head of the list.
//	@Tags			jobs
//	@Produce		json
//	@Param			status	query		string	false	"Filter by status (pending, running, processed, completed, failed)"
//	@Param			type	query		string	false	"Filter by job type"
//	@Success		200		{array}		store.Job
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/jobs [get]
func (e *ListJobsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	filter := store.JobFilter{
		Status: store.JobStatus(r.URL.Query().Get("status")),
		Type:   r.URL.Query().Get("type"),
	}
	jobs, err := svcctx.StoreFrom(r.Context()).ListJobs(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (e *ListJobsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var status, jobType string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/jobs?status=" + status + "&type=" + jobType
			var resp []store.Job
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&jobType, "type", "", "filter by job type")
	return cmd
}
