package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/corpus-kb/corpus/internal/api"
	"github.com/corpus-kb/corpus/internal/entities"
	"github.com/corpus-kb/corpus/internal/pipeline"
	"github.com/corpus-kb/corpus/internal/store"
	"github.com/corpus-kb/corpus/internal/svcctx"
)

// ConfirmEntitiesEndpoint handles POST /api/resources/{id}/confirm-entities.
type ConfirmEntitiesEndpoint struct{}

var _ api.Endpoint = (*ConfirmEntitiesEndpoint)(nil)

func (e *ConfirmEntitiesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/resources/{id}/confirm-entities", e.handler
}

func (e *ConfirmEntitiesEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Confirm a resource's pending entities
//	@Description	Promote every active pending entity to a confirmed entity, linking it to the resource. Failures are reported per entity and do not stop the rest.
//	@Tags			resources
//	@Produce		json
//	@Param			id	path		string	true	"Resource ID"
//	@Success		200	{object}	entities.ConfirmResult
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/resources/{id}/confirm-entities [post]
func (e *ConfirmEntitiesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s := svcctx.StoreFrom(r.Context())

	if _, err := s.GetResource(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "resource not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := svcctx.EntitiesFrom(r.Context()).ConfirmEntities(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.UpdateResourceFields(id, map[string]any{
		"confirmation_status": store.ConfirmationConfirmed,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (e *ConfirmEntitiesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm-entities <resource-id>",
		Short: "Confirm a resource's pending entities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp entities.ConfirmResult
			if err := client.Post(cmd.Context(), "/api/resources/"+args[0]+"/confirm-entities", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// scheduleResourceJob creates a pending job for the resource after
// checking it exists.
func scheduleResourceJob(w http.ResponseWriter, r *http.Request, jobType string, payload map[string]any) {
	id := r.PathValue("id")
	s := svcctx.StoreFrom(r.Context())

	if _, err := s.GetResource(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "resource not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if payload == nil {
		payload = map[string]any{}
	}
	payload["resourceId"] = id

	job, err := s.CreateJob(jobType, store.PriorityNormal, payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

// SummarizeEndpoint handles POST /api/resources/{id}/summarize.
type SummarizeEndpoint struct{}

var _ api.Endpoint = (*SummarizeEndpoint)(nil)

func (e *SummarizeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/resources/{id}/summarize", e.handler
}

func (e *SummarizeEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Schedule a summary
//	@Description	Create a summarize job for the resource; the summary lands on the resource once the worker result is processed
//	@Tags			resources
//	@Produce		json
//	@Param			id	path		string	true	"Resource ID"
//	@Success		202	{object}	store.Job
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/resources/{id}/summarize [post]
func (e *SummarizeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	scheduleResourceJob(w, r, pipeline.TypeSummarize, nil)
}

func (e *SummarizeEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <resource-id>",
		Short: "Schedule a summary for a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp store.Job
			if err := client.Post(cmd.Context(), "/api/resources/"+args[0]+"/summarize", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// KeyPointsEndpoint handles POST /api/resources/{id}/key-points.
type KeyPointsEndpoint struct{}

var _ api.Endpoint = (*KeyPointsEndpoint)(nil)

func (e *KeyPointsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/resources/{id}/key-points", e.handler
}

func (e *KeyPointsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Schedule key point extraction
//	@Tags			resources
//	@Produce		json
//	@Param			id	path		string	true	"Resource ID"
//	@Success		202	{object}	store.Job
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/resources/{id}/key-points [post]
func (e *KeyPointsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	scheduleResourceJob(w, r, pipeline.TypeKeyPoint, nil)
}

func (e *KeyPointsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "key-points <resource-id>",
		Short: "Schedule key point extraction for a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp store.Job
			if err := client.Post(cmd.Context(), "/api/resources/"+args[0]+"/key-points", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// KeywordsEndpoint handles POST /api/resources/{id}/keywords.
type KeywordsEndpoint struct{}

var _ api.Endpoint = (*KeywordsEndpoint)(nil)

func (e *KeywordsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/resources/{id}/keywords", e.handler
}

func (e *KeywordsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Schedule keyword extraction
//	@Tags			resources
//	@Produce		json
//	@Param			id	path		string	true	"Resource ID"
//	@Success		202	{object}	store.Job
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/resources/{id}/keywords [post]
func (e *KeywordsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	scheduleResourceJob(w, r, pipeline.TypeKeywords, nil)
}

func (e *KeywordsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "keywords <resource-id>",
		Short: "Schedule keyword extraction for a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp store.Job
			if err := client.Post(cmd.Context(), "/api/resources/"+args[0]+"/keywords", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// AskRequest is the body for asking a question about a resource.
type AskRequest struct {
	Question string `json:"question"`
}

// AskEndpoint handles POST /api/resources/{id}/ask.
type AskEndpoint struct{}

var _ api.Endpoint = (*AskEndpoint)(nil)

func (e *AskEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/resources/{id}/ask", e.handler
}

func (e *AskEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Ask a question about a resource
//	@Description	Create an ask job; the answer is broadcast to websocket clients when the worker result is processed
//	@Tags			resources
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string		true	"Resource ID"
//	@Param			question	body		AskRequest	true	"Question"
//	@Success		202			{object}	store.Job
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Router			/api/resources/{id}/ask [post]
func (e *AskEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	scheduleResourceJob(w, r, pipeline.TypeAsk, map[string]any{"question": req.Question})
}

func (e *AskEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <resource-id> <question>",
		Short: "Ask a question about a resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp store.Job
			req := AskRequest{Question: args[1]}
			if err := client.Post(cmd.Context(), "/api/resources/"+args[0]+"/ask", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
