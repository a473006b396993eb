package endpoints

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/corpus-kb/corpus/internal/api"
	"github.com/corpus-kb/corpus/internal/store"
	"github.com/corpus-kb/corpus/internal/svcctx"
)

// ResourceEntitiesEndpoint handles GET /api/resources/{id}/entities.
type ResourceEntitiesEndpoint struct{}

var _ api.Endpoint = (*ResourceEntitiesEndpoint)(nil)

func (e *ResourceEntitiesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/resources/{id}/entities", e.handler
}

func (e *ResourceEntitiesEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List a resource's confirmed entities
//	@Tags			resources
//	@Produce		json
//	@Param			id	path		string	true	"Resource ID"
//	@Success		200	{array}		store.Entity
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/resources/{id}/entities [get]
func (e *ResourceEntitiesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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

	list, err := s.EntitiesForResource(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (e *ResourceEntitiesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "entities <resource-id>",
		Short: "List a resource's confirmed entities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp []store.Entity
			if err := client.Get(cmd.Context(), "/api/resources/"+args[0]+"/entities", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ResourcePendingEndpoint handles GET /api/resources/{id}/pending.
type ResourcePendingEndpoint struct{}

var _ api.Endpoint = (*ResourcePendingEndpoint)(nil)

func (e *ResourcePendingEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/resources/{id}/pending", e.handler
}

func (e *ResourcePendingEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List a resource's pending entities
//	@Description	List pending entities awaiting review. Pass all=true to include merged records.
//	@Tags			resources
//	@Produce		json
//	@Param			id	path		string	true	"Resource ID"
//	@Param			all	query		bool	false	"Include merged pending entities"
//	@Success		200	{array}		store.PendingEntity
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/resources/{id}/pending [get]
func (e *ResourcePendingEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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

	activeOnly := r.URL.Query().Get("all") != "true"
	list, err := s.ListPendingByResource(id, activeOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (e *ResourcePendingEndpoint) Command(getServerURL func() string) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "pending <resource-id>",
		Short: "List a resource's pending entities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/resources/" + args[0] + "/pending"
			if all {
				path += "?all=true"
			}
			var resp []store.PendingEntity
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include merged pending entities")
	return cmd
}
