package endpoints

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/corpus-kb/corpus/internal/api"
	"github.com/corpus-kb/corpus/internal/store"
	"github.com/corpus-kb/corpus/internal/svcctx"
)

// ListResourcesEndpoint handles GET /api/resources.
type ListResourcesEndpoint struct{}

var _ api.Endpoint = (*ListResourcesEndpoint)(nil)

func (e *ListResourcesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/resources", e.handler
}

func (e *ListResourcesEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List resources
//	@Tags			resources
//	@Produce		json
//	@Success		200	{array}		store.Resource
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/resources [get]
func (e *ListResourcesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resources, err := svcctx.StoreFrom(r.Context()).ListResources()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resources)
}

func (e *ListResourcesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp []store.Resource
			if err := client.Get(cmd.Context(), "/api/resources", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetResourceEndpoint handles GET /api/resources/{id}.
type GetResourceEndpoint struct{}

var _ api.Endpoint = (*GetResourceEndpoint)(nil)

func (e *GetResourceEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/resources/{id}", e.handler
}

func (e *GetResourceEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get resource by ID
//	@Tags			resources
//	@Produce		json
//	@Param			id	path		string	true	"Resource ID"
//	@Success		200	{object}	store.Resource
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/resources/{id} [get]
func (e *GetResourceEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resource, err := svcctx.StoreFrom(r.Context()).GetResource(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "resource not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resource)
}

func (e *GetResourceEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a resource by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp store.Resource
			if err := client.Get(cmd.Context(), "/api/resources/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// DeleteResourceEndpoint handles DELETE /api/resources/{id}.
type DeleteResourceEndpoint struct{}

var _ api.Endpoint = (*DeleteResourceEndpoint)(nil)

func (e *DeleteResourceEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/resources/{id}", e.handler
}

func (e *DeleteResourceEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Delete a resource
//	@Description	Delete a resource together with its pending entities and entity links
//	@Tags			resources
//	@Produce		json
//	@Param			id	path	string	true	"Resource ID"
//	@Success		204
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/resources/{id} [delete]
func (e *DeleteResourceEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if err := svcctx.StoreFrom(r.Context()).DeleteResource(r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "resource not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteResourceEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/resources/"+args[0]); err != nil {
				return err
			}
			fmt.Println("deleted")
			return nil
		},
	}
}
