package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/corpus-kb/corpus/internal/api"
	"github.com/corpus-kb/corpus/internal/store"
	"github.com/corpus-kb/corpus/internal/svcctx"
)

// ListEntitiesEndpoint handles GET /api/entities. A q parameter
// switches to search across names, aliases, and translations.
type ListEntitiesEndpoint struct{}

var _ api.Endpoint = (*ListEntitiesEndpoint)(nil)

func (e *ListEntitiesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/entities", e.handler
}

func (e *ListEntitiesEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List or search entities
//	@Tags			entities
//	@Produce		json
//	@Param			q	query		string	false	"Search names, aliases, and translations"
//	@Success		200	{array}		store.Entity
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/entities [get]
func (e *ListEntitiesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var (
		list []store.Entity
		err  error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		list, err = svcctx.EntitiesFrom(r.Context()).Search(q)
	} else {
		list, err = svcctx.StoreFrom(r.Context()).ListEntities()
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (e *ListEntitiesEndpoint) Command(getServerURL func() string) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List or search entities",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/entities"
			if query != "" {
				path += "?q=" + url.QueryEscape(query)
			}
			var resp []store.Entity
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "search query")
	return cmd
}

// GetEntityEndpoint handles GET /api/entities/{id}.
type GetEntityEndpoint struct{}

var _ api.Endpoint = (*GetEntityEndpoint)(nil)

func (e *GetEntityEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/entities/{id}", e.handler
}

func (e *GetEntityEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get entity by ID
//	@Tags			entities
//	@Produce		json
//	@Param			id	path		string	true	"Entity ID"
//	@Success		200	{object}	store.Entity
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/entities/{id} [get]
func (e *GetEntityEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	entity, err := svcctx.StoreFrom(r.Context()).GetEntity(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entity not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

func (e *GetEntityEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get an entity by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp store.Entity
			if err := client.Get(cmd.Context(), "/api/entities/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// UpdateEntityRequest is the body for updating an entity.
type UpdateEntityRequest struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Aliases     *[]store.Alias `json:"aliases,omitempty"`
}

// UpdateEntityEndpoint handles PATCH /api/entities/{id}.
type UpdateEntityEndpoint struct{}

var _ api.Endpoint = (*UpdateEntityEndpoint)(nil)

func (e *UpdateEntityEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PATCH", "/api/entities/{id}", e.handler
}

func (e *UpdateEntityEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Update an entity
//	@Description	Update an entity's name, description, or alias list. Omitted fields are left alone.
//	@Tags			entities
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Entity ID"
//	@Param			entity	body		UpdateEntityRequest	true	"Fields to update"
//	@Success		200		{object}	store.Entity
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/entities/{id} [patch]
func (e *UpdateEntityEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req UpdateEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	s := svcctx.StoreFrom(r.Context())
	entity, err := s.GetEntity(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entity not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if req.Name != nil {
		entity.Name = *req.Name
	}
	if req.Description != nil {
		entity.Description = *req.Description
	}
	if req.Aliases != nil {
		entity.Aliases = *req.Aliases
	}
	if err := s.SaveEntity(entity); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

func (e *UpdateEntityEndpoint) Command(getServerURL func() string) *cobra.Command {
	var name, description string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			req := UpdateEntityRequest{}
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			var resp store.Entity
			if err := client.Patch(cmd.Context(), "/api/entities/"+args[0], req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new entity name")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	return cmd
}

// MergeEntitiesRequest names the entity absorbing this one.
type MergeEntitiesRequest struct {
	TargetID string `json:"targetId"`
}

// MergeEntitiesEndpoint handles POST /api/entities/{id}/merge. The
// source entity is absorbed into the target: aliases and translations
// are unioned, resource links are repointed, and the source is deleted.
type MergeEntitiesEndpoint struct{}

var _ api.Endpoint = (*MergeEntitiesEndpoint)(nil)

func (e *MergeEntitiesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/entities/{id}/merge", e.handler
}

func (e *MergeEntitiesEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Merge two confirmed entities
//	@Description	Absorb the source entity into the target. Not reversible.
//	@Tags			entities
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Source entity ID"
//	@Param			merge	body		MergeEntitiesRequest	true	"Merge target"
//	@Success		200		{object}	store.Entity
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/entities/{id}/merge [post]
func (e *MergeEntitiesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req MergeEntitiesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.TargetID == "" {
		writeError(w, http.StatusBadRequest, "targetId is required")
		return
	}

	target, err := svcctx.EntitiesFrom(r.Context()).Merge(r.PathValue("id"), req.TargetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, target)
}

func (e *MergeEntitiesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <source-id> <target-id>",
		Short: "Merge one entity into another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp store.Entity
			req := MergeEntitiesRequest{TargetID: args[1]}
			if err := client.Post(cmd.Context(), "/api/entities/"+args[0]+"/merge", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// DeleteEntityEndpoint handles DELETE /api/entities/{id}.
type DeleteEntityEndpoint struct{}

var _ api.Endpoint = (*DeleteEntityEndpoint)(nil)

func (e *DeleteEntityEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/entities/{id}", e.handler
}

func (e *DeleteEntityEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Delete an entity
//	@Description	Delete a confirmed entity and its resource links
//	@Tags			entities
//	@Produce		json
//	@Param			id	path	string	true	"Entity ID"
//	@Success		204
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/entities/{id} [delete]
func (e *DeleteEntityEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if err := svcctx.StoreFrom(r.Context()).DeleteEntity(r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entity not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteEntityEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/entities/"+args[0]); err != nil {
				return err
			}
			fmt.Println("deleted")
			return nil
		},
	}
}
