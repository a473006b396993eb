package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/corpus-kb/corpus/internal/api"
	"github.com/corpus-kb/corpus/internal/store"
	"github.com/corpus-kb/corpus/internal/svcctx"
)

// MergePendingRequest names the record a pending entity is merged into.
type MergePendingRequest struct {
	TargetType string `json:"targetType"` // "confirmed" or "pending"
	TargetID   string `json:"targetId"`
	Scope      string `json:"scope,omitempty"` // alias scope, default document
}

// MergePendingEndpoint handles POST /api/pending/{id}/merge. The
// pending entity is marked merged and its name becomes an alias of the
// target; the source record is retained so the merge can be cancelled.
type MergePendingEndpoint struct{}

var _ api.Endpoint = (*MergePendingEndpoint)(nil)

func (e *MergePendingEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/pending/{id}/merge", e.handler
}

func (e *MergePendingEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Merge a pending entity into another record
//	@Description	Mark a pending entity merged into a confirmed or pending target, adding its name as an alias. Document-scoped merges also substitute the name in the resource's working content.
//	@Tags			entities
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Pending entity ID"
//	@Param			merge	body		MergePendingRequest	true	"Merge target"
//	@Success		200		{object}	store.PendingEntity
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/pending/{id}/merge [post]
func (e *MergePendingEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req MergePendingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.TargetID == "" {
		writeError(w, http.StatusBadRequest, "targetId is required")
		return
	}

	targetType := store.MergeTargetType(req.TargetType)
	switch targetType {
	case store.MergeTargetConfirmed, store.MergeTargetPending:
	default:
		writeError(w, http.StatusBadRequest, "targetType must be confirmed or pending")
		return
	}

	scope := store.AliasScope(req.Scope)
	switch scope {
	case "":
		scope = store.ScopeDocument
	case store.ScopeDocument, store.ScopeProject, store.ScopeGlobal:
	default:
		writeError(w, http.StatusBadRequest, "unknown scope "+req.Scope)
		return
	}

	id := r.PathValue("id")
	if err := svcctx.EntitiesFrom(r.Context()).MergeEntity(id, targetType, req.TargetID, scope); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	merged, err := svcctx.StoreFrom(r.Context()).GetPendingEntity(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, merged)
}

func (e *MergePendingEndpoint) Command(getServerURL func() string) *cobra.Command {
	var targetType, scope string
	cmd := &cobra.Command{
		Use:   "merge <pending-id> <target-id>",
		Short: "Merge a pending entity into another record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			req := MergePendingRequest{TargetType: targetType, TargetID: args[1], Scope: scope}
			var resp store.PendingEntity
			if err := client.Post(cmd.Context(), "/api/pending/"+args[0]+"/merge", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&targetType, "target-type", "confirmed", "merge target kind (confirmed or pending)")
	cmd.Flags().StringVar(&scope, "scope", "", "alias scope (document, project, global)")
	return cmd
}

// CancelMergeEndpoint handles POST /api/pending/{id}/cancel-merge. The
// merge-time alias is removed from the target and the pending entity
// returns to review; content substitutions are not reverted.
type CancelMergeEndpoint struct{}

var _ api.Endpoint = (*CancelMergeEndpoint)(nil)

func (e *CancelMergeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/pending/{id}/cancel-merge", e.handler
}

func (e *CancelMergeEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Cancel a pending entity merge
//	@Tags			entities
//	@Produce		json
//	@Param			id	path		string	true	"Pending entity ID"
//	@Success		200	{object}	store.PendingEntity
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/pending/{id}/cancel-merge [post]
func (e *CancelMergeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := svcctx.EntitiesFrom(r.Context()).CancelMerge(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	restored, err := svcctx.StoreFrom(r.Context()).GetPendingEntity(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, restored)
}

func (e *CancelMergeEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel-merge <pending-id>",
		Short: "Cancel a pending entity merge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp store.PendingEntity
			if err := client.Post(cmd.Context(), "/api/pending/"+args[0]+"/cancel-merge", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// DeletePendingEndpoint handles DELETE /api/pending/{id}.
type DeletePendingEndpoint struct{}

var _ api.Endpoint = (*DeletePendingEndpoint)(nil)

func (e *DeletePendingEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/pending/{id}", e.handler
}

func (e *DeletePendingEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Delete a pending entity
//	@Description	Discard an extracted entity without confirming it
//	@Tags			entities
//	@Produce		json
//	@Param			id	path	string	true	"Pending entity ID"
//	@Success		204
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/pending/{id} [delete]
func (e *DeletePendingEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if err := svcctx.StoreFrom(r.Context()).DeletePendingEntity(r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "pending entity not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeletePendingEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <pending-id>",
		Short: "Delete a pending entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/pending/"+args[0]); err != nil {
				return err
			}
			fmt.Println("deleted")
			return nil
		},
	}
}
