package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/corpus-kb/corpus/internal/api"
	"github.com/corpus-kb/corpus/internal/svcctx"
)

// WSEndpoint handles GET /ws, upgrading connections into the
// notification hub.
type WSEndpoint struct{}

var _ api.Endpoint = (*WSEndpoint)(nil)

func (e *WSEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ws", e.handler
}

func (e *WSEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Subscribe to pipeline notifications
//	@Description	Upgrade to a websocket and receive notification and askResponse events as the pipeline progresses
//	@Tags			notifications
//	@Router			/ws [get]
func (e *WSEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	hub := svcctx.HubFrom(r.Context())
	if hub == nil {
		writeError(w, http.StatusServiceUnavailable, "notification hub not initialized")
		return
	}
	hub.HandleWS(w, r)
}

func (e *WSEndpoint) Command(_ func() string) *cobra.Command {
	// Websocket subscriptions have no CLI counterpart.
	return nil
}
