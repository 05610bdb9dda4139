package router

import (
	"net/http"

	"github.com/gobwas/ws"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// handleTrafficWebsocket upgrades the request and keeps the connection subscribed to traffic
// updates until the client leaves.
func (api *API) handleTrafficWebsocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, _, hs, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		api.log.Info("websocket upgrade error", zap.Error(err), zap.String("remote", r.RemoteAddr))
		return
	}
	api.log.Info("established websocket connection", zap.String("remote", r.RemoteAddr),
		zap.String("protocol", hs.Protocol))

	api.hub.ServeWebsocket(conn)
}
