// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"net/http"

	"github.com/ardanlabs/powchain/business/web/errs"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/ardanlabs/powchain/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node to node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// Peer upgrades the request into a websocket connection carrying the block
// synchronization protocol.
func (h Handlers) Peer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.Log.Infow("peer connection", "traceid", v.TraceID, "remoteaddr", r.RemoteAddr)

	// The upgrader has already written the failure response.
	if err := h.State.NetAcceptPeer(w, r); err != nil {
		h.Log.Errorw("peer connection", "traceid", v.TraceID, "ERROR", err)
		return nil
	}

	v.StatusCode = http.StatusSwitchingProtocols

	return nil
}

// SubmitPeer connects this node to the specified peer.
func (h Handlers) SubmitPeer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req struct {
		Host string `json:"host" validate:"required,hostname_port"`
	}
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := h.State.NetConnectPeer(ctx, req.Host); err != nil {
		return errs.NewTrusted(err, http.StatusBadGateway)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "connected",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Ping sends a ping carrying the specified nonce to every connected peer.
// The pongs show up in the event stream.
func (h Handlers) Ping(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req struct {
		Nonce uint32 `json:"nonce"`
	}
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.State.NetPing(req.Nonce)

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "ping sent",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveStatus(), http.StatusOK)
}
