// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/powchain/business/web/errs"
	"github.com/ardanlabs/powchain/foundation/blockchain/hash"
	"github.com/ardanlabs/powchain/foundation/blockchain/miner"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/ardanlabs/powchain/foundation/events"
	"github.com/ardanlabs/powchain/foundation/validate"
	"github.com/ardanlabs/powchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of public node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Tip returns the block at the tip of the longest chain.
func (h Handlers) Tip(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blk, height := h.State.RetrieveTip()

	resp := block{
		Hash:   blk.Hash(),
		Height: height,
		Block:  blk,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// LongestChain returns the hashes of the longest chain, tip first.
func (h Handlers) LongestChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hashes := h.State.QueryLongestChain()

	resp := chain{
		Tip:    hashes[0],
		Height: uint64(len(hashes) - 1),
		Hashes: hashes,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// BlockByHash returns the block with the specified hash.
func (h Handlers) BlockByHash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	req := blockRequest{
		Hash: web.Param(r, "hash"),
	}
	if err := validate.Check(req); err != nil {
		return err
	}

	blkHash, err := hash.FromHex(req.Hash)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid hash: %w", err), http.StatusBadRequest)
	}

	blk, height, err := h.State.QueryBlock(blkHash)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return err
	}

	resp := block{
		Hash:   blkHash,
		Height: height,
		Block:  blk,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// StartMining moves the miner into the running state.
func (h Handlers) StartMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req startMining
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	interval, err := time.ParseDuration(req.Interval)
	if err != nil || interval < 0 {
		return errs.NewTrusted(fmt.Errorf("invalid interval %q", req.Interval), http.StatusBadRequest)
	}

	if err := h.State.StartMining(interval); err != nil {
		if errors.Is(err, miner.ErrStopped) {
			return errs.NewTrusted(err, http.StatusConflict)
		}
		return err
	}

	return h.respondMiner(ctx, w, "start signaled")
}

// ExitMining shuts the miner down.
func (h Handlers) ExitMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.State.ExitMining(); err != nil {
		if errors.Is(err, miner.ErrStopped) {
			return errs.NewTrusted(err, http.StatusConflict)
		}
		return err
	}

	return h.respondMiner(ctx, w, "exit signaled")
}

// MinerStatus returns the operating state of the miner.
func (h Handlers) MinerStatus(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return h.respondMiner(ctx, w, "")
}

func (h Handlers) respondMiner(ctx context.Context, w http.ResponseWriter, status string) error {
	ms := h.State.RetrieveMinerStatus()

	resp := minerStatus{
		State:  ms.State,
		Mined:  ms.Mined,
		Status: status,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
