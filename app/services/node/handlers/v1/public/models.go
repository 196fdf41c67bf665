package public

import (
	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/hash"
)

type block struct {
	Hash   hash.H256      `json:"hash"`
	Height uint64         `json:"height"`
	Block  database.Block `json:"block"`
}

type chain struct {
	Tip    hash.H256   `json:"tip"`
	Height uint64      `json:"height"`
	Hashes []hash.H256 `json:"hashes"`
}

type blockRequest struct {
	Hash string `json:"hash" validate:"required,digest"`
}

type startMining struct {
	Interval string `json:"interval" validate:"required"`
}

type minerStatus struct {
	State  string `json:"state"`
	Mined  uint64 `json:"mined"`
	Status string `json:"status,omitempty"`
}
