// Package genesis maintains access to the genesis information. Every node
// must start from the identical genesis block so the default is a fixed
// constant and not minted at startup.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/hash"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date       time.Time `json:"date"`       // Timestamp recorded in the genesis block.
	Nonce      uint32    `json:"nonce"`      // Nonce recorded in the genesis block.
	Difficulty hash.H256 `json:"difficulty"` // Target inherited by blocks mined on top of genesis.
	Input      string    `json:"input"`      // Input of the single placeholder transaction.
	Output     string    `json:"output"`     // Output of the single placeholder transaction.
}

// Default returns the genesis information compiled into the node.
func Default() Genesis {
	return Genesis{
		Date:       time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC),
		Nonce:      0,
		Difficulty: DefaultDifficulty(),
		Input:      "genesis in",
		Output:     "genesis out",
	}
}

// DefaultDifficulty returns the default target. Roughly one header hash in
// 65536 is less than or equal to it.
func DefaultDifficulty() hash.H256 {
	var d hash.H256
	for i := range d {
		d[i] = 0xff
	}

	d[0] = 0
	d[1] = 0
	d[4] = 6
	d[10] = 13
	d[23] = 7
	d[28] = 45

	return d
}

// =============================================================================

// Load opens and consumes the genesis file. Fields missing from the file
// keep their default values.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("unmarshal genesis: %w", err)
	}

	return genesis, nil
}
