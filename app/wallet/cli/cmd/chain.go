package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/hash"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var limit int

type chainResp struct {
	Tip    hash.H256   `json:"tip"`
	Height uint64      `json:"height"`
	Hashes []hash.H256 `json:"hashes"`
}

type blockResp struct {
	Hash   hash.H256      `json:"hash"`
	Height uint64         `json:"height"`
	Block  database.Block `json:"block"`
}

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Print the most recent blocks of the longest chain.",
	Run:   chainRun,
}

func init() {
	rootCmd.AddCommand(chainCmd)
	chainCmd.Flags().IntVarP(&limit, "limit", "l", 10, "Number of blocks to print.")
}

func chainRun(cmd *cobra.Command, args []string) {
	var chain chainResp
	if err := get(fmt.Sprintf("%s/v1/chain/longest", url), &chain); err != nil {
		log.Fatal(err)
	}

	pterm.DefaultSection.Printfln("Tip %s at height %d", chain.Tip, chain.Height)

	hashes := chain.Hashes
	if limit > 0 && len(hashes) > limit {
		hashes = hashes[:limit]
	}

	blocks := make([]blockResp, 0, len(hashes))
	for _, h := range hashes {
		var blk blockResp
		if err := get(fmt.Sprintf("%s/v1/block/%s", url, h), &blk); err != nil {
			log.Fatal(err)
		}
		blocks = append(blocks, blk)
	}

	if err := pterm.DefaultTable.WithHasHeader().WithData(chainTable(blocks)).Render(); err != nil {
		log.Fatal(err)
	}
}

// chainTable lays the blocks out as rows under a header row.
func chainTable(blocks []blockResp) pterm.TableData {
	data := pterm.TableData{
		{"Height", "Hash", "Parent", "Nonce", "Time", "Txs"},
	}

	for _, blk := range blocks {
		ts := time.Unix(0, int64(blk.Block.Header.TimeStamp)).UTC()

		data = append(data, []string{
			strconv.FormatUint(blk.Height, 10),
			short(blk.Hash),
			short(blk.Block.Header.Parent),
			strconv.FormatUint(uint64(blk.Block.Header.Nonce), 10),
			ts.Format(time.RFC3339),
			strconv.Itoa(len(blk.Block.Content.Transactions)),
		})
	}

	return data
}

// short abbreviates a digest for display.
func short(h hash.H256) string {
	s := h.String()
	return s[:10] + ".." + s[len(s)-6:]
}

func get(url string, v any) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %s", url, resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
