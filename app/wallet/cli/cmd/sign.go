package cmd

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"log"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	input  string
	output string
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign a transaction and print it with its signature",
	Run:   signRun,
}

func init() {
	rootCmd.AddCommand(signCmd)
	signCmd.Flags().StringVarP(&input, "input", "i", "", "Input of the transaction.")
	signCmd.Flags().StringVarP(&output, "output", "o", "", "Output of the transaction.")
}

func signRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	tx, err := signTx(privateKey, input, output)
	if err != nil {
		log.Fatal(err)
	}

	data, err := json.MarshalIndent(tx, "", "  ")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(string(data))
}

// signTx constructs the transaction and attaches a signature produced by
// the private key.
func signTx(privateKey *ecdsa.PrivateKey, input string, output string) (database.Tx, error) {
	tx := database.NewTx(input, output)

	sig, err := tx.Sign(privateKey)
	if err != nil {
		return database.Tx{}, fmt.Errorf("sign: %w", err)
	}

	if err := tx.SetSignature(sig); err != nil {
		return database.Tx{}, err
	}

	return tx, nil
}
