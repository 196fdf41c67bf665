package cmd

import (
	"crypto/ecdsa"
	"fmt"
	"log"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var sig string

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a transaction signature against the wallet key",
	Run:   verifyRun,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVarP(&input, "input", "i", "", "Input of the transaction.")
	verifyCmd.Flags().StringVarP(&output, "output", "o", "", "Output of the transaction.")
	verifyCmd.Flags().StringVarP(&sig, "sig", "s", "", "Hex encoded signature.")
}

func verifyRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	ok, signer, err := verifyTx(&privateKey.PublicKey, input, output, sig)
	if err != nil {
		log.Fatal(err)
	}

	if !ok {
		pterm.Error.Printfln("signature does not match, signed by %s", signer)
		return
	}

	pterm.Success.Printfln("signature verified, signed by %s", signer)
}

// verifyTx checks the hex encoded signature over the transaction against
// the public key. The address recovered from the signature is returned.
func verifyTx(publicKey *ecdsa.PublicKey, input string, output string, sigHex string) (bool, string, error) {
	sigBytes, err := hexutil.Decode(sigHex)
	if err != nil {
		return false, "", fmt.Errorf("decode signature: %w", err)
	}

	tx := database.NewTx(input, output)

	ok, err := tx.Verify(publicKey, sigBytes)
	if err != nil {
		return false, "", err
	}

	signer, err := signature.FromAddress(tx.Hash(), sigBytes)
	if err != nil {
		signer = "unknown"
	}

	return ok, signer, nil
}
