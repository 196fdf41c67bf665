// This program provides a wallet for generating keys, signing transactions
// and inspecting the chain of a running node.
package main

import "github.com/ardanlabs/powchain/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
