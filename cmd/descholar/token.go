// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/descholar/contract"
	"github.com/blinklabs-io/descholar/host"
	"github.com/blinklabs-io/descholar/token"
)

func mintCommand() *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "mint <amount>",
		Short: "Mint tokens, signed by the token issuer key",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(func(cmd *cobra.Command, a *app, args []string) error {
			amount, err := token.ParseAmount(args[0], a.cfg.TokenDecimals)
			if err != nil {
				return err
			}
			dest, err := parseAddress(to)
			if err != nil {
				return err
			}
			_, err = a.submit(
				cmd.Context(),
				host.MethodTokenMint,
				&host.MintArgs{To: dest, Amount: amount},
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(
				cmd.OutOrStdout(),
				"minted %s %s to %s\n",
				token.FormatAmount(amount, a.cfg.TokenDecimals),
				a.host.TokenSymbol(),
				dest,
			)
			return nil
		}),
	}
	cmd.Flags().StringVar(&to, "to", "", "address receiving the tokens")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func balanceCommand() *cobra.Command {
	var custody bool
	cmd := &cobra.Command{
		Use:   "balance [address]",
		Short: "Show the token balance of an address, the key's own by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: runWithApp(func(cmd *cobra.Command, a *app, args []string) error {
			var addr contract.Address
			switch {
			case custody:
				addr = a.host.ContractAddress()
			case len(args) > 0:
				tmp, err := parseAddress(args[0])
				if err != nil {
					return err
				}
				addr = tmp
			default:
				key, err := a.loadKey()
				if err != nil {
					return err
				}
				addr = key.Address()
			}
			var bal *big.Int
			err := a.query(
				cmd.Context(),
				host.MethodTokenBalance,
				&host.BalanceArgs{Address: addr},
				&bal,
			)
			if err != nil {
				return err
			}
			formatted := token.FormatAmount(bal, a.cfg.TokenDecimals)
			if globalFlags.json {
				return printJSON(
					cmd.OutOrStdout(),
					map[string]string{
						"address": string(addr),
						"symbol":  a.host.TokenSymbol(),
						"balance": formatted,
					},
				)
			}
			fmt.Fprintf(
				cmd.OutOrStdout(),
				"%s %s\n",
				formatted,
				a.host.TokenSymbol(),
			)
			return nil
		}),
	}
	cmd.Flags().
		BoolVar(&custody, "custody", false, "show the balance held in escrow by the contract")
	return cmd
}
