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
	"io"
	"math/big"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/descholar/database/models"
	"github.com/blinklabs-io/descholar/token"
)

const defaultHistoryLimit = 20

func parseScholarshipID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid scholarship id %q: %w", s, err)
	}
	return id, nil
}

func historyCommand() *cobra.Command {
	var (
		limit  int
		events bool
		filter models.EventFilter
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show committed invocations or contract events from the journal",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(cmd *cobra.Command, a *app, args []string) error {
			if events {
				filter.Limit = limit
				ret, err := a.host.Events(filter)
				if err != nil {
					return err
				}
				if globalFlags.json {
					return printJSON(cmd.OutOrStdout(), ret)
				}
				return printEvents(cmd.OutOrStdout(), ret, a.cfg.TokenDecimals)
			}
			ret, err := a.host.History(limit)
			if err != nil {
				return err
			}
			if globalFlags.json {
				return printJSON(cmd.OutOrStdout(), ret)
			}
			return printInvocations(cmd.OutOrStdout(), ret)
		}),
	}
	cmd.Flags().
		IntVarP(&limit, "limit", "n", defaultHistoryLimit, "maximum number of entries")
	cmd.Flags().
		BoolVar(&events, "events", false, "list contract events instead of invocations")
	cmd.Flags().
		StringVar(&filter.Type, "type", "", "only events of this type")
	cmd.Flags().
		Uint64Var(&filter.ScholarshipID, "scholarship", 0, "only events for this scholarship")
	cmd.Flags().
		StringVar(&filter.Address, "address", "", "only events involving this address")
	return cmd
}

func printInvocations(w io.Writer, invs []models.Invocation) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMETHOD\tLEDGER TIME\tNONCE\tEVENTS\tINVOKER")
	for _, inv := range invs {
		evtTypes := make([]string, 0, len(inv.Events))
		for _, evt := range inv.Events {
			evtTypes = append(evtTypes, evt.Type)
		}
		fmt.Fprintf(
			tw,
			"%d\t%s\t%s\t%d\t%s\t%s\n",
			inv.ID,
			inv.Method,
			formatLedgerTime(inv.LedgerTime),
			inv.Nonce,
			strings.Join(evtTypes, ","),
			inv.Invoker,
		)
	}
	return tw.Flush()
}

func printEvents(w io.Writer, evts []models.ContractEvent, decimals int32) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INVOCATION\tTYPE\tSCHOLARSHIP\tAMOUNT\tLEDGER TIME\tACTOR\tSUBJECT")
	for _, evt := range evts {
		fmt.Fprintf(
			tw,
			"%d\t%s\t%d\t%s\t%s\t%s\t%s\n",
			evt.InvocationID,
			evt.Type,
			evt.ScholarshipID,
			formatEventAmount(evt.Amount, decimals),
			formatLedgerTime(evt.LedgerTime),
			evt.Actor,
			evt.Subject,
		)
	}
	return tw.Flush()
}

// formatEventAmount renders a journal amount, stored as base-10 base units
func formatEventAmount(amount string, decimals int32) string {
	if amount == "" {
		return "-"
	}
	v, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return amount
	}
	return token.FormatAmount(v, decimals)
}
