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
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/spf13/cobra"

	"github.com/blinklabs-io/descholar/contract"
	"github.com/blinklabs-io/descholar/token"
)

type scholarshipView struct {
	ID              uint64 `json:"id"`
	Name            string `json:"name"`
	Details         string `json:"details"`
	GrantAmount     string `json:"grantAmount"`
	NumberOfGrants  uint32 `json:"numberOfGrants"`
	GrantsRemaining uint32 `json:"grantsRemaining"`
	EndDate         string `json:"endDate"`
	Creator         string `json:"creator"`
	Active          bool   `json:"active"`
}

func newScholarshipView(
	s contract.Scholarship,
	decimals int32,
	now time.Time,
) scholarshipView {
	return scholarshipView{
		ID:              s.ID,
		Name:            s.Name,
		Details:         s.Details,
		GrantAmount:     token.FormatAmount(s.GrantAmount, decimals),
		NumberOfGrants:  s.NumberOfGrants,
		GrantsRemaining: s.GrantsRemaining,
		EndDate:         formatLedgerTime(s.EndDate),
		Creator:         string(s.Creator),
		Active:          s.Active(uint64(now.Unix())), // #nosec G115
	}
}

func formatLedgerTime(ts uint64) string {
	return time.Unix(int64(ts), 0).UTC().Format(time.RFC3339) // #nosec G115
}

// parseEndDate accepts an RFC3339 time or a duration from now
func parseEndDate(endDate string, duration time.Duration, now time.Time) (uint64, error) {
	switch {
	case endDate != "" && duration != 0:
		return 0, errors.New("--end-date and --duration are mutually exclusive")
	case endDate != "":
		t, err := time.Parse(time.RFC3339, endDate)
		if err != nil {
			return 0, fmt.Errorf("invalid end date: %w", err)
		}
		if t.Unix() < 0 {
			return 0, fmt.Errorf("invalid end date: %s", endDate)
		}
		return uint64(t.Unix()), nil // #nosec G115
	case duration > 0:
		return uint64(now.Add(duration).Unix()), nil // #nosec G115
	default:
		return 0, errors.New("one of --end-date or --duration is required")
	}
}

func postCommand() *cobra.Command {
	var (
		name     string
		details  string
		amount   string
		grants   uint32
		endDate  string
		duration time.Duration
	)
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post a scholarship and escrow its grants",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(cmd *cobra.Command, a *app, args []string) error {
			grantAmount, err := token.ParseAmount(amount, a.cfg.TokenDecimals)
			if err != nil {
				return err
			}
			end, err := parseEndDate(endDate, duration, time.Now())
			if err != nil {
				return err
			}
			ret, err := a.submit(
				cmd.Context(),
				contract.MethodPostScholarship,
				&contract.PostScholarshipArgs{
					Name:           name,
					Details:        details,
					GrantAmount:    grantAmount,
					NumberOfGrants: grants,
					EndDate:        end,
				},
			)
			if err != nil {
				return err
			}
			var id uint64
			if _, err := cbor.Decode(ret, &id); err != nil {
				return fmt.Errorf("decode scholarship id: %w", err)
			}
			if globalFlags.json {
				return printJSON(cmd.OutOrStdout(), map[string]uint64{"id": id})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "posted scholarship %d\n", id)
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "scholarship name")
	cmd.Flags().StringVar(&details, "details", "", "scholarship details")
	cmd.Flags().StringVar(&amount, "amount", "", "token amount of each grant")
	cmd.Flags().Uint32Var(&grants, "grants", 1, "number of grants")
	cmd.Flags().
		StringVar(&endDate, "end-date", "", "last day to apply, as an RFC3339 time")
	cmd.Flags().
		DurationVar(&duration, "duration", 0, "application window length from now")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func scholarshipsCommand() *cobra.Command {
	var (
		mine bool
		id   uint64
	)
	cmd := &cobra.Command{
		Use:   "scholarships",
		Short: "List scholarships",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(cmd *cobra.Command, a *app, args []string) error {
			var ret []contract.Scholarship
			switch {
			case cmd.Flags().Changed("id"):
				var tmp contract.Scholarship
				err := a.query(
					cmd.Context(),
					contract.MethodGetScholarship,
					&contract.ScholarshipIDArgs{ScholarshipID: id},
					&tmp,
				)
				if err != nil {
					return err
				}
				ret = append(ret, tmp)
			case mine:
				key, err := a.loadKey()
				if err != nil {
					return err
				}
				err = a.query(
					cmd.Context(),
					contract.MethodGetMyScholarships,
					&contract.IdentityArgs{Identity: key.Address()},
					&ret,
				)
				if err != nil {
					return err
				}
			default:
				err := a.query(
					cmd.Context(),
					contract.MethodGetScholarships,
					nil,
					&ret,
				)
				if err != nil {
					return err
				}
			}
			views := make([]scholarshipView, 0, len(ret))
			now := time.Now()
			for _, s := range ret {
				views = append(
					views,
					newScholarshipView(s, a.cfg.TokenDecimals, now),
				)
			}
			if globalFlags.json {
				return printJSON(cmd.OutOrStdout(), views)
			}
			return printScholarships(cmd.OutOrStdout(), views)
		}),
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "only scholarships created by the key")
	cmd.Flags().Uint64Var(&id, "id", 0, "show a single scholarship")
	return cmd
}

func printScholarships(w io.Writer, views []scholarshipView) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tGRANT\tREMAINING\tEND DATE\tACTIVE\tCREATOR")
	for _, v := range views {
		fmt.Fprintf(
			tw,
			"%d\t%s\t%s\t%d/%d\t%s\t%t\t%s\n",
			v.ID,
			v.Name,
			v.GrantAmount,
			v.GrantsRemaining,
			v.NumberOfGrants,
			v.EndDate,
			v.Active,
			v.Creator,
		)
	}
	return tw.Flush()
}
