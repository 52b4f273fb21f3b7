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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/descholar/contract"
)

type applicationView struct {
	ID            uint64 `json:"id"`
	ScholarshipID uint64 `json:"scholarshipId"`
	Applicant     string `json:"applicant"`
	Name          string `json:"name"`
	Details       string `json:"details"`
	Status        string `json:"status"`
	AppliedAt     string `json:"appliedAt"`
}

func newApplicationView(item contract.Application) applicationView {
	return applicationView{
		ID:            item.ID,
		ScholarshipID: item.ScholarshipID,
		Applicant:     string(item.Applicant),
		Name:          item.Name,
		Details:       item.Details,
		Status:        item.Status.String(),
		AppliedAt:     formatLedgerTime(item.AppliedAt),
	}
}

func applyCommand() *cobra.Command {
	var (
		name    string
		details string
	)
	cmd := &cobra.Command{
		Use:   "apply <scholarship-id>",
		Short: "Apply for a grant of a scholarship",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseScholarshipID(args[0])
			if err != nil {
				return err
			}
			_, err = a.submit(
				cmd.Context(),
				contract.MethodApply,
				&contract.ApplyArgs{
					ScholarshipID: id,
					Name:          name,
					Details:       details,
				},
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied to scholarship %d\n", id)
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "applicant name")
	cmd.Flags().StringVar(&details, "details", "", "application details")
	return cmd
}

func decisionCommand(use, short, method, verb string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <scholarship-id> <applicant>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: runWithApp(func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseScholarshipID(args[0])
			if err != nil {
				return err
			}
			applicant, err := parseAddress(args[1])
			if err != nil {
				return err
			}
			_, err = a.submit(
				cmd.Context(),
				method,
				&contract.DecisionArgs{
					ScholarshipID: id,
					Applicant:     applicant,
				},
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(
				cmd.OutOrStdout(),
				"%s %s for scholarship %d\n",
				verb,
				applicant,
				id,
			)
			return nil
		}),
	}
}

func approveCommand() *cobra.Command {
	return decisionCommand(
		"approve",
		"Approve an application and pay out one grant",
		contract.MethodApproveApplicant,
		"approved",
	)
}

func rejectCommand() *cobra.Command {
	return decisionCommand(
		"reject",
		"Reject an application",
		contract.MethodRejectApplicant,
		"rejected",
	)
}

func applicationsCommand() *cobra.Command {
	var (
		mine          bool
		scholarshipID uint64
	)
	cmd := &cobra.Command{
		Use:   "applications",
		Short: "List applications",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(cmd *cobra.Command, a *app, args []string) error {
			var (
				ret    []contract.Application
				method string
				qArgs  any
			)
			switch {
			case cmd.Flags().Changed("scholarship"):
				method = contract.MethodGetApplicationsForScholarship
				qArgs = &contract.ScholarshipIDArgs{ScholarshipID: scholarshipID}
			case mine:
				key, err := a.loadKey()
				if err != nil {
					return err
				}
				method = contract.MethodGetMyApplications
				qArgs = &contract.IdentityArgs{Identity: key.Address()}
			default:
				method = contract.MethodGetApplications
			}
			if err := a.query(cmd.Context(), method, qArgs, &ret); err != nil {
				return err
			}
			views := make([]applicationView, 0, len(ret))
			for _, item := range ret {
				views = append(views, newApplicationView(item))
			}
			if globalFlags.json {
				return printJSON(cmd.OutOrStdout(), views)
			}
			return printApplications(cmd.OutOrStdout(), views)
		}),
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "only applications made by the key")
	cmd.Flags().
		Uint64Var(&scholarshipID, "scholarship", 0, "only applications for this scholarship")
	return cmd
}

func printApplications(w io.Writer, views []applicationView) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSCHOLARSHIP\tSTATUS\tNAME\tAPPLIED\tAPPLICANT")
	for _, v := range views {
		fmt.Fprintf(
			tw,
			"%d\t%d\t%s\t%s\t%s\t%s\n",
			v.ID,
			v.ScholarshipID,
			v.Status,
			v.Name,
			v.AppliedAt,
			v.Applicant,
		)
	}
	return tw.Flush()
}
