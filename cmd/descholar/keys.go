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

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/descholar/internal/config"
	"github.com/blinklabs-io/descholar/keystore"
)

const defaultKeyFile = "descholar.skey"

func keygenCommand() *cobra.Command {
	var outFile string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new signing key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			path := outFile
			if path == "" {
				path = cfg.KeyFile
			}
			if path == "" {
				path = defaultKeyFile
			}
			key, err := keystore.Generate(nil)
			if err != nil {
				return err
			}
			if err := key.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(
				cmd.OutOrStdout(),
				"wrote %s and %s\naddress: %s\n",
				path,
				keystore.VerificationKeyPath(path),
				key.Address(),
			)
			return nil
		},
	}
	cmd.Flags().
		StringVarP(&outFile, "out", "o", "", "path of the signing key file to create")
	return cmd
}

func addressCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "address [key-file]",
		Short: "Print the address of a signing or verification key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			path := cfg.KeyFile
			if len(args) > 0 {
				path = args[0]
			}
			if path == "" {
				return errNoKeyFile
			}
			key, err := keystore.Load(path)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key.Address())
			return nil
		},
	}
}
