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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/blinklabs-io/descholar/contract"
	"github.com/blinklabs-io/descholar/database"
	"github.com/blinklabs-io/descholar/event"
	"github.com/blinklabs-io/descholar/host"
	"github.com/blinklabs-io/descholar/internal/config"
	"github.com/blinklabs-io/descholar/keystore"
)

const shutdownTimeout = 5 * time.Second

var errNoKeyFile = errors.New("no key file given, use --key or keyFile in the config")

// app holds everything a subcommand needs to talk to the local contract host
type app struct {
	cfg             *config.Config
	logger          *slog.Logger
	promRegistry    *prometheus.Registry
	db              *database.Database
	bus             *event.EventBus
	host            *host.Host
	shutdownTracing func(context.Context) error
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return nil, errors.New("no config found in context")
	}
	logger := commonRun()
	shutdownTracing, err := setupTracing(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}
	promRegistry := prometheus.NewRegistry()
	db, err := database.New(
		&database.Config{
			Logger:         logger,
			PromRegistry:   promRegistry,
			DataDir:        cfg.DataDir,
			BlobCacheSize:  cfg.BlobCacheSize,
			BlobGcDisabled: cfg.BlobGcDisabled,
		},
	)
	if err != nil {
		_ = shutdownTracing(cmd.Context())
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a := &app{
		cfg:             cfg,
		logger:          logger,
		promRegistry:    promRegistry,
		db:              db,
		bus:             event.NewEventBus(promRegistry, logger),
		shutdownTracing: shutdownTracing,
	}
	a.subscribeEvents()
	a.host, err = host.New(
		db,
		host.WithLogger(logger),
		host.WithPromRegistry(promRegistry),
		host.WithContractAddress(contract.Address(cfg.ContractAddress)),
		host.WithToken(cfg.TokenSymbol, contract.Address(cfg.TokenIssuer)),
		host.WithEventBus(a.bus),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// subscribeEvents logs every committed contract event
func (a *app) subscribeEvents() {
	for _, evtType := range []contract.EventType{
		contract.EventScholarshipPosted,
		contract.EventApplicationSubmitted,
		contract.EventApplicationApproved,
		contract.EventApplicationRejected,
	} {
		a.bus.SubscribeFunc(
			event.EventType(evtType),
			func(evt event.Event) {
				committed, ok := evt.Data.(host.CommittedEvent)
				if !ok {
					return
				}
				a.logger.Info(
					"contract event: "+committed.String(),
					"component", programName,
					"invocation", committed.InvocationID,
				)
			},
		)
	}
}

func (a *app) Close() {
	// Stop waits for the event handlers to drain
	a.bus.Stop()
	if err := a.db.Close(); err != nil {
		a.logger.Error(
			fmt.Sprintf("failed to close database: %s", err),
			"component", programName,
		)
	}
	if a.cfg.MetricsFile != "" {
		err := prometheus.WriteToTextfile(a.cfg.MetricsFile, a.promRegistry)
		if err != nil {
			a.logger.Error(
				fmt.Sprintf("failed to write metrics: %s", err),
				"component", programName,
			)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.shutdownTracing(ctx); err != nil {
		a.logger.Error(
			fmt.Sprintf("failed to flush traces: %s", err),
			"component", programName,
		)
	}
}

func (a *app) loadKey() (*keystore.Key, error) {
	if a.cfg.KeyFile == "" {
		return nil, errNoKeyFile
	}
	key, err := keystore.Load(a.cfg.KeyFile)
	if err != nil {
		return nil, err
	}
	if !key.CanSign() {
		return nil, fmt.Errorf("%s: %w", a.cfg.KeyFile, keystore.ErrNoSigningKey)
	}
	return key, nil
}

// submit signs method with the configured key and runs it against the host
func (a *app) submit(
	ctx context.Context,
	method string,
	args any,
) ([]byte, error) {
	key, err := a.loadKey()
	if err != nil {
		return nil, err
	}
	nonce, err := a.host.NextNonce(ctx, key.Address())
	if err != nil {
		return nil, err
	}
	envelope, err := host.NewEnvelope(
		a.host.ContractAddress(),
		method,
		args,
		nonce,
		key,
	)
	if err != nil {
		return nil, err
	}
	ret, err := a.host.Submit(ctx, envelope)
	if err != nil {
		return nil, fmt.Errorf("%s failed (%s): %w", method, host.ErrorCode(err), err)
	}
	return ret, nil
}

// query runs a read-only method and decodes its result into dest
func (a *app) query(
	ctx context.Context,
	method string,
	args any,
	dest any,
) error {
	argBytes, err := host.EncodeArgs(args)
	if err != nil {
		return err
	}
	ret, err := a.host.Query(ctx, method, argBytes)
	if err != nil {
		return fmt.Errorf("%s failed (%s): %w", method, host.ErrorCode(err), err)
	}
	if _, err := cbor.Decode(ret, dest); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// runWithApp opens the app for the duration of fn
func runWithApp(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}

func parseAddress(s string) (contract.Address, error) {
	if !keystore.ValidAddress(s) {
		return "", fmt.Errorf("invalid address: %q", s)
	}
	return contract.Address(s), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
