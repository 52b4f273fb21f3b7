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

// Package host runs the scholarship contract against a local database. It
// serializes invocations, verifies signatures, supplies ledger time and the
// escrow token, and journals every committed invocation.
package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/blinklabs-io/descholar/contract"
	"github.com/blinklabs-io/descholar/database"
	"github.com/blinklabs-io/descholar/database/models"
	"github.com/blinklabs-io/descholar/event"
	"github.com/blinklabs-io/descholar/token"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultContractAddress contract.Address = "descholar-escrow"
	DefaultTokenSymbol                      = "SCH"

	tracerName = "github.com/blinklabs-io/descholar/host"
)

var (
	ErrBadSignature  = errors.New("bad signature")
	ErrStaleNonce    = errors.New("stale nonce")
	ErrNotSigned     = errors.New("not signed by required address")
	ErrNotReadOnly   = errors.New("method is not read-only")
	ErrUnknownMethod = contract.ErrUnknownMethod
)

// InvokeFunc runs contract logic against the environment of one invocation
type InvokeFunc func(env contract.Env) ([]byte, error)

// CommittedEvent is the payload of bus events published after an invocation
// commits
type CommittedEvent struct {
	InvocationID uint
	Method       string
	LedgerTime   uint64
	Event        contract.Event
}

type Host struct {
	mu              sync.Mutex
	db              *database.Database
	service         *contract.Service
	logger          *slog.Logger
	promRegistry    prometheus.Registerer
	tracerProvider  trace.TracerProvider
	tracer          trace.Tracer
	metrics         *hostMetrics
	clock           Clock
	contractAddr    contract.Address
	tokenSymbol     string
	tokenIssuer     contract.Address
	eventBus        *event.EventBus
	tokenMiddleware func(contract.TokenClient) contract.TokenClient
}

func New(db *database.Database, opts ...HostOptionFunc) (*Host, error) {
	if db == nil {
		return nil, errors.New("host: database is required")
	}
	h := &Host{
		db:           db,
		clock:        SystemClock(),
		contractAddr: DefaultContractAddress,
		tokenSymbol:  DefaultTokenSymbol,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		h.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	h.logger = h.logger.With("component", "host")
	if h.contractAddr == "" {
		return nil, errors.New("host: contract address must not be empty")
	}
	if h.tracerProvider == nil {
		h.tracerProvider = otel.GetTracerProvider()
	}
	h.tracer = h.tracerProvider.Tracer(tracerName)
	if h.promRegistry != nil {
		h.initMetrics()
	}
	h.service = contract.NewService(h.logger)
	return h, nil
}

func (h *Host) ContractAddress() contract.Address {
	return h.contractAddr
}

func (h *Host) TokenSymbol() string {
	return h.tokenSymbol
}

func (h *Host) Service() *contract.Service {
	return h.service
}

// Invoke runs fn as one atomic invocation authorized by signers. The first
// signer is the invoker. Signers are trusted as given; use Submit for
// signature verification. Contract state, token balances and the journal
// entry are committed together, or not at all if fn fails.
func (h *Host) Invoke(
	ctx context.Context,
	method string,
	signers []contract.Address,
	fn InvokeFunc,
) ([]byte, error) {
	return h.invoke(ctx, method, signers, func(env *invocationEnv) ([]byte, error) {
		return fn(env)
	})
}

func (h *Host) invoke(
	ctx context.Context,
	method string,
	signers []contract.Address,
	fn func(*invocationEnv) ([]byte, error),
) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, span := h.tracer.Start(
		ctx,
		"host.invoke",
		trace.WithAttributes(
			attribute.String("descholar.method", method),
			attribute.Int("descholar.signers", len(signers)),
		),
	)
	defer span.End()

	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	ledgerTime := uint64(h.clock.Now().Unix()) //nolint:gosec
	var env *invocationEnv
	var result []byte
	var custody *big.Int
	inv := &models.Invocation{
		Method:     method,
		Signers:    joinAddresses(signers),
		LedgerTime: ledgerTime,
	}
	txn := h.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		env = h.newEnv(txn, ledgerTime, signers)
		var err error
		result, err = fn(env)
		if err != nil {
			return err
		}
		custody, err = env.ledger.Balance(h.contractAddr)
		if err != nil {
			return err
		}
		inv.Invoker = string(env.Invoker())
		inv.Nonce = env.nonce
		inv.CommittedAt = time.Now()
		for _, evt := range env.events {
			inv.Events = append(inv.Events, models.ContractEvent{
				Type:          string(evt.Type),
				ScholarshipID: evt.ScholarshipID,
				Actor:         string(evt.Actor),
				Subject:       string(evt.Subject),
				Amount:        amountString(evt.Amount),
				LedgerTime:    ledgerTime,
			})
		}
		return h.db.Metadata().AddInvocation(inv, txn.Metadata())
	})
	code := ErrorCode(err)
	if h.metrics != nil {
		h.metrics.invocations.WithLabelValues(method, code).Inc()
		h.metrics.duration.WithLabelValues(method).
			Observe(time.Since(start).Seconds())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, code)
		h.logger.Debug(
			"invocation failed",
			"method", method,
			"invoker", firstAddress(signers),
			"code", code,
			"error", err,
		)
		return nil, err
	}
	span.SetAttributes(attribute.Int("descholar.events", len(env.events)))
	if h.metrics != nil {
		h.metrics.custodyBalance.Set(bigToFloat(custody))
		h.metrics.lastLedgerTime.Set(float64(ledgerTime))
		for _, evt := range env.events {
			h.metrics.eventsCommitted.WithLabelValues(string(evt.Type)).Inc()
		}
	}
	h.logger.Info(
		"invocation committed",
		"method", method,
		"invoker", inv.Invoker,
		"ledger_time", ledgerTime,
		"events", len(env.events),
	)
	h.publish(inv, env.events)
	return result, nil
}

func (h *Host) publish(inv *models.Invocation, events []contract.Event) {
	if h.eventBus == nil {
		return
	}
	for _, evt := range events {
		evtType := event.EventType(evt.Type)
		h.eventBus.Publish(
			evtType,
			event.NewEvent(
				evtType,
				CommittedEvent{
					InvocationID: inv.ID,
					Method:       inv.Method,
					LedgerTime:   inv.LedgerTime,
					Event:        evt,
				},
			),
		)
	}
}

// View runs fn against a read-only snapshot of the current state. fn sees
// no invoker and any write fails.
func (h *Host) View(ctx context.Context, fn InvokeFunc) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, span := h.tracer.Start(ctx, "host.view")
	defer span.End()
	txn := h.db.Transaction(false)
	defer txn.Release()
	ledgerTime := uint64(h.clock.Now().Unix()) //nolint:gosec
	ret, err := fn(h.newEnv(txn, ledgerTime, nil))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorCode(err))
		return nil, err
	}
	return ret, nil
}

// Balance returns the token balance of addr
func (h *Host) Balance(
	ctx context.Context,
	addr contract.Address,
) (*big.Int, error) {
	var ret *big.Int
	_, err := h.View(ctx, func(env contract.Env) ([]byte, error) {
		var err error
		ret, err = env.Token().Balance(addr)
		return nil, err
	})
	return ret, err
}

// Custody returns the token balance held in escrow by the contract
func (h *Host) Custody(ctx context.Context) (*big.Int, error) {
	return h.Balance(ctx, h.contractAddr)
}

// Mint creates tokens for addr as the configured issuer
func (h *Host) Mint(
	ctx context.Context,
	to contract.Address,
	amount *big.Int,
) error {
	_, err := h.invoke(
		ctx,
		MethodTokenMint,
		[]contract.Address{h.tokenIssuer},
		func(env *invocationEnv) ([]byte, error) {
			return nil, env.ledger.Mint(to, amount)
		},
	)
	return err
}

// History returns the most recent committed invocations, newest first
func (h *Host) History(limit int) ([]models.Invocation, error) {
	return h.db.Metadata().GetInvocations(limit)
}

// Events returns committed contract events matching filter, oldest first
func (h *Host) Events(filter models.EventFilter) ([]models.ContractEvent, error) {
	return h.db.Metadata().GetEvents(filter)
}

// ErrorCode extends contract.ErrorCode with host and token failures
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrBadSignature):
		return "BadSignature"
	case errors.Is(err, ErrStaleNonce):
		return "StaleNonce"
	case errors.Is(err, ErrNotReadOnly):
		return "NotReadOnly"
	}
	if code := contract.ErrorCode(err); code != "Internal" {
		return code
	}
	switch {
	case errors.Is(err, token.ErrInsufficientBalance):
		return "InsufficientBalance"
	case errors.Is(err, token.ErrInvalidAmount):
		return "InvalidAmount"
	case errors.Is(err, token.ErrNotAuthorized), errors.Is(err, ErrNotSigned):
		return "Unauthorized"
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return "Canceled"
	default:
		return "Internal"
	}
}

func joinAddresses(addrs []contract.Address) string {
	tmp := make([]string, len(addrs))
	for i, addr := range addrs {
		tmp[i] = string(addr)
	}
	return strings.Join(tmp, ",")
}

func firstAddress(addrs []contract.Address) contract.Address {
	if len(addrs) == 0 {
		return ""
	}
	return addrs[0]
}

func amountString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}

// String is used in log output
func (e CommittedEvent) String() string {
	return fmt.Sprintf(
		"%s scholarship=%d actor=%s subject=%s amount=%s",
		e.Event.Type,
		e.Event.ScholarshipID,
		e.Event.Actor,
		e.Event.Subject,
		amountString(e.Event.Amount),
	)
}
