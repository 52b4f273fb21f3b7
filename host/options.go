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

package host

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/blinklabs-io/descholar/contract"
	"github.com/blinklabs-io/descholar/event"
)

type HostOptionFunc func(*Host)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) HostOptionFunc {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) HostOptionFunc {
	return func(h *Host) {
		h.promRegistry = registry
	}
}

// WithTracerProvider specifies the OpenTelemetry tracer provider. The global
// provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) HostOptionFunc {
	return func(h *Host) {
		h.tracerProvider = tp
	}
}

// WithClock specifies the source of ledger time
func WithClock(clock Clock) HostOptionFunc {
	return func(h *Host) {
		h.clock = clock
	}
}

// WithContractAddress specifies the address of the contract's custody account
func WithContractAddress(addr contract.Address) HostOptionFunc {
	return func(h *Host) {
		h.contractAddr = addr
	}
}

// WithToken specifies the symbol of the escrowed token and the address
// allowed to mint it
func WithToken(symbol string, issuer contract.Address) HostOptionFunc {
	return func(h *Host) {
		h.tokenSymbol = symbol
		h.tokenIssuer = issuer
	}
}

// WithEventBus specifies the bus that receives committed contract events
func WithEventBus(eventBus *event.EventBus) HostOptionFunc {
	return func(h *Host) {
		h.eventBus = eventBus
	}
}

// WithTokenMiddleware wraps the token client handed to the contract on each
// invocation
func WithTokenMiddleware(
	fn func(contract.TokenClient) contract.TokenClient,
) HostOptionFunc {
	return func(h *Host) {
		h.tokenMiddleware = fn
	}
}
