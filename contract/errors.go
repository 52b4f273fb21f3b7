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

package contract

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrScholarshipNotFound = errors.New("scholarship not found")
	ErrApplicationNotFound = errors.New("application not found")
	ErrScholarshipExpired  = errors.New("scholarship expired")
	ErrAlreadyApplied      = errors.New("already applied")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrNoGrantsAvailable   = errors.New("no grants available")

	// ErrAlreadyProcessed is returned when deciding on an application that
	// is no longer pending. It also matches ErrApplicationNotFound.
	ErrAlreadyProcessed = fmt.Errorf(
		"%w: application already processed",
		ErrApplicationNotFound,
	)
	// ErrTransferIntegrity is returned when a transfer reports success but
	// the custody balance did not move by the expected amount. It also
	// matches ErrInsufficientFunds.
	ErrTransferIntegrity = fmt.Errorf(
		"%w: transfer amount not received",
		ErrInsufficientFunds,
	)
)

// ErrorCode returns a stable name for err, suitable for metric labels and
// exit status reporting. Subtypes are checked before their parents.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAlreadyProcessed):
		return "AlreadyProcessed"
	case errors.Is(err, ErrTransferIntegrity):
		return "TransferIntegrity"
	case errors.Is(err, ErrInvalidAmount):
		return "InvalidAmount"
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ErrScholarshipNotFound):
		return "ScholarshipNotFound"
	case errors.Is(err, ErrApplicationNotFound):
		return "ApplicationNotFound"
	case errors.Is(err, ErrScholarshipExpired):
		return "ScholarshipExpired"
	case errors.Is(err, ErrAlreadyApplied):
		return "AlreadyApplied"
	case errors.Is(err, ErrInsufficientFunds):
		return "InsufficientFunds"
	case errors.Is(err, ErrNoGrantsAvailable):
		return "NoGrantsAvailable"
	case errors.Is(err, ErrUnknownMethod):
		return "UnknownMethod"
	default:
		return "Internal"
	}
}
