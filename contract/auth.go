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
	"fmt"
)

// requireInvoker returns the authenticated invoker of the current call
func requireInvoker(env Env) (Address, error) {
	invoker := env.Invoker()
	if invoker == "" {
		return "", fmt.Errorf("%w: no authenticated invoker", ErrUnauthorized)
	}
	if err := requireAuth(env, invoker); err != nil {
		return "", err
	}
	return invoker, nil
}

// requireAuth fails unless identity authorized the current invocation
func requireAuth(env Env, identity Address) error {
	if identity == "" {
		return fmt.Errorf("%w: empty identity", ErrUnauthorized)
	}
	if err := env.RequireAuth(identity); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnauthorized, identity, err)
	}
	return nil
}

// requireCreator fails unless the authenticated invoker created s
func requireCreator(env Env, s *Scholarship) (Address, error) {
	invoker, err := requireInvoker(env)
	if err != nil {
		return "", err
	}
	if invoker != s.Creator {
		return "", fmt.Errorf(
			"%w: %s is not the creator of scholarship %d",
			ErrUnauthorized,
			invoker,
			s.ID,
		)
	}
	return invoker, nil
}
