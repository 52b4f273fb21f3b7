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

// ledger owns application records and their status transitions
type ledger struct {
	env Env
	st  store
	reg registry
}

func newLedger(env Env) ledger {
	return ledger{
		env: env,
		st:  store{s: env.Storage()},
		reg: newRegistry(env),
	}
}

func (l ledger) apply(args *ApplyArgs) (*Application, error) {
	applicant, err := requireInvoker(l.env)
	if err != nil {
		return nil, err
	}
	s, err := l.reg.get(args.ScholarshipID)
	if err != nil {
		return nil, err
	}
	now := l.env.LedgerTimestamp()
	if s.Expired(now) {
		return nil, fmt.Errorf(
			"%w: scholarship %d ended at %d",
			ErrScholarshipExpired,
			s.ID,
			s.EndDate,
		)
	}
	_, exists, err := l.st.getApplication(s.ID, applicant)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf(
			"%w: %s to scholarship %d",
			ErrAlreadyApplied,
			applicant,
			s.ID,
		)
	}
	id, err := l.st.nextID(keyApplicationCounter)
	if err != nil {
		return nil, err
	}
	app := &Application{
		ID:            id,
		ScholarshipID: s.ID,
		Applicant:     applicant,
		Name:          args.Name,
		Details:       args.Details,
		Status:        StatusPending,
		AppliedAt:     now,
	}
	if err := l.st.putApplication(app); err != nil {
		return nil, err
	}
	l.env.Publish(Event{
		Type:          EventApplicationSubmitted,
		ScholarshipID: s.ID,
		Actor:         applicant,
	})
	return app, nil
}

// pending loads the scholarship and the applicant's pending application after
// checking that the invoker is the scholarship's creator
func (l ledger) pending(
	args *DecisionArgs,
) (*Scholarship, *Application, Address, error) {
	s, err := l.reg.get(args.ScholarshipID)
	if err != nil {
		return nil, nil, "", err
	}
	creator, err := requireCreator(l.env, s)
	if err != nil {
		return nil, nil, "", err
	}
	app, ok, err := l.st.getApplication(s.ID, args.Applicant)
	if err != nil {
		return nil, nil, "", err
	}
	if !ok {
		return nil, nil, "", fmt.Errorf(
			"%w: %s for scholarship %d",
			ErrApplicationNotFound,
			args.Applicant,
			s.ID,
		)
	}
	if app.Status.Terminal() {
		return nil, nil, "", fmt.Errorf(
			"%w: %s for scholarship %d is %s",
			ErrAlreadyProcessed,
			args.Applicant,
			s.ID,
			app.Status,
		)
	}
	return s, app, creator, nil
}

// transition moves app out of Pending into the given terminal status
func transition(app *Application, to ApplicationStatus) error {
	switch app.Status {
	case StatusPending:
	case StatusApproved, StatusRejected:
		return fmt.Errorf("%w: status %s", ErrAlreadyProcessed, app.Status)
	default:
		return fmt.Errorf("%w: unknown status %d", ErrAlreadyProcessed, app.Status)
	}
	switch to {
	case StatusApproved, StatusRejected:
		app.Status = to
		return nil
	case StatusPending:
		return fmt.Errorf("invalid transition to %s", to)
	default:
		return fmt.Errorf("invalid transition to status %d", to)
	}
}

func (l ledger) approve(args *DecisionArgs) error {
	s, app, creator, err := l.pending(args)
	if err != nil {
		return err
	}
	if s.GrantsRemaining == 0 {
		return fmt.Errorf("%w: scholarship %d", ErrNoGrantsAvailable, s.ID)
	}
	if err := transition(app, StatusApproved); err != nil {
		return err
	}
	if err := l.st.putApplication(app); err != nil {
		return err
	}
	if err := (escrow{env: l.env}).push(app.Applicant, s.GrantAmount); err != nil {
		return err
	}
	if err := l.reg.decrementGrant(s); err != nil {
		return err
	}
	l.env.Publish(Event{
		Type:          EventApplicationApproved,
		ScholarshipID: s.ID,
		Actor:         creator,
		Subject:       app.Applicant,
		Amount:        s.GrantAmount,
	})
	return nil
}

func (l ledger) reject(args *DecisionArgs) error {
	s, app, creator, err := l.pending(args)
	if err != nil {
		return err
	}
	if err := transition(app, StatusRejected); err != nil {
		return err
	}
	if err := l.st.putApplication(app); err != nil {
		return err
	}
	l.env.Publish(Event{
		Type:          EventApplicationRejected,
		ScholarshipID: s.ID,
		Actor:         creator,
		Subject:       app.Applicant,
	})
	return nil
}

func (l ledger) list(filter func(*Application) bool) ([]Application, error) {
	return l.st.applications(prefixApplication, filter)
}

// forScholarship returns an empty list for an unknown scholarship id
func (l ledger) forScholarship(id uint64) ([]Application, error) {
	return l.st.applications(applicationPrefix(id), nil)
}
