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
	"io"
	"log/slog"
	"math/big"
)

// Service implements the scholarship contract entry points. It holds no
// state of its own: every call reads and writes through the Env it is given.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Service{
		logger: logger.With("component", "contract"),
	}
}

// PostScholarship escrows GrantAmount * NumberOfGrants from the invoker and
// records a new scholarship owned by them. It returns the new scholarship id.
func (s *Service) PostScholarship(
	env Env,
	args *PostScholarshipArgs,
) (uint64, error) {
	sch, err := newRegistry(env).post(args)
	if err != nil {
		return 0, err
	}
	s.logger.Debug(
		"posted scholarship",
		"id", sch.ID,
		"creator", sch.Creator,
		"grants", sch.NumberOfGrants,
	)
	return sch.ID, nil
}

// Apply records a pending application from the invoker
func (s *Service) Apply(env Env, args *ApplyArgs) error {
	app, err := newLedger(env).apply(args)
	if err != nil {
		return err
	}
	s.logger.Debug(
		"application submitted",
		"scholarship_id", app.ScholarshipID,
		"applicant", app.Applicant,
	)
	return nil
}

// ApproveApplicant approves a pending application and pays out one grant
func (s *Service) ApproveApplicant(env Env, args *DecisionArgs) error {
	if err := newLedger(env).approve(args); err != nil {
		return err
	}
	s.logger.Debug(
		"application approved",
		"scholarship_id", args.ScholarshipID,
		"applicant", args.Applicant,
	)
	return nil
}

// RejectApplicant rejects a pending application
func (s *Service) RejectApplicant(env Env, args *DecisionArgs) error {
	if err := newLedger(env).reject(args); err != nil {
		return err
	}
	s.logger.Debug(
		"application rejected",
		"scholarship_id", args.ScholarshipID,
		"applicant", args.Applicant,
	)
	return nil
}

func (s *Service) GetScholarships(env Env) ([]Scholarship, error) {
	return newRegistry(env).list("")
}

func (s *Service) GetMyScholarships(
	env Env,
	creator Address,
) ([]Scholarship, error) {
	if creator == "" {
		return []Scholarship{}, nil
	}
	return newRegistry(env).list(creator)
}

func (s *Service) GetScholarship(env Env, id uint64) (*Scholarship, error) {
	return newRegistry(env).get(id)
}

func (s *Service) GetApplications(env Env) ([]Application, error) {
	return newLedger(env).list(nil)
}

func (s *Service) GetMyApplications(
	env Env,
	applicant Address,
) ([]Application, error) {
	if applicant == "" {
		return []Application{}, nil
	}
	return newLedger(env).list(func(a *Application) bool {
		return a.Applicant == applicant
	})
}

func (s *Service) GetApplicationsForScholarship(
	env Env,
	id uint64,
) ([]Application, error) {
	return newLedger(env).forScholarship(id)
}

// Custody returns the contract's custody balance
func (s *Service) Custody(env Env) (*big.Int, error) {
	return (escrow{env: env}).balance()
}
