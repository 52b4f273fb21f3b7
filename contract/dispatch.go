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
	"math/big"

	"github.com/blinklabs-io/gouroboros/cbor"
)

// Method names accepted by Dispatch
const (
	MethodPostScholarship               = "post_scholarship"
	MethodApply                         = "apply"
	MethodApproveApplicant              = "approve_applicant"
	MethodRejectApplicant               = "reject_applicant"
	MethodGetScholarships               = "get_scholarships"
	MethodGetMyScholarships             = "get_my_scholarships"
	MethodGetScholarship                = "get_scholarship"
	MethodGetApplications               = "get_applications"
	MethodGetMyApplications             = "get_my_applications"
	MethodGetApplicationsForScholarship = "get_applications_for_scholarship"
)

var ErrUnknownMethod = errors.New("unknown method")

type PostScholarshipArgs struct {
	cbor.StructAsArray
	Name           string
	Details        string
	GrantAmount    *big.Int
	NumberOfGrants uint32
	EndDate        uint64
}

type ApplyArgs struct {
	cbor.StructAsArray
	ScholarshipID uint64
	Name          string
	Details       string
}

// DecisionArgs selects the application approved or rejected by the creator
type DecisionArgs struct {
	cbor.StructAsArray
	ScholarshipID uint64
	Applicant     Address
}

type IdentityArgs struct {
	cbor.StructAsArray
	Identity Address
}

type ScholarshipIDArgs struct {
	cbor.StructAsArray
	ScholarshipID uint64
}

// IsReadOnly reports whether method never writes contract state
func IsReadOnly(method string) bool {
	switch method {
	case MethodGetScholarships,
		MethodGetMyScholarships,
		MethodGetScholarship,
		MethodGetApplications,
		MethodGetMyApplications,
		MethodGetApplicationsForScholarship:
		return true
	default:
		return false
	}
}

// Known reports whether method is a contract entry point
func Known(method string) bool {
	switch method {
	case MethodPostScholarship,
		MethodApply,
		MethodApproveApplicant,
		MethodRejectApplicant:
		return true
	default:
		return IsReadOnly(method)
	}
}

func decodeArgs(method string, data []byte, dest any) error {
	if _, err := cbor.Decode(data, dest); err != nil {
		return fmt.Errorf("decode %s args: %w", method, err)
	}
	return nil
}

// Dispatch decodes CBOR arguments for method, runs it against env and
// returns the CBOR encoded result
func (s *Service) Dispatch(env Env, method string, args []byte) ([]byte, error) {
	var result any
	switch method {
	case MethodPostScholarship:
		var tmp PostScholarshipArgs
		if err := decodeArgs(method, args, &tmp); err != nil {
			return nil, err
		}
		id, err := s.PostScholarship(env, &tmp)
		if err != nil {
			return nil, err
		}
		result = id
	case MethodApply:
		var tmp ApplyArgs
		if err := decodeArgs(method, args, &tmp); err != nil {
			return nil, err
		}
		if err := s.Apply(env, &tmp); err != nil {
			return nil, err
		}
	case MethodApproveApplicant:
		var tmp DecisionArgs
		if err := decodeArgs(method, args, &tmp); err != nil {
			return nil, err
		}
		if err := s.ApproveApplicant(env, &tmp); err != nil {
			return nil, err
		}
	case MethodRejectApplicant:
		var tmp DecisionArgs
		if err := decodeArgs(method, args, &tmp); err != nil {
			return nil, err
		}
		if err := s.RejectApplicant(env, &tmp); err != nil {
			return nil, err
		}
	case MethodGetScholarships:
		ret, err := s.GetScholarships(env)
		if err != nil {
			return nil, err
		}
		result = ret
	case MethodGetMyScholarships:
		var tmp IdentityArgs
		if err := decodeArgs(method, args, &tmp); err != nil {
			return nil, err
		}
		ret, err := s.GetMyScholarships(env, tmp.Identity)
		if err != nil {
			return nil, err
		}
		result = ret
	case MethodGetScholarship:
		var tmp ScholarshipIDArgs
		if err := decodeArgs(method, args, &tmp); err != nil {
			return nil, err
		}
		ret, err := s.GetScholarship(env, tmp.ScholarshipID)
		if err != nil {
			return nil, err
		}
		result = ret
	case MethodGetApplications:
		ret, err := s.GetApplications(env)
		if err != nil {
			return nil, err
		}
		result = ret
	case MethodGetMyApplications:
		var tmp IdentityArgs
		if err := decodeArgs(method, args, &tmp); err != nil {
			return nil, err
		}
		ret, err := s.GetMyApplications(env, tmp.Identity)
		if err != nil {
			return nil, err
		}
		result = ret
	case MethodGetApplicationsForScholarship:
		var tmp ScholarshipIDArgs
		if err := decodeArgs(method, args, &tmp); err != nil {
			return nil, err
		}
		ret, err := s.GetApplicationsForScholarship(env, tmp.ScholarshipID)
		if err != nil {
			return nil, err
		}
		result = ret
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
	if result == nil {
		return nil, nil
	}
	return cbor.Encode(result)
}
