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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/blinklabs-io/gouroboros/cbor"
)

var (
	keyScholarshipCounter = []byte("scholarship/counter")
	prefixScholarship     = []byte("scholarship/item/")
	keyApplicationCounter = []byte("application/counter")
	prefixApplication     = []byte("application/item/")
)

var errCorruptRecord = errors.New("corrupt record")

func uint64Bytes(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func scholarshipKey(id uint64) []byte {
	return append(bytes.Clone(prefixScholarship), uint64Bytes(id)...)
}

func applicationPrefix(scholarshipID uint64) []byte {
	ret := append(bytes.Clone(prefixApplication), uint64Bytes(scholarshipID)...)
	return append(ret, '/')
}

func applicationKey(scholarshipID uint64, applicant Address) []byte {
	return append(applicationPrefix(scholarshipID), applicant...)
}

// store maps contract records onto the invocation's key-value storage
type store struct {
	s Storage
}

func (st store) getUint64(key []byte) (uint64, error) {
	val, ok, err := st.s.Get(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("%w: counter %q", errCorruptRecord, key)
	}
	return binary.BigEndian.Uint64(val), nil
}

// nextID advances the counter at key and returns the new value
func (st store) nextID(key []byte) (uint64, error) {
	last, err := st.getUint64(key)
	if err != nil {
		return 0, err
	}
	if last == ^uint64(0) {
		return 0, fmt.Errorf("%w: counter %q", ErrOverflow, key)
	}
	next := last + 1
	if err := st.s.Set(key, uint64Bytes(next)); err != nil {
		return 0, err
	}
	return next, nil
}

func (st store) getScholarship(id uint64) (*Scholarship, error) {
	val, ok, err := st.s.Get(scholarshipKey(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrScholarshipNotFound, id)
	}
	var ret Scholarship
	if _, err := cbor.Decode(val, &ret); err != nil {
		return nil, fmt.Errorf("%w: scholarship %d: %w", errCorruptRecord, id, err)
	}
	return &ret, nil
}

func (st store) putScholarship(s *Scholarship) error {
	val, err := cbor.Encode(s)
	if err != nil {
		return err
	}
	return st.s.Set(scholarshipKey(s.ID), val)
}

// scholarships returns all scholarships accepted by filter, ordered by id
func (st store) scholarships(filter func(*Scholarship) bool) ([]Scholarship, error) {
	ret := []Scholarship{}
	err := st.s.Iterate(prefixScholarship, func(key, val []byte) error {
		var tmp Scholarship
		if _, err := cbor.Decode(val, &tmp); err != nil {
			return fmt.Errorf("%w: key %x: %w", errCorruptRecord, key, err)
		}
		if filter == nil || filter(&tmp) {
			ret = append(ret, tmp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (st store) getApplication(
	scholarshipID uint64,
	applicant Address,
) (*Application, bool, error) {
	val, ok, err := st.s.Get(applicationKey(scholarshipID, applicant))
	if err != nil || !ok {
		return nil, false, err
	}
	var ret Application
	if _, err := cbor.Decode(val, &ret); err != nil {
		return nil, false, fmt.Errorf(
			"%w: application %d/%s: %w",
			errCorruptRecord,
			scholarshipID,
			applicant,
			err,
		)
	}
	return &ret, true, nil
}

func (st store) putApplication(a *Application) error {
	val, err := cbor.Encode(a)
	if err != nil {
		return err
	}
	return st.s.Set(applicationKey(a.ScholarshipID, a.Applicant), val)
}

// applications returns the applications under prefix accepted by filter,
// ordered by application id
func (st store) applications(
	prefix []byte,
	filter func(*Application) bool,
) ([]Application, error) {
	ret := []Application{}
	err := st.s.Iterate(prefix, func(key, val []byte) error {
		var tmp Application
		if _, err := cbor.Decode(val, &tmp); err != nil {
			return fmt.Errorf("%w: key %x: %w", errCorruptRecord, key, err)
		}
		if filter == nil || filter(&tmp) {
			ret = append(ret, tmp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(ret, func(a, b Application) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return ret, nil
}
