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
	"bytes"
	"errors"

	"github.com/blinklabs-io/descholar/database"
	"github.com/blinklabs-io/descholar/database/types"
)

// Key prefixes within the blob store
var (
	contractPrefix = []byte("contract/")
	noncePrefix    = []byte("host/nonce/")
)

// txnStorage exposes a key range of a database transaction. Keys passed in
// and handed out are relative to prefix.
type txnStorage struct {
	txn    *database.Txn
	prefix []byte
}

func (s txnStorage) key(key []byte) []byte {
	return append(bytes.Clone(s.prefix), key...)
}

func (s txnStorage) Get(key []byte) ([]byte, bool, error) {
	val, err := s.txn.BlobGet(s.key(key))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return val, true, nil
}

func (s txnStorage) Set(key, value []byte) error {
	return s.txn.BlobSet(s.key(key), value)
}

func (s txnStorage) Iterate(
	prefix []byte,
	fn func(key, value []byte) error,
) error {
	return s.txn.BlobIterate(
		s.key(prefix),
		func(key, value []byte) error {
			return fn(key[len(s.prefix):], value)
		},
	)
}
