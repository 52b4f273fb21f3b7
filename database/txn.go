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

package database

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/descholar/database/types"
)

// ErrPartialCommit means the blob store committed but the metadata store did
// not. Contract state is durable; the journal is missing the entry.
var ErrPartialCommit = errors.New("partial commit")

// Txn spans the blob and metadata stores. A read-write Txn commits both or,
// on error before the blob commit, neither. Read-only transactions hold a
// blob snapshot only.
type Txn struct {
	db        *Database
	blob      types.Txn
	metadata  types.Txn
	readWrite bool
	mu        sync.Mutex
	done      bool
}

func NewTxn(db *Database, readWrite bool) *Txn {
	t := &Txn{
		db:        db,
		blob:      db.Blob().NewTransaction(readWrite),
		readWrite: readWrite,
	}
	if readWrite {
		t.metadata = db.Metadata().Transaction()
	}
	return t
}

// Metadata returns the metadata store transaction, or nil when read-only
func (t *Txn) Metadata() types.Txn {
	return t.metadata
}

// Blob returns the blob store transaction
func (t *Txn) Blob() types.Txn {
	return t.blob
}

// BlobGet returns types.ErrBlobKeyNotFound if key is not set
func (t *Txn) BlobGet(key []byte) ([]byte, error) {
	return t.db.Blob().Get(t.blob, key)
}

func (t *Txn) BlobSet(key, val []byte) error {
	if !t.readWrite {
		return types.ErrReadOnlyTxn
	}
	return t.db.Blob().Set(t.blob, key, val)
}

// BlobIterate calls fn for every key with the given prefix, in key order.
// Iteration stops at the first error returned by fn.
func (t *Txn) BlobIterate(prefix []byte, fn func(key, val []byte) error) error {
	iter := t.db.Blob().NewIterator(
		t.blob,
		types.BlobIteratorOptions{Prefix: prefix},
	)
	defer iter.Close()
	for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
		item := iter.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := fn(item.Key(), val); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Do runs fn and commits, or rolls back if fn returns an error
func (t *Txn) Do(fn func(*Txn) error) error {
	if err := fn(t); err != nil {
		if rbErr := t.Rollback(); rbErr != nil {
			return fmt.Errorf(
				"rollback failed: %w: original error: %w",
				rbErr,
				err,
			)
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

// Commit stamps both stores with the same commit time, then commits the blob
// store followed by the metadata store. Committing a read-only Txn releases
// it.
func (t *Txn) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	if !t.readWrite {
		return t.rollback()
	}
	if err := t.db.updateCommitTimestamp(t, time.Now().UnixMilli()); err != nil {
		return errors.Join(
			fmt.Errorf("failed to update commit timestamp: %w", err),
			t.rollback(),
		)
	}
	if err := t.blob.Commit(); err != nil {
		return errors.Join(
			fmt.Errorf("blob commit failed: %w", err),
			t.rollback(),
		)
	}
	t.done = true
	if err := t.metadata.Commit(); err != nil {
		// The stores now disagree until the commit timestamp check on the
		// next open flags it
		t.db.logger.Error(
			"blob committed but metadata commit failed",
			"error", err,
		)
		_ = t.metadata.Rollback()
		return fmt.Errorf("%w: %w", ErrPartialCommit, err)
	}
	return nil
}

func (t *Txn) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rollback()
}

func (t *Txn) rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	var errs []error
	if err := t.blob.Rollback(); err != nil {
		errs = append(errs, fmt.Errorf("blob rollback: %w", err))
	}
	if t.metadata != nil {
		if err := t.metadata.Rollback(); err != nil {
			errs = append(errs, fmt.Errorf("metadata rollback: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Release discards the transaction, logging rather than returning any error.
// It is a no-op after Commit, so it is safe to defer.
func (t *Txn) Release() {
	if err := t.Rollback(); err != nil {
		t.db.logger.Debug(
			"transaction release failed",
			"error", err,
			"read_write", t.readWrite,
		)
	}
}
