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

package database_test

import (
	"errors"
	"testing"
	"time"

	"github.com/blinklabs-io/descholar/database"
	"github.com/blinklabs-io/descholar/database/models"
	"github.com/blinklabs-io/descholar/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dbConfig = &database.Config{
	BlobCacheSize: 1 << 20,
	Logger:        nil,
	PromRegistry:  nil,
	DataDir:       "",
}

func newTestDatabase(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(dbConfig)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func TestTxnDoCommitsBothStores(t *testing.T) {
	db := newTestDatabase(t)
	txn := db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		if err := txn.BlobSet([]byte("k"), []byte("v")); err != nil {
			return err
		}
		return db.Metadata().AddInvocation(
			&models.Invocation{Method: "apply", CommittedAt: time.Now()},
			txn.Metadata(),
		)
	})
	require.NoError(t, err)

	readTxn := db.Transaction(false)
	defer readTxn.Release()
	val, err := readTxn.BlobGet([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)

	invs, err := db.Metadata().GetInvocations(0)
	require.NoError(t, err)
	assert.Len(t, invs, 1)

	// Both stores carry the same commit timestamp
	blobTs, err := db.Blob().GetCommitTimestamp()
	require.NoError(t, err)
	metaTs, err := db.Metadata().GetCommitTimestamp()
	require.NoError(t, err)
	assert.NotZero(t, blobTs)
	assert.Equal(t, blobTs, metaTs)
}

func TestTxnDoRollsBackBothStores(t *testing.T) {
	db := newTestDatabase(t)
	testErr := errors.New("boom")
	txn := db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		if err := txn.BlobSet([]byte("k"), []byte("v")); err != nil {
			return err
		}
		if err := db.Metadata().AddInvocation(
			&models.Invocation{Method: "apply", CommittedAt: time.Now()},
			txn.Metadata(),
		); err != nil {
			return err
		}
		return testErr
	})
	require.ErrorIs(t, err, testErr)

	readTxn := db.Transaction(false)
	defer readTxn.Release()
	_, err = readTxn.BlobGet([]byte("k"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)

	invs, err := db.Metadata().GetInvocations(0)
	require.NoError(t, err)
	assert.Empty(t, invs)
}

func TestReadOnlyTxnRejectsWrites(t *testing.T) {
	db := newTestDatabase(t)
	txn := db.Transaction(false)
	defer txn.Release()
	assert.Nil(t, txn.Metadata())
	require.ErrorIs(t, txn.BlobSet([]byte("k"), []byte("v")), types.ErrReadOnlyTxn)
}

func TestBlobIterate(t *testing.T) {
	db := newTestDatabase(t)
	txn := db.Transaction(true)
	require.NoError(t, txn.Do(func(txn *database.Txn) error {
		for _, k := range []string{"a/3", "a/1", "b/1", "a/2"} {
			if err := txn.BlobSet([]byte(k), []byte("x"+k)); err != nil {
				return err
			}
		}
		return nil
	}))

	readTxn := db.Transaction(false)
	defer readTxn.Release()
	var keys, vals []string
	err := readTxn.BlobIterate([]byte("a/"), func(key, val []byte) error {
		keys = append(keys, string(key))
		vals = append(vals, string(val))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1", "a/2", "a/3"}, keys)
	assert.Equal(t, []string{"xa/1", "xa/2", "xa/3"}, vals)

	stopErr := errors.New("stop")
	count := 0
	err = readTxn.BlobIterate([]byte("a/"), func(key, val []byte) error {
		count++
		return stopErr
	})
	require.ErrorIs(t, err, stopErr)
	assert.Equal(t, 1, count)
}

func TestCommitTimestampMismatchOnOpen(t *testing.T) {
	dir := t.TempDir()
	cfg := &database.Config{DataDir: dir, BlobGcDisabled: true}
	db, err := database.New(cfg)
	require.NoError(t, err)
	// Commit to the blob store only, simulating an interrupted dual commit
	blobTxn := db.Blob().NewTransaction(true)
	require.NoError(t, db.Blob().SetCommitTimestamp(99, blobTxn))
	require.NoError(t, blobTxn.Commit())
	require.NoError(t, db.Close())

	db, err = database.New(cfg)
	require.Error(t, err)
	var tsErr database.CommitTimestampError
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, int64(99), tsErr.BlobTimestamp)
	require.NotNil(t, db)
	_ = db.Close()
}
