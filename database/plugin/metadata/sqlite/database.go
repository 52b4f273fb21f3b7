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

package sqlite

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/blinklabs-io/descholar/database/models"
	"github.com/blinklabs-io/descholar/database/types"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// Each in-memory store gets its own named database so that stores opened in
// the same process do not share tables
var inMemoryCounter atomic.Uint64

type sqliteTxn struct {
	store    *MetadataStoreSqlite
	db       *gorm.DB
	finished bool
}

func (t *sqliteTxn) Commit() error {
	if t.finished {
		return nil
	}
	t.finished = true
	return t.db.Commit().Error
}

func (t *sqliteTxn) Rollback() error {
	if t.finished {
		return nil
	}
	t.finished = true
	return t.db.Rollback().Error
}

// MetadataStoreSqlite is a MetadataStore backed by SQLite through GORM. An
// empty data directory selects an in-memory database.
type MetadataStoreSqlite struct {
	db      *gorm.DB
	logger  *slog.Logger
	dataDir string
}

func New(opts ...SqliteOptionFunc) (*MetadataStoreSqlite, error) {
	d := &MetadataStoreSqlite{}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	dsn, err := d.dsn()
	if err != nil {
		return nil, err
	}
	d.db, err = gorm.Open(
		sqlite.Open(dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}
	if d.dataDir == "" {
		// The in-memory database lives as long as one connection stays open,
		// and a single connection avoids shared-cache table locks
		sqlDb, err := d.db.DB()
		if err != nil {
			return nil, err
		}
		sqlDb.SetMaxOpenConns(1)
	}
	// The store is returned with any error so the caller can close it
	if err := d.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return d, err
	}
	if err := d.migrate(); err != nil {
		return d, err
	}
	return d, nil
}

// dsn returns a uniquely named in-memory database without a data dir, and
// otherwise <dataDir>/metadata.sqlite in WAL mode
func (d *MetadataStoreSqlite) dsn() (string, error) {
	if d.dataDir == "" {
		return fmt.Sprintf(
			"file:descholar-%d?mode=memory&cache=shared",
			inMemoryCounter.Add(1),
		), nil
	}
	if err := os.MkdirAll(d.dataDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data dir: %w", err)
	}
	return fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		filepath.Join(d.dataDir, "metadata.sqlite"),
	), nil
}

func (d *MetadataStoreSqlite) migrate() error {
	for _, model := range append([]any{&CommitTimestamp{}}, models.MigrateModels...) {
		d.logger.Debug(fmt.Sprintf("creating table: %#v", model))
		if err := d.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate metadata store: %w", err)
		}
	}
	return nil
}

func (d *MetadataStoreSqlite) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB returns the database handle
func (d *MetadataStoreSqlite) DB() *gorm.DB {
	return d.db
}

// Transaction starts a new metadata transaction
func (d *MetadataStoreSqlite) Transaction() types.Txn {
	return &sqliteTxn{store: d, db: d.DB().Begin()}
}

// resolveDB returns the handle to run a query against: the transaction handle
// when one is given, otherwise the database itself
func (d *MetadataStoreSqlite) resolveDB(txn types.Txn) (*gorm.DB, error) {
	if txn == nil {
		return d.DB(), nil
	}
	sTxn, ok := txn.(*sqliteTxn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if sTxn.store != d {
		return nil, fmt.Errorf("%w: transaction from another store", types.ErrTxnWrongType)
	}
	if sTxn.finished {
		return nil, types.ErrTxnFinished
	}
	if sTxn.db.Error != nil {
		return nil, sTxn.db.Error
	}
	return sTxn.db, nil
}
