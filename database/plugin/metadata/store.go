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

package metadata

import (
	"github.com/blinklabs-io/descholar/database/models"
	"github.com/blinklabs-io/descholar/database/types"
	"gorm.io/gorm"
)

// MetadataStore holds the invocation journal and contract event log
type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	Transaction() types.Txn
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(timestamp int64, txn types.Txn) error

	// Journal
	AddInvocation(*models.Invocation, types.Txn) error
	GetInvocations(limit int) ([]models.Invocation, error)
	GetEvents(models.EventFilter) ([]models.ContractEvent, error)
}
