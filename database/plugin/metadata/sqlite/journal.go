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
	"github.com/blinklabs-io/descholar/database/models"
	"github.com/blinklabs-io/descholar/database/types"
)

// AddInvocation records a committed invocation along with its events
func (d *MetadataStoreSqlite) AddInvocation(
	inv *models.Invocation,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	// Events are created through the association
	return db.Create(inv).Error
}

// GetInvocations returns the most recent invocations, newest first
func (d *MetadataStoreSqlite) GetInvocations(
	limit int,
) ([]models.Invocation, error) {
	var ret []models.Invocation
	query := d.DB().Preload("Events").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if result := query.Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetEvents returns contract events matching the filter, oldest first
func (d *MetadataStoreSqlite) GetEvents(
	filter models.EventFilter,
) ([]models.ContractEvent, error) {
	var ret []models.ContractEvent
	query := d.DB().Order("id ASC")
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.ScholarshipID != 0 {
		query = query.Where("scholarship_id = ?", filter.ScholarshipID)
	}
	if filter.Address != "" {
		query = query.Where(
			"actor = ? OR subject = ?",
			filter.Address,
			filter.Address,
		)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if result := query.Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
