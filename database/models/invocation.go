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

package models

import "time"

// Invocation is a journal entry for one committed contract invocation
type Invocation struct {
	ID          uint            `gorm:"primarykey"`
	Method      string          `gorm:"index;size:64;not null"`
	Invoker     string          `gorm:"index;size:128"`
	Signers     string          `gorm:"type:text"`
	Nonce       uint64          `gorm:"not null"`
	LedgerTime  uint64          `gorm:"index;not null"`
	CommittedAt time.Time       `gorm:"not null"`
	Events      []ContractEvent `gorm:"foreignKey:InvocationID;constraint:OnDelete:CASCADE"`
}

func (Invocation) TableName() string {
	return "invocation"
}
