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

// ContractEvent is a contract event emitted by a committed invocation.
// Amount holds a base-10 integer since grant amounts exceed 64 bits.
type ContractEvent struct {
	ID            uint   `gorm:"primarykey"`
	InvocationID  uint   `gorm:"index;not null"`
	Type          string `gorm:"index;size:64;not null"`
	ScholarshipID uint64 `gorm:"index"`
	Actor         string `gorm:"index;size:128"`
	Subject       string `gorm:"index;size:128"`
	Amount        string `gorm:"size:64"`
	LedgerTime    uint64 `gorm:"not null"`
}

func (ContractEvent) TableName() string {
	return "contract_event"
}

// EventFilter narrows a contract event query. Zero values are ignored.
type EventFilter struct {
	Type          string
	ScholarshipID uint64
	Address       string
	Limit         int
}
