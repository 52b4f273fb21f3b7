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

// Package keystore manages the ed25519 signing keys that identify callers of
// the scholarship contract
package keystore

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"

	"github.com/blinklabs-io/descholar/contract"
)

// Blake2b-224 digest length
const addressHashSize = 28

var (
	ErrInsecureFileMode = errors.New("insecure file permissions")
	ErrNoSigningKey     = errors.New("no signing key loaded")
)

// Key is an ed25519 key pair, or a verification key alone when loaded from
// a .vkey file
type Key struct {
	vkey ed25519.PublicKey
	skey ed25519.PrivateKey
}

// Generate creates a new signing key using entropy from rand, or
// crypto/rand when rand is nil
func Generate(random io.Reader) (*Key, error) {
	if random == nil {
		random = rand.Reader
	}
	vkey, skey, err := ed25519.GenerateKey(random)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return &Key{vkey: vkey, skey: skey}, nil
}

// FromSeed returns the signing key for a 32-byte seed
func FromSeed(seed []byte) (*Key, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf(
			"invalid seed length: expected %d, got %d",
			ed25519.SeedSize,
			len(seed),
		)
	}
	skey := ed25519.NewKeyFromSeed(seed)
	return &Key{vkey: skey.Public().(ed25519.PublicKey), skey: skey}, nil
}

// Load reads a signing or verification key file
func Load(path string) (*Key, error) {
	lk, err := loadKeyFromFile(path)
	if err != nil {
		return nil, err
	}
	return &Key{vkey: lk.VKey, skey: lk.SKey}, nil
}

// Save writes the signing key to path with owner-only permissions, and the
// verification key next to it with a .vkey extension
func (k *Key) Save(path string) error {
	if k.skey == nil {
		return ErrNoSigningKey
	}
	data, err := encodeKeyEnvelope(
		signingKeyType,
		signingKeyDescription,
		k.skey.Seed(),
	)
	if err != nil {
		return err
	}
	if err := writeKeyFile(path, data, keyFileMode); err != nil {
		return err
	}
	vdata, err := encodeKeyEnvelope(
		verificationKeyType,
		verificationKeyDesc,
		k.vkey,
	)
	if err != nil {
		return err
	}
	return writeKeyFile(VerificationKeyPath(path), vdata, verificationKeyFileMode)
}

// VerificationKeyPath returns the .vkey path that accompanies a signing key
// file
func VerificationKeyPath(path string) string {
	return strings.TrimSuffix(path, ".skey") + verificationKeyExtension
}

func (k *Key) VKey() ed25519.PublicKey {
	return k.vkey
}

// CanSign reports whether the key includes the signing half
func (k *Key) CanSign() bool {
	return k.skey != nil
}

func (k *Key) Sign(message []byte) ([]byte, error) {
	if k.skey == nil {
		return nil, ErrNoSigningKey
	}
	return ed25519.Sign(k.skey, message), nil
}

func (k *Key) Address() contract.Address {
	return AddressFromVKey(k.vkey)
}

// AddressFromVKey derives an address as the hex Blake2b-224 hash of an
// ed25519 verification key
func AddressFromVKey(vkey []byte) contract.Address {
	hash := lcommon.Blake2b224Hash(vkey)
	return contract.Address(hex.EncodeToString(hash.Bytes()))
}

// ValidAddress reports whether s has the form of a derived address
func ValidAddress(s string) bool {
	if len(s) != 2*addressHashSize {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
