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

package keystore

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/blinklabs-io/gouroboros/cbor"
)

const (
	signingKeyType           = "PaymentSigningKeyShelley_ed25519"
	signingKeyDescription    = "Payment Signing Key"
	verificationKeyType      = "PaymentVerificationKeyShelley_ed25519"
	verificationKeyDesc      = "Payment Verification Key"
	maxKeyFileSize           = 1 << 20
	keyFileMode              = 0o600
	verificationKeyFileMode  = 0o644
	verificationKeyExtension = ".vkey"
)

var ErrUnknownKeyType = errors.New("unknown key type")

// keyFileEnvelope is the JSON text envelope used by cardano-cli key files
type keyFileEnvelope struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	CborHex     string `json:"cborHex"`
}

// loadedKey holds the parsed contents of a key file. SKey is nil for
// verification key files.
type loadedKey struct {
	Type string
	VKey ed25519.PublicKey
	SKey ed25519.PrivateKey
}

// loadKeyFromFile loads a key file and returns ErrInsecureFileMode if a
// signing key file is readable by group or other. Permissions are checked on
// the open handle to avoid a race with the read.
func loadKeyFromFile(path string) (*loadedKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file %q: %w", path, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxKeyFileSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read key file %q: %w", path, err)
	}
	key, err := parseKeyEnvelope(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse key file %q: %w", path, err)
	}
	if key.SKey != nil {
		if err := checkOpenFilePermissions(f); err != nil {
			return nil, err
		}
	}
	return key, nil
}

func parseKeyEnvelope(fileBytes []byte) (*loadedKey, error) {
	var env keyFileEnvelope
	if err := json.Unmarshal(fileBytes, &env); err != nil {
		return nil, fmt.Errorf("could not parse key file envelope: %w", err)
	}
	cborData, err := hex.DecodeString(env.CborHex)
	if err != nil {
		return nil, fmt.Errorf("could not decode key from hex: %w", err)
	}
	var keyBytes []byte
	if _, err := cbor.Decode(cborData, &keyBytes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal key CBOR: %w", err)
	}
	lk := &loadedKey{Type: env.Type}
	switch env.Type {
	case signingKeyType:
		if len(keyBytes) != ed25519.SeedSize {
			return nil, fmt.Errorf(
				"invalid signing key bytes: expected %d, got %d",
				ed25519.SeedSize,
				len(keyBytes),
			)
		}
		lk.SKey = ed25519.NewKeyFromSeed(keyBytes)
		// Derive the public key from the seed rather than trusting the file
		lk.VKey = lk.SKey.Public().(ed25519.PublicKey)
		return lk, nil
	case verificationKeyType:
		if len(keyBytes) != ed25519.PublicKeySize {
			return nil, fmt.Errorf(
				"invalid verification key bytes: expected %d, got %d",
				ed25519.PublicKeySize,
				len(keyBytes),
			)
		}
		lk.VKey = ed25519.PublicKey(keyBytes)
		return lk, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKeyType, env.Type)
	}
}

func encodeKeyEnvelope(keyType, description string, key []byte) ([]byte, error) {
	cborData, err := cbor.Encode(key)
	if err != nil {
		return nil, err
	}
	env := keyFileEnvelope{
		Type:        keyType,
		Description: description,
		CborHex:     hex.EncodeToString(cborData),
	}
	ret, err := json.MarshalIndent(env, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(ret, '\n'), nil
}

// writeKeyFile creates path with the given mode. It refuses to overwrite an
// existing file.
func writeKeyFile(path string, data []byte, mode os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return fmt.Errorf("failed to create key file %q: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write key file %q: %w", path, err)
	}
	return f.Close()
}
