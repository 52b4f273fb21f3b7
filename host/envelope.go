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
	"crypto/ed25519"
	"encoding/binary"
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"

	"github.com/blinklabs-io/descholar/contract"
	"github.com/blinklabs-io/descholar/keystore"
)

// Envelope is a signed request to invoke a method. The first signature
// identifies the invoker.
type Envelope struct {
	cbor.StructAsArray
	Method     string
	Args       []byte
	Nonce      uint64
	Signatures []Signature
}

type Signature struct {
	cbor.StructAsArray
	VKey      []byte
	Signature []byte
}

// Signer produces ed25519 signatures. keystore.Key implements it.
type Signer interface {
	VKey() ed25519.PublicKey
	Sign(message []byte) ([]byte, error)
}

type signingPayload struct {
	cbor.StructAsArray
	Contract contract.Address
	Method   string
	Args     []byte
	Nonce    uint64
}

// SigningPayload returns the bytes each signer signs. It binds the request
// to a single contract instance.
func SigningPayload(
	contractAddr contract.Address,
	method string,
	args []byte,
	nonce uint64,
) ([]byte, error) {
	return cbor.Encode(
		&signingPayload{
			Contract: contractAddr,
			Method:   method,
			Args:     args,
			Nonce:    nonce,
		},
	)
}

// EncodeArgs CBOR encodes method arguments. A nil args encodes as empty.
func EncodeArgs(args any) ([]byte, error) {
	if args == nil {
		return nil, nil
	}
	return cbor.Encode(args)
}

// NewEnvelope builds and signs an envelope for the given contract
func NewEnvelope(
	contractAddr contract.Address,
	method string,
	args any,
	nonce uint64,
	signers ...Signer,
) (*Envelope, error) {
	argBytes, err := EncodeArgs(args)
	if err != nil {
		return nil, fmt.Errorf("encode %s args: %w", method, err)
	}
	payload, err := SigningPayload(contractAddr, method, argBytes, nonce)
	if err != nil {
		return nil, err
	}
	ret := &Envelope{
		Method: method,
		Args:   argBytes,
		Nonce:  nonce,
	}
	for _, signer := range signers {
		sig, err := signer.Sign(payload)
		if err != nil {
			return nil, err
		}
		ret.Signatures = append(
			ret.Signatures,
			Signature{VKey: signer.VKey(), Signature: sig},
		)
	}
	return ret, nil
}

// verify checks every signature and returns the signer addresses in order,
// without duplicates
func (e *Envelope) verify(contractAddr contract.Address) ([]contract.Address, error) {
	if len(e.Signatures) == 0 {
		return nil, fmt.Errorf("%w: envelope has no signatures", ErrNotSigned)
	}
	payload, err := SigningPayload(contractAddr, e.Method, e.Args, e.Nonce)
	if err != nil {
		return nil, err
	}
	ret := make([]contract.Address, 0, len(e.Signatures))
	seen := make(map[contract.Address]bool, len(e.Signatures))
	for i, sig := range e.Signatures {
		if len(sig.VKey) != ed25519.PublicKeySize {
			return nil, fmt.Errorf(
				"%w: signature %d: bad verification key length %d",
				ErrBadSignature,
				i,
				len(sig.VKey),
			)
		}
		if !ed25519.Verify(sig.VKey, payload, sig.Signature) {
			return nil, fmt.Errorf("%w: signature %d", ErrBadSignature, i)
		}
		addr := keystore.AddressFromVKey(sig.VKey)
		if seen[addr] {
			continue
		}
		seen[addr] = true
		ret = append(ret, addr)
	}
	return ret, nil
}

func nonceKey(addr contract.Address) []byte {
	return append([]byte(string(noncePrefix)), addr...)
}

func lastNonce(s txnStorage, addr contract.Address) (uint64, error) {
	val, ok, err := s.Get(nonceKey(addr))
	if err != nil || !ok {
		return 0, err
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("corrupt nonce record for %s", addr)
	}
	return binary.BigEndian.Uint64(val), nil
}

// consumeNonce records nonce for every signer. Each signer's nonces must
// strictly increase.
func (e *invocationEnv) consumeNonce(nonce uint64) error {
	s := txnStorage{txn: e.txn}
	for _, addr := range e.signers {
		last, err := lastNonce(s, addr)
		if err != nil {
			return err
		}
		if nonce <= last {
			return fmt.Errorf(
				"%w: %s used nonce %d, last accepted %d",
				ErrStaleNonce,
				addr,
				nonce,
				last,
			)
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, nonce)
		if err := s.Set(nonceKey(addr), buf); err != nil {
			return err
		}
	}
	e.nonce = nonce
	return nil
}
