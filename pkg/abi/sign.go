// SPDX-License-Identifier: Apache-2.0
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

package abi

import (
	"context"
	"crypto/ed25519"
	"encoding/binary"

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/broxus/tvm-abi/internal/abimsgs"
)

// Signer produces the 64-byte Ed25519 signature (and, when it holds one,
// the 32-byte public key) over an external message's pre-signature digest.
// EncodeInput calls Sign exactly once per signed message.
type Signer interface {
	Sign(digest []byte) (sig, pubKey []byte, err error)
}

// KeyPairSigner signs with a held Ed25519 private key. When SignID is set,
// it is prepended to the digest as a big-endian uint32 before signing - the
// network/signature-id separation domain some deployments use so a
// signature produced for one chain cannot be replayed on another.
type KeyPairSigner struct {
	Private ed25519.PrivateKey
	SignID  *uint32
}

// NewKeyPairSigner returns a Signer backed by priv.
func NewKeyPairSigner(priv ed25519.PrivateKey) *KeyPairSigner {
	return &KeyPairSigner{Private: priv}
}

func (s *KeyPairSigner) Sign(digest []byte) ([]byte, []byte, error) {
	if len(s.Private) != ed25519.PrivateKeySize {
		return nil, nil, i18n.NewError(context.Background(), abimsgs.MsgSigningRequiresKeyPair)
	}
	msg := digest
	if s.SignID != nil {
		prefixed := make([]byte, 4+len(digest))
		binary.BigEndian.PutUint32(prefixed, *s.SignID)
		copy(prefixed[4:], digest)
		msg = prefixed
	}
	sig := ed25519.Sign(s.Private, msg)
	pub, _ := s.Private.Public().(ed25519.PublicKey)
	return sig, []byte(pub), nil
}
