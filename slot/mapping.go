// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slot

import (
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/horizonledger/horizon/horizon"
)

// Key is anything that can key a mapping.
type Key interface {
	Bytes() []byte
}

// Mapping is a key/value storage abstraction similar to a mapping in
// contract storage: each entry lives at blake2b(key, basePos).
type Mapping[K Key, V any] struct {
	context *Context
	basePos horizon.Bytes32
}

// NewMapping creates a mapping rooted at the given base position.
func NewMapping[K Key, V any](context *Context, pos horizon.Bytes32) *Mapping[K, V] {
	return &Mapping[K, V]{context: context, basePos: pos}
}

// Get returns the value for the key. A missing entry decodes to the
// zero value (pointer values are allocated).
func (m *Mapping[K, V]) Get(key K) (value V, err error) {
	position := horizon.Blake2b(key.Bytes(), m.basePos.Bytes())
	err = m.context.state.DecodeStorage(m.context.address, position, func(raw []byte) error {
		if reflect.ValueOf(&value).Elem().Kind() == reflect.Ptr {
			value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
		}
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &value)
	})
	return
}

// Set stores the value for the key.
func (m *Mapping[K, V]) Set(key K, value V) error {
	position := horizon.Blake2b(key.Bytes(), m.basePos.Bytes())
	return m.context.state.EncodeStorage(m.context.address, position, func() ([]byte, error) {
		return rlp.EncodeToBytes(value)
	})
}

// Delete removes the entry for the key.
func (m *Mapping[K, V]) Delete(key K) error {
	position := horizon.Blake2b(key.Bytes(), m.basePos.Bytes())
	return m.context.state.EncodeStorage(m.context.address, position, func() ([]byte, error) {
		return nil, nil
	})
}
