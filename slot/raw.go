// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slot

import (
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/horizonledger/horizon/horizon"
)

// Raw is an RLP-encoded value of arbitrary type at a fixed slot.
type Raw[V any] struct {
	context *Context
	pos     horizon.Bytes32
}

// NewRaw creates a raw accessor at the given slot.
func NewRaw[V any](context *Context, pos horizon.Bytes32) *Raw[V] {
	return &Raw[V]{context: context, pos: pos}
}

// Get returns the stored value. A missing entry decodes to the zero
// value (pointer values are allocated).
func (r *Raw[V]) Get() (value V, err error) {
	err = r.context.state.DecodeStorage(r.context.address, r.pos, func(raw []byte) error {
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

// Set stores the value.
func (r *Raw[V]) Set(value V) error {
	return r.context.state.EncodeStorage(r.context.address, r.pos, func() ([]byte, error) {
		return rlp.EncodeToBytes(value)
	})
}
