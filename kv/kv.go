// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

// Getter defines methods to read kv.
type Getter interface {
	// Get value for given key.
	// An error is returned if key not found. It can be checked via IsNotFound.
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	IsNotFound(err error) bool
}

// Putter defines methods to write kv.
type Putter interface {
	Put(key, val []byte) error
	Delete(key []byte) error
}

// GetPutter wraps methods for getting/putting kvs.
type GetPutter interface {
	Getter
	Putter
}

// GetPutCloser with close method.
type GetPutCloser interface {
	GetPutter
	Close() error
}

// Batch defines a batch of write ops applied atomically.
type Batch interface {
	Putter

	Len() int
	Write() error
}

// Iterator iterates over kv pairs.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// Range is the key range, [From, To).
type Range struct {
	From []byte
	To   []byte
}

// Store defines the full functional kv store.
type Store interface {
	GetPutter

	NewBatch() Batch
	NewIterator(r Range) Iterator
}
