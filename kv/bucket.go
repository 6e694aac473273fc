// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

// Bucket provides a logical bucket (key prefix) over a kv store.
type Bucket string

type bucketStore struct {
	Store
	prefix []byte
}

// NewStore creates a bucket store from the source store.
func (b Bucket) NewStore(src Store) Store {
	return &bucketStore{src, []byte(b)}
}

func (s *bucketStore) key(key []byte) []byte {
	return append(append(make([]byte, 0, len(s.prefix)+len(key)), s.prefix...), key...)
}

func (s *bucketStore) Get(key []byte) ([]byte, error) { return s.Store.Get(s.key(key)) }
func (s *bucketStore) Has(key []byte) (bool, error)   { return s.Store.Has(s.key(key)) }
func (s *bucketStore) Put(key, val []byte) error      { return s.Store.Put(s.key(key), val) }
func (s *bucketStore) Delete(key []byte) error        { return s.Store.Delete(s.key(key)) }

func (s *bucketStore) NewBatch() Batch {
	return &bucketBatch{s.Store.NewBatch(), s.prefix}
}

func (s *bucketStore) NewIterator(r Range) Iterator {
	to := s.key(r.To)
	if len(r.To) == 0 {
		to = upperBound(s.prefix)
	}
	return &bucketIterator{s.Store.NewIterator(Range{
		From: s.key(r.From),
		To:   to,
	}), len(s.prefix)}
}

// upperBound returns the smallest key greater than every key prefixed by b,
// or nil if no such key exists.
func upperBound(b []byte) []byte {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			ub := append([]byte(nil), b[:i+1]...)
			ub[i]++
			return ub
		}
	}
	return nil
}

type bucketBatch struct {
	Batch
	prefix []byte
}

func (b *bucketBatch) key(key []byte) []byte {
	return append(append(make([]byte, 0, len(b.prefix)+len(key)), b.prefix...), key...)
}

func (b *bucketBatch) Put(key, val []byte) error { return b.Batch.Put(b.key(key), val) }
func (b *bucketBatch) Delete(key []byte) error   { return b.Batch.Delete(b.key(key)) }

type bucketIterator struct {
	Iterator
	prefixLen int
}

func (i *bucketIterator) Key() []byte {
	k := i.Iterator.Key()
	if len(k) < i.prefixLen {
		return nil
	}
	return k[i.prefixLen:]
}
