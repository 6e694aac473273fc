// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package thawing keeps the per-provision FIFO queues of pending
// withdrawals. A thaw request holds shares of the provision's thawing
// pool, not tokens: a slash between request and fulfillment dilutes the
// pool and every queued request pays its share of the loss.
package thawing

import (
	"encoding/binary"
	"math/big"

	"github.com/horizonledger/horizon/horizon"
	"github.com/horizonledger/horizon/ledger/provision"
	"github.com/horizonledger/horizon/ledger/reverts"
	"github.com/horizonledger/horizon/ledger/vault"
	"github.com/horizonledger/horizon/slot"
)

var (
	slotQueues   = horizon.BytesToBytes32([]byte("thaw-queues"))
	slotRequests = horizon.BytesToBytes32([]byte("thaw-requests"))
)

// ThawRequest is one queued withdrawal. ThawingUntil is fixed when the
// request is created; later thawing-period changes do not move it.
type ThawRequest struct {
	Shares       *big.Int
	CreatedAt    uint64
	ThawingUntil uint64
}

// queue tracks the live index window of a provision's request queue.
// Requests occupy [Head, Tail).
type queue struct {
	Head uint64
	Tail uint64
}

func (q *queue) len() uint64 {
	return q.Tail - q.Head
}

// requestKey addresses one queue slot of one provision.
type requestKey struct {
	provKey provision.Key
	index   uint64
}

func (k requestKey) Bytes() []byte {
	b := make([]byte, 0, 2*horizon.AddressLength+8)
	b = append(b, k.provKey.Bytes()...)
	return binary.BigEndian.AppendUint64(b, k.index)
}

// Service is the thaw queue storage service.
type Service struct {
	queues   *slot.Mapping[provision.Key, *queue]
	requests *slot.Mapping[requestKey, *ThawRequest]
}

// New create a new instance.
func New(sctx *slot.Context) *Service {
	return &Service{
		queues:   slot.NewMapping[provision.Key, *queue](sctx, slotQueues),
		requests: slot.NewMapping[requestKey, *ThawRequest](sctx, slotRequests),
	}
}

// Pending returns how many requests are queued for the provision.
func (s *Service) Pending(key provision.Key) (uint64, error) {
	q, err := s.queues.Get(key)
	if err != nil {
		return 0, err
	}
	return q.len(), nil
}

// List returns the queued requests front to back.
func (s *Service) List(key provision.Key) ([]*ThawRequest, error) {
	q, err := s.queues.Get(key)
	if err != nil {
		return nil, err
	}
	out := make([]*ThawRequest, 0, q.len())
	for i := q.Head; i < q.Tail; i++ {
		req, err := s.requests.Get(requestKey{key, i})
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

// Enqueue appends a request to the provision's queue. The queue is
// capped so fulfillment cost stays bounded.
func (s *Service) Enqueue(key provision.Key, shares *big.Int, createdAt, thawingUntil uint64) error {
	q, err := s.queues.Get(key)
	if err != nil {
		return err
	}
	if q.len() >= horizon.MaxThawRequests {
		return reverts.Precondition("thaw request queue for %s/%s is full (%d requests)",
			key.ServiceProvider, key.Verifier, horizon.MaxThawRequests)
	}
	if err := s.requests.Set(requestKey{key, q.Tail}, &ThawRequest{
		Shares:       new(big.Int).Set(shares),
		CreatedAt:    createdAt,
		ThawingUntil: thawingUntil,
	}); err != nil {
		return err
	}
	q.Tail++
	return s.queues.Set(key, q)
}

// ResolveMatured pops up to n matured requests from the front of the
// queue (n == 0 means no limit), burning their shares from the pool.
// It stops at the first request still thawing and fails if nothing was
// resolved at all.
func (s *Service) ResolveMatured(key provision.Key, n uint64, now uint64, pool *vault.Pool) (*big.Int, uint64, error) {
	q, err := s.queues.Get(key)
	if err != nil {
		return nil, 0, err
	}
	if q.len() == 0 {
		return nil, 0, reverts.Precondition("nothing thawing for %s/%s", key.ServiceProvider, key.Verifier)
	}

	tokens := new(big.Int)
	var resolved uint64
	for q.Head < q.Tail {
		if n != 0 && resolved >= n {
			break
		}
		rk := requestKey{key, q.Head}
		req, err := s.requests.Get(rk)
		if err != nil {
			return nil, 0, err
		}
		if req.ThawingUntil > now {
			break
		}
		out, err := pool.Burn(req.Shares)
		if err != nil {
			return nil, 0, err
		}
		tokens.Add(tokens, out)
		if err := s.requests.Delete(rk); err != nil {
			return nil, 0, err
		}
		q.Head++
		resolved++
	}
	if resolved == 0 {
		return nil, 0, reverts.Precondition("no matured thaw request for %s/%s", key.ServiceProvider, key.Verifier)
	}
	if q.len() == 0 {
		// reset indices so a long-lived provision does not creep
		q.Head, q.Tail = 0, 0
	}
	return tokens, resolved, s.queues.Set(key, q)
}
