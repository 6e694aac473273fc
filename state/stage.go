// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import "github.com/horizonledger/horizon/kv"

// Stage abstracts the batched persistence of journaled state writes.
type Stage struct {
	batch kv.Batch
}

// Commit writes all staged changes to the underlying store atomically.
func (s *Stage) Commit() error {
	if err := s.batch.Write(); err != nil {
		return &Error{err}
	}
	return nil
}

// Len returns the number of staged writes.
func (s *Stage) Len() int {
	return s.batch.Len()
}
