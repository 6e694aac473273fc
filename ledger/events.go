// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

// Event names.
const (
	EventStakeDeposited        = "StakeDeposited"
	EventStakeWithdrawn        = "StakeWithdrawn"
	EventOperatorSet           = "OperatorSet"
	EventAllowedVerifierSet    = "AllowedVerifierSet"
	EventParamSet              = "ParamSet"
	EventProvisionCreated      = "ProvisionCreated"
	EventProvisionIncreased    = "ProvisionIncreased"
	EventParametersStaged      = "ProvisionParametersStaged"
	EventParametersSet         = "ProvisionParametersSet"
	EventProvisionThawed       = "ProvisionThawed"
	EventTokensDeprovisioned   = "TokensDeprovisioned"
	EventTokensReprovisioned   = "TokensReprovisioned"
	EventProvisionSlashed      = "ProvisionSlashed"
	EventVerifierTokensSent    = "VerifierTokensSent"
	EventTokensDelegated       = "TokensDelegated"
	EventTokensUndelegated     = "TokensUndelegated"
	EventDelegationParamsSet   = "DelegationParametersSet"
	EventAllocationCreated     = "AllocationCreated"
	EventAllocationClosed      = "AllocationClosed"
	EventRewardsDestinationSet = "RewardsDestinationSet"
	EventFeesCollected         = "FeesCollected"
)

// Event is one emitted ledger event: a name plus structured attributes.
type Event struct {
	Name  string
	Attrs map[string]any
}

// EventSink receives the events of committed operations, in order.
type EventSink interface {
	Emit(ev Event)
}

// eventCollector buffers events during an operation so a revert emits
// nothing.
type eventCollector struct {
	events []Event
}

func (c *eventCollector) add(name string, attrs map[string]any) {
	c.events = append(c.events, Event{Name: name, Attrs: attrs})
}

func (c *eventCollector) flush(sink EventSink) {
	if sink == nil {
		return
	}
	for _, ev := range c.events {
		sink.Emit(ev)
	}
}
