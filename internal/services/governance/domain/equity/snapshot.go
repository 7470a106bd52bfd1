package equity

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Snapshot is an immutable agentID -> equity map captured at a fixed point.
//
// The zero value is an empty snapshot. Values are copied on the way in and on
// the way out; nothing holding a Snapshot can change what it reports.
type Snapshot struct {
	equity map[string]decimal.Decimal
}

// NewSnapshot copies values into a snapshot.
func NewSnapshot(values map[string]decimal.Decimal) Snapshot {
	equity := make(map[string]decimal.Decimal, len(values))
	for agentID, value := range values {
		equity[agentID] = value
	}
	return Snapshot{equity: equity}
}

// SnapshotFromMembers captures each member's current equity.
func SnapshotFromMembers(members []Member) Snapshot {
	equity := make(map[string]decimal.Decimal, len(members))
	for _, member := range members {
		equity[member.AgentID] = member.Equity
	}
	return Snapshot{equity: equity}
}

// Equity returns the captured equity for agentID.
func (s Snapshot) Equity(agentID string) (decimal.Decimal, bool) {
	value, ok := s.equity[agentID]
	return value, ok
}

// Has reports whether agentID was a member when the snapshot was taken.
func (s Snapshot) Has(agentID string) bool {
	_, ok := s.equity[agentID]
	return ok
}

// Len returns the number of agents in the snapshot.
func (s Snapshot) Len() int {
	return len(s.equity)
}

// Total sums every agent's captured equity.
func (s Snapshot) Total() decimal.Decimal {
	total := decimal.Zero
	for _, value := range s.equity {
		total = total.Add(value)
	}
	return total
}

// AgentIDs lists agents in lexical order.
func (s Snapshot) AgentIDs() []string {
	ids := make([]string, 0, len(s.equity))
	for agentID := range s.equity {
		ids = append(ids, agentID)
	}
	sort.Strings(ids)
	return ids
}

// Values returns a copy of the underlying map.
func (s Snapshot) Values() map[string]decimal.Decimal {
	values := make(map[string]decimal.Decimal, len(s.equity))
	for agentID, value := range s.equity {
		values[agentID] = value
	}
	return values
}

// MarshalJSON encodes the snapshot as an object of decimal strings.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	if s.equity == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.equity)
}

// UnmarshalJSON decodes a snapshot written by MarshalJSON.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var values map[string]decimal.Decimal
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("decode equity snapshot: %w", err)
	}
	*s = NewSnapshot(values)
	return nil
}
