package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ConvictionEntry holds the schema definition for the ConvictionEntry
// entity — the persisted counterpart of the CreditLedger's per
// (agent, proposal) derived aggregate, mutated in place on every
// UpdateConviction/SwitchConviction/UnstakeFromProposal call.
type ConvictionEntry struct {
	ent.Schema
}

// Fields of the ConvictionEntry.
func (ConvictionEntry) Fields() []ent.Field {
	return []ent.Field{
		field.String("issue_id").
			Immutable(),
		field.String("agent_id").
			Immutable(),
		field.Int("proposal_id").
			Immutable(),
		field.Int("accumulated_cp").
			Default(0),
		field.Int("consecutive_rounds").
			Default(0),
		field.Int("total_rounds_held").
			Default(0),
	}
}

// Edges of the ConvictionEntry.
func (ConvictionEntry) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("issue", Issue.Type).
			Ref("conviction_entries").
			Field("issue_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the ConvictionEntry.
func (ConvictionEntry) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("issue_id", "agent_id", "proposal_id").
			Unique(),
	}
}
