package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// CreditEvent holds the schema definition for the CreditEvent entity — the
// persisted, append-only counterpart of model.CreditEvent. Never updated
// after insert; CP conservation (spec.md §8 property 1) is re-derived from
// the full row set by the forensic Verify pass.
type CreditEvent struct {
	ent.Schema
}

// Fields of the CreditEvent.
func (CreditEvent) Fields() []ent.Field {
	return []ent.Field{
		field.Int("tick").
			Immutable(),
		field.String("agent_id").
			Immutable(),
		field.String("issue_id").
			Immutable(),
		field.String("reason").
			Immutable(),
		field.Enum("event_type").
			Values("Burn", "Credit", "InsufficientCredit", "Revision", "Finalization", "Influence").
			Immutable(),
		field.Int("amount").
			Immutable().
			Comment("Signed: positive for credits, negative for burns"),
	}
}

// Edges of the CreditEvent.
func (CreditEvent) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("issue", Issue.Type).
			Ref("credit_events").
			Field("issue_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the CreditEvent.
func (CreditEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("issue_id", "agent_id"),
		index.Fields("issue_id", "tick"),
	}
}
