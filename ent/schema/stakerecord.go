package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// StakeRecord holds the schema definition for the StakeRecord entity — the
// persisted counterpart of model.StakeRecord. A revision rewrites the
// proposal_id/tick of every record in a lineage (CreditLedger.TransferStake)
// rather than inserting new rows, so updated_at is the only mutable marker.
type StakeRecord struct {
	ent.Schema
}

// Fields of the StakeRecord.
func (StakeRecord) Fields() []ent.Field {
	return []ent.Field{
		field.String("agent_id").
			Immutable(),
		field.Int("proposal_id"),
		field.String("issue_id").
			Immutable(),
		field.Int("cp"),
		field.Int("tick"),
		field.Enum("stake_type").
			Values("initial", "voluntary").
			Immutable(),
	}
}

// Edges of the StakeRecord.
func (StakeRecord) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("issue", Issue.Type).
			Ref("stake_records").
			Field("issue_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the StakeRecord.
func (StakeRecord) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("issue_id", "agent_id"),
		index.Fields("issue_id", "proposal_id"),
	}
}
