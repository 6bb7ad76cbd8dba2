package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Snapshot holds the schema definition for the Snapshot entity — the
// persisted counterpart of engine.Snapshot, written once per tick by
// rtevents.PostgresSink.SaveSnapshot for dashboard polling and replay.
type Snapshot struct {
	ent.Schema
}

// Fields of the Snapshot.
func (Snapshot) Fields() []ent.Field {
	return []ent.Field{
		field.String("issue_id").
			Immutable(),
		field.Int("tick").
			Immutable(),
		field.String("phase").
			Immutable(),
		field.Int("phase_tick").
			Immutable(),
		field.JSON("agent_balances", map[string]int{}).
			Immutable(),
		field.JSON("agent_readiness", map[string]bool{}).
			Immutable(),
		field.JSON("agent_proposal_ids", map[string]int{}).
			Immutable(),
		field.Int("proposal_counter").
			Immutable(),
		field.Bool("issue_finalized").
			Immutable(),
		field.Int("finalization_tick").
			Optional().
			Nillable().
			Immutable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the Snapshot.
func (Snapshot) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("issue", Issue.Type).
			Ref("snapshots").
			Field("issue_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Snapshot.
func (Snapshot) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("issue_id", "tick").
			Unique(),
	}
}
