package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Issue holds the schema definition for the Issue entity — the persisted
// counterpart of model.Issue, one row per engine run.
type Issue struct {
	ent.Schema
}

// Fields of the Issue.
func (Issue) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("issue_id").
			Unique().
			Immutable(),
		field.String("title"),
		field.Text("problem_statement").
			Comment("Full-text searchable investigation target"),
		field.Text("background").
			Optional(),
		field.JSON("assigned_agents", []string{}).
			Comment("Fixed agent set selected by pool.Select at construction"),
		field.Int64("pool_seed"),
		field.Int64("run_seed"),
		field.Enum("status").
			Values("running", "finalized").
			Default("running"),
		field.Int("winning_proposal_id").
			Optional().
			Nillable(),
		field.Int("finalization_tick").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("finalized_at").
			Optional().
			Nillable(),
	}
}

// Edges of the Issue.
func (Issue) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("proposals", Proposal.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("stake_records", StakeRecord.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("credit_events", CreditEvent.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("conviction_entries", ConvictionEntry.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("snapshots", Snapshot.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Issue.
func (Issue) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("status"),
		index.Fields("created_at"),
	}
}
