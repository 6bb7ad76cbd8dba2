package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Proposal holds the schema definition for the Proposal entity — an
// immutable snapshot of one version of model.Proposal. Revising a proposal
// never updates a row here; it inserts a new one and flips active=false on
// the one it supersedes, mirroring Issue.AddProposal's append-only model.
type Proposal struct {
	ent.Schema
}

// Fields of the Proposal.
func (Proposal) Fields() []ent.Field {
	return []ent.Field{
		field.Int("proposal_id").
			Unique().
			Immutable().
			Comment("Globally monotonic within an issue; 0 reserved for NoAction"),
		field.String("issue_id").
			Immutable(),
		field.Text("content").
			Immutable(),
		field.String("author").
			Immutable(),
		field.Enum("author_type").
			Values("agent", "system").
			Immutable(),
		field.Enum("proposal_type").
			Values("standard", "noaction").
			Immutable(),
		field.Int("parent_id").
			Optional().
			Nillable().
			Immutable(),
		field.Int("revision_number").
			Immutable(),
		field.Bool("active").
			Default(true),
		field.Int("tick").
			Immutable(),
	}
}

// Edges of the Proposal.
func (Proposal) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("issue", Issue.Type).
			Ref("proposals").
			Field("issue_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Proposal.
func (Proposal) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("issue_id", "proposal_id").
			Unique(),
		index.Fields("issue_id", "author", "active"),
	}
}
