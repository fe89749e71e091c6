package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relgraph/schema"
	"github.com/syssam/relgraph/schema/edge"
	"github.com/syssam/relgraph/schema/field"
)

func TestValidate(t *testing.T) {
	r := provider(t, Order{}, Line{}, Customer{})
	result := Validate(r, nil)
	assert.False(t, result.HasErrors(), result.String())
	assert.False(t, result.HasWarnings(), result.String())
	assert.Equal(t, "No issues found", result.String())

	r = schema.NewRegistry()
	require.NoError(t, r.Register(&schema.Descriptor{
		Type:  "Tag",
		Table: schema.Table{Name: "tags"},
		ID:    &field.Column{Name: "id", Column: "id", Type: field.TypeInt64},
		Relations: []*edge.Relation{{
			Name:        "posts",
			Target:      "Post",
			Cardinality: edge.Many,
			Shape:       &edge.AssociationTable{Table: "post_tags", SourceColumn: "tag_id", TargetColumn: "post_id"},
		}},
	}))
	result = Validate(r, nil)
	require.True(t, result.HasErrors())
	assert.Contains(t, result.String(), `relation "posts" targets unknown type "Post"`)
}

func TestValidateDiff(t *testing.T) {
	current := []*Table{{
		Name: "orders",
		Columns: []*Column{
			{Name: "id", Type: field.TypeInt64, AutoIncrement: true},
			{Name: "note", Type: field.TypeString, Size: 255, Nullable: true},
			{Name: "legacy", Type: field.TypeString},
		},
	}, {Name: "audit"}}
	desired := []*Table{{
		Name: "orders",
		Columns: []*Column{
			{Name: "id", Type: field.TypeInt64, AutoIncrement: true},
			{Name: "note", Type: field.TypeString, Size: 64},
			{Name: "version", Type: field.TypeInt},
		},
	}}

	result := ValidateDiff(current, desired)
	require.True(t, result.HasErrors())
	assert.True(t, result.HasBreakingChanges())
	assert.Len(t, result.Errors, 3, result.String())
	assert.Len(t, result.Warnings, 2, result.String())

	result = ValidateDiff(current, desired, AllowDropColumn(), AllowDropTable(), AllowNullToNotNull())
	assert.False(t, result.HasErrors(), result.String())
	assert.Len(t, result.Warnings, 5, result.String())
}

func TestValidateTable(t *testing.T) {
	id := &Column{Name: "id", Type: field.TypeInt64, AutoIncrement: true}
	result := ValidateTable(&Table{
		Name:       "orders",
		Columns:    []*Column{id, {Name: "id", Type: field.TypeInt64}},
		PrimaryKey: []*Column{id},
		Sequence:   "orders_seq",
	})
	assert.Len(t, result.Errors, 2, result.String())

	result = ValidateTable(&Table{Name: "order_lines", Association: true})
	assert.False(t, result.HasWarnings())
	result = ValidateTable(&Table{Name: "orders"})
	assert.True(t, result.HasWarnings())
}
