package sqlgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/dialect"
)

func compileWhere(t *testing.T, typ string, joins []*Join, ps ...Predicate) (string, []any, error) {
	t.Helper()
	r := registry(t)
	d, err := r.Descriptor(typ)
	require.NoError(t, err)
	tr, err := buildTree(r, d, joins, relgraph.DefaultSeparator)
	require.NoError(t, err)
	sc := newScope(dialect.NewSQLite(), NewAliases(0, relgraph.DefaultSeparator), tr)
	return compileAll(sc, tr.root, ps)
}

func TestPredicates(t *testing.T) {
	version := Prop[int64]("version")
	tests := []struct {
		name     string
		joins    []*Join
		p        Predicate
		wantSQL  string
		wantArgs []any
	}{
		{name: "eq", p: EQ("version", 1), wantSQL: "`orders`.`version` = ?", wantArgs: []any{1}},
		{name: "eq nil", p: EQ("note", nil), wantSQL: "`orders`.`note` IS NULL"},
		{name: "neq nil", p: NEQ("note", nil), wantSQL: "`orders`.`note` IS NOT NULL"},
		{name: "not null", p: NotNull("note"), wantSQL: "`orders`.`note` IS NOT NULL"},
		{name: "like", p: Like("note", "%rush%"), wantSQL: "`orders`.`note` LIKE ?", wantArgs: []any{"%rush%"}},
		{name: "in", p: In("version", 1, 2), wantSQL: "`orders`.`version` IN (?, ?)", wantArgs: []any{1, 2}},
		{name: "empty in", p: In("version"), wantSQL: "1 = 0"},
		{name: "empty not in", p: NotIn("version"), wantSQL: "1 = 1"},
		{name: "id in", p: IDIn(3), wantSQL: "`orders`.`id` IN (?)", wantArgs: []any{3}},
		{name: "empty or", p: Or(), wantSQL: "1 = 0"},
		{name: "empty and", p: And(), wantSQL: "1 = 1"},
		{
			name:     "or",
			p:        Or(version.LT(2), version.GTE(10)),
			wantSQL:  "(`orders`.`version` < ? OR `orders`.`version` >= ?)",
			wantArgs: []any{int64(2), int64(10)},
		},
		{
			name:     "not",
			p:        Not(And(EQ("version", 1), NotNull("note"))),
			wantSQL:  "NOT ((`orders`.`version` = ? AND `orders`.`note` IS NOT NULL))",
			wantArgs: []any{1},
		},
		{name: "expr", p: Expr("length(note) > ?", 3), wantSQL: "length(note) > ?", wantArgs: []any{3}},
		{
			name:     "natural key",
			p:        NaturalKey(&PurchaseOrder{Version: 4}),
			wantSQL:  "`orders`.`version` = ?",
			wantArgs: []any{int64(4)},
		},
		{name: "local relation", p: EQ("customer", 9), wantSQL: "`orders`.`customer_id` = ?", wantArgs: []any{9}},
		{
			name:     "joined relation",
			joins:    []*Join{J("lines")},
			p:        In("lines", 1, 2),
			wantSQL:  "`orders_lines_lines`.`id` IN (?, ?)",
			wantArgs: []any{1, 2},
		},
		{
			name:    "path reference",
			joins:   []*Join{J("lines", J("product"))},
			p:       PropCmp("note", OpNEQ, Ref("lines.product", "name")),
			wantSQL: "`orders`.`note` <> `orders_lines_lines_product_products`.`name`",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := compileWhere(t, "PurchaseOrder", tt.joins, tt.p)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestPredicates_Errors(t *testing.T) {
	tests := []struct {
		name  string
		joins []*Join
		p     Predicate
	}{
		{name: "placeholder mismatch", p: Expr("note = ? AND version = ?", 1)},
		{name: "unknown property", p: EQ("total", 1)},
		{name: "unjoined relation", p: In("lines", 1)},
		{name: "unjoined route", p: PropEQ("note", Ref("lines", "sku"))},
		{name: "foreign natural key", p: NaturalKey(&OrderLine{SKU: "A"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := compileWhere(t, "PurchaseOrder", tt.joins, tt.p)
			require.Error(t, err)
			assert.True(t, relgraph.IsIncoherentQuery(err), "unexpected error: %v", err)
		})
	}

	_, _, err := compileWhere(t, "Tag", nil, NaturalKey(&Tag{Label: "x"}))
	assert.True(t, relgraph.IsMappingError(err))

	_, _, err = compileWhere(t, "PurchaseOrder", nil, Expr("note = ? AND version = ?", 1))
	var qerr *relgraph.IncoherentQueryError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, 2, qerr.Placeholders)
	assert.Len(t, qerr.Args, 1)
}

func TestPredicates_Empty(t *testing.T) {
	sql, args, err := compileWhere(t, "PurchaseOrder", nil)
	require.NoError(t, err)
	assert.Empty(t, sql)
	assert.Empty(t, args)
}
