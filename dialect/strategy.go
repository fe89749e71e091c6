package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/schema/field"
)

// Paging is the way a dialect pages a SELECT.
type Paging uint8

// Paging methods.
const (
	PagingDefault Paging = iota
	// PagingLimitOffset appends LIMIT n OFFSET m.
	PagingLimitOffset
	// PagingOffsetFetch appends OFFSET m ROWS FETCH NEXT n ROWS ONLY.
	PagingOffsetFetch
	// PagingTwoQueries pages the identifier list of a first query in memory.
	PagingTwoQueries
)

// String returns the configuration name of the paging method.
func (p Paging) String() string {
	switch p {
	case PagingLimitOffset:
		return relgraph.PagingLimitOffset
	case PagingOffsetFetch:
		return relgraph.PagingOffsetFetch
	case PagingTwoQueries:
		return relgraph.PagingTwoQueries
	default:
		return "default"
	}
}

// ParsePaging parses a configuration paging name. The empty string is
// PagingDefault.
func ParsePaging(s string) (Paging, error) {
	switch s {
	case "":
		return PagingDefault, nil
	case relgraph.PagingLimitOffset:
		return PagingLimitOffset, nil
	case relgraph.PagingOffsetFetch:
		return PagingOffsetFetch, nil
	case relgraph.PagingTwoQueries:
		return PagingTwoQueries, nil
	}
	return PagingDefault, fmt.Errorf("dialect: unknown paging method %q", s)
}

// Strategy is a select strategy: the SQL shape used to fetch a joined graph
// without duplicating root rows.
type Strategy uint8

// Select strategies.
const (
	StrategyDefault Strategy = iota
	// StrategyExists filters roots with a correlated EXISTS subquery.
	StrategyExists
	// StrategyIn filters roots with an IN subquery over root identifiers.
	StrategyIn
	// StrategyTwoQueries resolves root identifiers with a first query and
	// fetches the graph with a second one.
	StrategyTwoQueries
)

// String returns the configuration name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyExists:
		return relgraph.StrategyExists
	case StrategyIn:
		return relgraph.StrategyIn
	case StrategyTwoQueries:
		return relgraph.StrategyTwoQueries
	default:
		return "default"
	}
}

// ParseStrategy parses a configuration strategy name. The empty string is
// StrategyDefault.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "":
		return StrategyDefault, nil
	case relgraph.StrategyExists:
		return StrategyExists, nil
	case relgraph.StrategyIn:
		return StrategyIn, nil
	case relgraph.StrategyTwoQueries:
		return StrategyTwoQueries, nil
	}
	return StrategyDefault, fmt.Errorf("dialect: unknown select strategy %q", s)
}

// GeneratedKeys is the way generated identifiers are read back after an
// INSERT.
type GeneratedKeys uint8

// Generated key methods.
const (
	// KeysNone means generated keys cannot be read back.
	KeysNone GeneratedKeys = iota
	// KeysLastInsertID reads sql.Result.LastInsertId.
	KeysLastInsertID
	// KeysReturning appends RETURNING id and reads the returned row.
	KeysReturning
	// KeysOutput adds OUTPUT INSERTED.id and reads the returned row.
	KeysOutput
)

// Placeholder is the native placeholder style.
type Placeholder uint8

// Placeholder styles.
const (
	// Question is the '?' style.
	Question Placeholder = iota
	// Dollar is the '$1' style.
	Dollar
	// Colon is the ':1' style.
	Colon
	// AtP is the '@p1' style.
	AtP
)

// Base implements Dialect from a table of capabilities. The concrete
// dialects are Base values.
type Base struct {
	DialectName      string
	IdentifierLength int
	BatchInserts     bool
	PagingMethod     Paging
	// OffsetOnly is the LIMIT clause emitted before a bare OFFSET, for
	// dialects that cannot offset without a limit.
	OffsetOnly       string
	LockWithoutJoins bool
	LockWithJoins    bool
	// LockHint is a table hint used instead of FOR UPDATE.
	LockHint      string
	Strategy      Strategy
	Parameters    int
	Keys          GeneratedKeys
	Placeholders  Placeholder
	QuoteOpen     string
	QuoteClose    string
	Types         map[field.Type]string
	StringType    func(size int) string
	Identity      func(typ string) string
	Sequences     bool
	NextValue     func(quoted string) string
	EmptyInsert   string
	DefaultVarLen int
}

var _ Dialect = (*Base)(nil)

// Name implements Dialect.
func (b *Base) Name() string { return b.DialectName }

// MaxIdentifierLength implements Dialect.
func (b *Base) MaxIdentifierLength() int { return b.IdentifierLength }

// SupportsBatchInserts implements Dialect.
func (b *Base) SupportsBatchInserts() bool { return b.BatchInserts }

// Paging implements Dialect.
func (b *Base) Paging() Paging { return b.PagingMethod }

// SupportsLocking implements Dialect.
func (b *Base) SupportsLocking(withJoins bool) bool {
	if withJoins {
		return b.LockWithJoins
	}
	return b.LockWithoutJoins
}

// SelectStrategy implements Dialect.
func (b *Base) SelectStrategy() Strategy { return b.Strategy }

// MaxParameters implements Dialect.
func (b *Base) MaxParameters() int { return b.Parameters }

// GeneratedKeys implements Dialect.
func (b *Base) GeneratedKeys() GeneratedKeys { return b.Keys }

// SQLType implements Dialect.
func (b *Base) SQLType(c *field.Column) string {
	if c.Type == field.TypeString && b.StringType != nil {
		size := c.Size
		if size <= 0 {
			size = b.DefaultVarLen
		}
		return b.StringType(size)
	}
	if t, ok := b.Types[c.Type]; ok {
		return t
	}
	return "TEXT"
}

// Quote implements Dialect.
func (b *Base) Quote(ident string) string {
	return b.QuoteOpen + strings.ReplaceAll(ident, b.QuoteClose, b.QuoteClose+b.QuoteClose) + b.QuoteClose
}

// QuoteTable implements Dialect.
func (b *Base) QuoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i := range parts {
		parts[i] = b.Quote(parts[i])
	}
	return strings.Join(parts, ".")
}

// Rebind implements Dialect.
func (b *Base) Rebind(query string) string {
	if b.Placeholders == Question {
		return query
	}
	var (
		sb   strings.Builder
		last int
		n    int
	)
	sb.Grow(len(query) + 8)
	scanPlaceholders(query, func(i int) {
		n++
		sb.WriteString(query[last:i])
		switch b.Placeholders {
		case Dollar:
			sb.WriteByte('$')
		case Colon:
			sb.WriteByte(':')
		case AtP:
			sb.WriteString("@p")
		}
		sb.WriteString(strconv.Itoa(n))
		last = i + 1
	})
	sb.WriteString(query[last:])
	return sb.String()
}

// NextValueSQL implements Dialect.
func (b *Base) NextValueSQL(sequence string) (string, bool) {
	if !b.Sequences || b.NextValue == nil {
		return "", false
	}
	return b.NextValue(sequence), true
}

// SelectSQL implements Dialect.
func (b *Base) SelectSQL(c SelectClauses) string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if c.Distinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(strings.Join(c.Columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(c.From)
	if c.Lock && b.LockHint != "" {
		sb.WriteString(" " + b.LockHint)
	}
	for _, j := range c.Joins {
		sb.WriteString(" " + j)
	}
	if c.Where != "" {
		sb.WriteString(" WHERE " + c.Where)
	}
	if len(c.OrderBy) > 0 {
		sb.WriteString(" ORDER BY " + strings.Join(c.OrderBy, ", "))
	}
	if c.Paged() {
		switch b.PagingMethod {
		case PagingOffsetFetch:
			sb.WriteString(" OFFSET " + strconv.Itoa(c.Offset) + " ROWS")
			if c.Limit > 0 {
				sb.WriteString(" FETCH NEXT " + strconv.Itoa(c.Limit) + " ROWS ONLY")
			}
		default:
			switch {
			case c.Limit > 0:
				sb.WriteString(" LIMIT " + strconv.Itoa(c.Limit))
			case b.OffsetOnly != "":
				sb.WriteString(" " + b.OffsetOnly)
			}
			if c.Offset > 0 {
				sb.WriteString(" OFFSET " + strconv.Itoa(c.Offset))
			}
		}
	}
	if c.Lock && b.LockHint == "" {
		sb.WriteString(" FOR UPDATE")
	}
	return sb.String()
}

// InsertSQL implements Dialect.
func (b *Base) InsertSQL(table string, columns []string, id string) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(b.QuoteTable(table))
	if len(columns) > 0 {
		sb.WriteString(" (")
		for i, c := range columns {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(b.Quote(c))
		}
		sb.WriteString(")")
	}
	if id != "" && b.Keys == KeysOutput {
		sb.WriteString(" OUTPUT INSERTED." + b.Quote(id))
	}
	if len(columns) == 0 {
		sb.WriteString(" " + b.EmptyInsert)
	} else {
		sb.WriteString(" VALUES (")
		sb.WriteString(strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "))
		sb.WriteString(")")
	}
	if id != "" && b.Keys == KeysReturning {
		sb.WriteString(" RETURNING " + b.Quote(id))
	}
	return sb.String()
}

// UpdateSQL implements Dialect.
func (b *Base) UpdateSQL(table string, columns []string, where string) string {
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(b.QuoteTable(table))
	sb.WriteString(" SET ")
	for i, c := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(b.Quote(c) + " = ?")
	}
	if where != "" {
		sb.WriteString(" WHERE " + where)
	}
	return sb.String()
}

// DeleteSQL implements Dialect.
func (b *Base) DeleteSQL(table, where string) string {
	s := "DELETE FROM " + b.QuoteTable(table)
	if where != "" {
		s += " WHERE " + where
	}
	return s
}

// CreateTableSQL implements Dialect.
func (b *Base) CreateTableSQL(table string, columns []ColumnDef) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		def := b.Quote(c.Name) + " "
		switch {
		case c.PrimaryKey && c.AutoIncrement && b.Identity != nil:
			def += b.Identity(c.Type)
		case c.PrimaryKey:
			def += c.Type + " NOT NULL PRIMARY KEY"
		case c.Nullable:
			def += c.Type + " NULL"
		default:
			def += c.Type + " NOT NULL"
		}
		defs[i] = def
	}
	return "CREATE TABLE " + b.QuoteTable(table) + " (" + strings.Join(defs, ", ") + ")"
}

// CreateSequenceSQL implements Dialect.
func (b *Base) CreateSequenceSQL(name string) (string, bool) {
	if !b.Sequences {
		return "", false
	}
	return "CREATE SEQUENCE " + b.QuoteTable(name), true
}

// DropTableSQL implements Dialect.
func (b *Base) DropTableSQL(table string) string {
	return "DROP TABLE " + b.QuoteTable(table)
}

// Placeholders returns the number of '?' placeholders in query, ignoring
// those inside quoted strings and identifiers.
func Placeholders(query string) int {
	var n int
	scanPlaceholders(query, func(int) { n++ })
	return n
}

// scanPlaceholders calls fn with the byte offset of every '?' placeholder
// outside quoted strings and identifiers.
func scanPlaceholders(query string, fn func(i int)) {
	var closing byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case closing != 0:
			if c == closing {
				closing = 0
			}
		case c == '\'' || c == '"' || c == '`':
			closing = c
		case c == '[':
			closing = ']'
		case c == '?':
			fn(i)
		}
	}
}
