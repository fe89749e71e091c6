package dialect

import "github.com/syssam/relgraph/schema/field"

// NewSQLite returns the SQLite dialect. SQLite has no row locks.
func NewSQLite() Dialect {
	return &Base{
		DialectName:  SQLite,
		BatchInserts: true,
		PagingMethod: PagingLimitOffset,
		OffsetOnly:   "LIMIT -1",
		Strategy:     StrategyIn,
		Parameters:   999,
		Keys:         KeysLastInsertID,
		Placeholders: Question,
		QuoteOpen:    "`",
		QuoteClose:   "`",
		Types:        map[field.Type]string{
			field.TypeBool:    "bool",
			field.TypeInt:     "integer",
			field.TypeInt64:   "integer",
			field.TypeFloat64: "real",
			field.TypeString:  "text",
			field.TypeBytes:   "blob",
			field.TypeTime:    "datetime",
		},
		Identity:    func(string) string { return "integer PRIMARY KEY AUTOINCREMENT" },
		EmptyInsert: "DEFAULT VALUES",
	}
}
