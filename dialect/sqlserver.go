package dialect

import (
	"strconv"

	"github.com/syssam/relgraph/schema/field"
)

// NewSQLServer returns the SQL Server dialect. Rows are locked with a table
// hint on the root table, which does not extend to joined tables.
func NewSQLServer() Dialect {
	return &Base{
		DialectName:      SQLServer,
		IdentifierLength: 128,
		PagingMethod:     PagingOffsetFetch,
		LockWithoutJoins: true,
		LockHint:         "WITH (UPDLOCK, ROWLOCK)",
		Strategy:         StrategyExists,
		Parameters:       2000,
		Keys:             KeysOutput,
		Placeholders:     AtP,
		QuoteOpen:        "[",
		QuoteClose:       "]",
		Types:            map[field.Type]string{
			field.TypeBool:    "bit",
			field.TypeInt:     "int",
			field.TypeInt64:   "bigint",
			field.TypeFloat64: "float",
			field.TypeBytes:   "varbinary(max)",
			field.TypeTime:    "datetimeoffset",
		},
		StringType:    func(size int) string { return "nvarchar(" + strconv.Itoa(size) + ")" },
		Identity:      func(typ string) string { return typ + " IDENTITY(1,1) PRIMARY KEY" },
		Sequences:     true,
		NextValue:     func(seq string) string { return "SELECT NEXT VALUE FOR " + seq },
		EmptyInsert:   "DEFAULT VALUES",
		DefaultVarLen: 255,
	}
}
