package dialect

import (
	"strconv"

	"github.com/syssam/relgraph/schema/field"
)

// NewH2 returns the H2 dialect.
func NewH2() Dialect {
	return &Base{
		DialectName:      H2,
		IdentifierLength: 256,
		BatchInserts:     true,
		PagingMethod:     PagingLimitOffset,
		LockWithoutJoins: true,
		Strategy:         StrategyIn,
		Parameters:       1000,
		Keys:             KeysLastInsertID,
		Placeholders:     Question,
		QuoteOpen:        `"`,
		QuoteClose:       `"`,
		Types:            map[field.Type]string{
			field.TypeBool:    "BOOLEAN",
			field.TypeInt:     "INTEGER",
			field.TypeInt64:   "BIGINT",
			field.TypeFloat64: "DOUBLE PRECISION",
			field.TypeBytes:   "VARBINARY",
			field.TypeTime:    "TIMESTAMP WITH TIME ZONE",
		},
		StringType:    func(size int) string { return "VARCHAR(" + strconv.Itoa(size) + ")" },
		Identity:      func(typ string) string { return typ + " AUTO_INCREMENT PRIMARY KEY" },
		Sequences:     true,
		NextValue:     func(seq string) string { return "SELECT NEXT VALUE FOR " + seq },
		EmptyInsert:   "DEFAULT VALUES",
		DefaultVarLen: 255,
	}
}
