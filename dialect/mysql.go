package dialect

import (
	"strconv"

	"github.com/syssam/relgraph/schema/field"
)

// NewMySQL returns the MySQL dialect. MySQL rejects LIMIT inside an IN
// subquery, so paged graphs default to the two-query strategy.
func NewMySQL() Dialect {
	return &Base{
		DialectName:      MySQL,
		IdentifierLength: 64,
		BatchInserts:     true,
		PagingMethod:     PagingLimitOffset,
		OffsetOnly:       "LIMIT 18446744073709551615",
		LockWithoutJoins: true,
		LockWithJoins:    true,
		Strategy:         StrategyTwoQueries,
		Parameters:       65535,
		Keys:             KeysLastInsertID,
		Placeholders:     Question,
		QuoteOpen:        "`",
		QuoteClose:       "`",
		Types:            map[field.Type]string{
			field.TypeBool:    "boolean",
			field.TypeInt:     "int",
			field.TypeInt64:   "bigint",
			field.TypeFloat64: "double",
			field.TypeBytes:   "blob",
			field.TypeTime:    "datetime(6)",
		},
		StringType:    func(size int) string { return "varchar(" + strconv.Itoa(size) + ")" },
		Identity:      func(typ string) string { return typ + " NOT NULL AUTO_INCREMENT PRIMARY KEY" },
		EmptyInsert:   "() VALUES ()",
		DefaultVarLen: 255,
	}
}
