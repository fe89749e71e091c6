package dialect

import (
	"strconv"

	"github.com/syssam/relgraph/schema/field"
)

// NewOracle returns the Oracle dialect. Identifiers are limited to 30
// bytes and an IN list accepts at most 1000 expressions.
func NewOracle() Dialect {
	return &Base{
		DialectName:      Oracle,
		IdentifierLength: 30,
		PagingMethod:     PagingOffsetFetch,
		LockWithoutJoins: true,
		Strategy:         StrategyExists,
		Parameters:       1000,
		Keys:             KeysNone,
		Placeholders:     Colon,
		QuoteOpen:        `"`,
		QuoteClose:       `"`,
		Types:            map[field.Type]string{
			field.TypeBool:    "NUMBER(1)",
			field.TypeInt:     "NUMBER(10)",
			field.TypeInt64:   "NUMBER(19)",
			field.TypeFloat64: "BINARY_DOUBLE",
			field.TypeBytes:   "BLOB",
			field.TypeTime:    "TIMESTAMP WITH TIME ZONE",
		},
		StringType:    func(size int) string { return "VARCHAR2(" + strconv.Itoa(size) + ")" },
		Identity:      func(typ string) string { return typ + " GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY" },
		Sequences:     true,
		NextValue:     func(seq string) string { return "SELECT " + seq + ".NEXTVAL FROM DUAL" },
		EmptyInsert:   "VALUES (DEFAULT)",
		DefaultVarLen: 255,
	}
}
