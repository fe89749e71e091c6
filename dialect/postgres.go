package dialect

import (
	"strconv"

	"github.com/syssam/relgraph/schema/field"
)

// NewPostgres returns the PostgreSQL dialect. FOR UPDATE cannot lock the
// nullable side of an outer join, so locking is limited to unjoined selects.
func NewPostgres() Dialect {
	return &Base{
		DialectName:      Postgres,
		IdentifierLength: 63,
		BatchInserts:     true,
		PagingMethod:     PagingLimitOffset,
		LockWithoutJoins: true,
		Strategy:         StrategyIn,
		Parameters:       65535,
		Keys:             KeysReturning,
		Placeholders:     Dollar,
		QuoteOpen:        `"`,
		QuoteClose:       `"`,
		Types:            map[field.Type]string{
			field.TypeBool:    "boolean",
			field.TypeInt:     "integer",
			field.TypeInt64:   "bigint",
			field.TypeFloat64: "double precision",
			field.TypeBytes:   "bytea",
			field.TypeTime:    "timestamp with time zone",
		},
		StringType:    func(size int) string { return "varchar(" + strconv.Itoa(size) + ")" },
		Identity:      postgresIdentity,
		Sequences:     true,
		NextValue:     func(seq string) string { return "SELECT nextval('" + seq + "')" },
		EmptyInsert:   "DEFAULT VALUES",
		DefaultVarLen: 255,
	}
}

func postgresIdentity(typ string) string {
	if typ == "integer" {
		return "serial PRIMARY KEY"
	}
	return "bigserial PRIMARY KEY"
}
