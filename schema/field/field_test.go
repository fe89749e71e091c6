package field

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeOf(t *testing.T) {
	tests := []struct {
		v    any
		want Type
	}{
		{true, TypeBool},
		{int(1), TypeInt},
		{int32(1), TypeInt},
		{int64(1), TypeInt64},
		{float32(1), TypeFloat64},
		{"s", TypeString},
		{[]byte("b"), TypeBytes},
		{time.Time{}, TypeTime},
		{new(string), TypeString},
		{struct{}{}, TypeInvalid},
		{[]int{}, TypeInvalid},
	}
	for _, tt := range tests {
		t.Run(reflect.TypeOf(tt.v).String(), func(t *testing.T) {
			assert.Equal(t, tt.want, TypeOf(reflect.TypeOf(tt.v)))
		})
	}
}

func TestParseType(t *testing.T) {
	for _, typ := range []Type{TypeBool, TypeInt, TypeInt64, TypeFloat64, TypeString, TypeBytes, TypeTime} {
		got, err := ParseType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
		assert.True(t, got.Valid())
	}
	_, err := ParseType("decimal")
	assert.Error(t, err)
	_, err = ParseType("invalid")
	assert.Error(t, err)
	assert.False(t, TypeInvalid.Valid())
	assert.Equal(t, "type(42)", Type(42).String())
}

func TestColumnString(t *testing.T) {
	assert.Equal(t, "sku", (&Column{Name: "sku", Column: "sku"}).String())
	assert.Equal(t, "customer(customer_id)", (&Column{Name: "customer", Column: "customer_id"}).String())
	assert.True(t, TypeInt64.Numeric())
	assert.False(t, TypeString.Numeric())
}
