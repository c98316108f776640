package provider

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexStringAcceptsStringsAndNumbers(t *testing.T) {
	var v struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"12.50","b":2.1e3,"c":null}`), &v))

	assert.Equal(t, "12.50", v.A.String())
	assert.Equal(t, "12.5", v.A.Decimal().String())
	assert.Equal(t, "2100", v.B.Decimal().String())
	assert.True(t, v.C.Decimal().IsZero())
}

func TestFlexStringRejectsObjects(t *testing.T) {
	var v FlexString
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &v))
}
