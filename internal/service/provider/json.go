package provider

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// FlexString decodes a JSON string or number into its textual form. Several providers
// send numeric fields as strings, some mix both.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// Decimal parses the value, returning zero for empty or malformed input.
func (f FlexString) Decimal() decimal.Decimal {
	d, err := decimal.NewFromString(string(f))
	if err != nil {
		return decimal.Zero
	}
	return d
}
