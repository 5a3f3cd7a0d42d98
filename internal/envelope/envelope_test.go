package envelope

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/model"
)

func decodeJSON(t *testing.T, s string) any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

func TestDecode_allShapesFlatten(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantLen   int
		wantTotal int
	}{
		{"data.items", `{"data":{"items":[{"id":1},{"id":2}],"total":40,"page":2,"page_size":2}}`, 2, 40},
		{"data array", `{"data":[{"id":1},{"id":2},{"id":3}]}`, 3, 3},
		{"items", `{"items":[{"id":1}],"total":"7"}`, 1, 7},
		{"bare array", `[{"id":1},{"id":2}]`, 2, 2},
		{"null", `null`, 0, 0},
		{"empty object", `{}`, 0, 0},
		{"data null", `{"data":null}`, 0, 0},
		{"scalar", `42`, 0, 0},
		{"data object without items", `{"data":{"id":1}}`, 0, 0},
		{"non-object items dropped", `[{"id":1}, 2, "x"]`, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, meta := Decode(decodeJSON(t, tt.body))
			require.NotNil(t, items)
			assert.Len(t, items, tt.wantLen)
			assert.Equal(t, tt.wantTotal, meta.Total)
		})
	}
}

func TestDecode_meta(t *testing.T) {
	_, meta := Decode(decodeJSON(t, `{"data":{"items":[{"id":1}],"page":3,"page_size":25,"total":51}}`))
	assert.Equal(t, Meta{Page: 3, PageSize: 25, Total: 51}, meta)

	_, meta = Decode(map[string]any{"total": 9.0, "data": []any{}})
	assert.Equal(t, 9, meta.Total)
}

func TestDecode_nilAndGoSlices(t *testing.T) {
	items, _ := Decode(nil)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	items, _ = Decode([]map[string]any{{"id": 1}})
	assert.Len(t, items, 1)
}

func TestDecodeInto(t *testing.T) {
	body := decodeJSON(t, `{"data":{"items":[
		{"id":11,"arrival_no":"AR-1","status":"DELAYED","expected_qty":10,"delay_days":3},
		{"id":12,"arrival_no":"AR-2","status":"PENDING","expected_qty":5.5}
	],"total":2}}`)

	arrivals, meta, err := DecodeInto[model.Arrival](body)
	require.NoError(t, err)
	require.Len(t, arrivals, 2)
	assert.Equal(t, int64(11), arrivals[0].ID)
	assert.Equal(t, model.ArrivalDelayed, arrivals[0].Status)
	assert.Equal(t, 3, arrivals[0].DelayDays)
	assert.InDelta(t, 5.5, arrivals[1].ExpectedQty, 1e-9)
	assert.Equal(t, 2, meta.Total)
}

func TestDecodeInto_emptyIsNonNil(t *testing.T) {
	arrivals, _, err := DecodeInto[model.Arrival](nil)
	require.NoError(t, err)
	assert.NotNil(t, arrivals)
}

func TestDecodeInto_typeMismatch(t *testing.T) {
	arrivals, _, err := DecodeInto[model.Arrival](decodeJSON(t, `[{"id":"not-a-number"}]`))
	assert.Error(t, err)
	assert.NotNil(t, arrivals)
}

func TestDecodeObject(t *testing.T) {
	c, err := DecodeObject[model.Customer](decodeJSON(t, `{"data":{"id":5,"customer_name":"ACME"}}`))
	require.NoError(t, err)
	assert.Equal(t, "ACME", c.CustomerName)

	c, err = DecodeObject[model.Customer](decodeJSON(t, `{"id":6,"customer_name":"Bare"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(6), c.ID)

	_, err = DecodeObject[model.Customer](decodeJSON(t, `[1,2]`))
	assert.Error(t, err)
}
