package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderedKVMapMarshalJSON(t *testing.T) {
	m := OrderedKVMap[int]{
		"c": {Value: 3, Order: 3},
		"a": {Value: 1, Order: 1},
		"b": {Value: 2, Order: 2},
	}

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2,"c":3}`, string(b))
}

func TestOrderedKVMapKeysTieBreak(t *testing.T) {
	m := OrderedKVMap[string]{
		"y": {Value: "dup", Order: 1},
		"x": {Value: "dup", Order: 1},
		"z": {Value: "first", Order: 0},
	}
	assert.Equal(t, []string{"z", "x", "y"}, m.Keys())
}

func TestOrderedKVMapEmpty(t *testing.T) {
	b, err := json.Marshal(OrderedKVMap[int]{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(b))
}
