package plan

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDocument(t *testing.T) {
	raw, err := json.Marshal(wavePlans())
	require.NoError(t, err)

	plans, err := DecodeDocument(raw)
	require.NoError(t, err)
	assert.Equal(t, wavePlans(), plans)
}

func TestDecodeDocumentRejects(t *testing.T) {
	tests := map[string]string{
		"not json":         `{`,
		"not an array":     `{"filter_metric_name":"Gender","targets":[]}`,
		"missing name":     `[{"targets":[]}]`,
		"negative target":  `[{"filter_metric_name":"Gender","targets":[{"filter_metric_entity_id":1,"target":-1}]}]`,
		"unknown property": `[{"filter_metric_name":"Gender","targets":[],"weight":2}]`,
		"fractional id":    `[{"filter_metric_name":"Gender","targets":[{"filter_metric_entity_id":1.5}]}]`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeDocument([]byte(raw))
			assert.Error(t, err)
		})
	}
}
