package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleInput struct {
	ServiceName string   `json:"serviceName" validate:"required,max=16,identifier"`
	MetricType  string   `json:"metricType" validate:"required"`
	Value       *float64 `json:"value" validate:"required"`
	Note        string   `json:"-" validate:"max=3"`
}

func TestStruct(t *testing.T) {
	v := 150.5
	zero := 0.0

	tests := []struct {
		name    string
		input   sampleInput
		wantErr string
	}{
		{name: "valid", input: sampleInput{ServiceName: "svc", MetricType: "latency", Value: &v}},
		{name: "zero value is present", input: sampleInput{ServiceName: "svc", MetricType: "latency", Value: &zero}},
		{name: "missing value", input: sampleInput{ServiceName: "svc", MetricType: "latency"}, wantErr: "Missing required field: value"},
		{name: "missing service", input: sampleInput{MetricType: "latency", Value: &v}, wantErr: "Missing required field: serviceName"},
		{name: "missing metric type", input: sampleInput{ServiceName: "svc", Value: &v}, wantErr: "Missing required field: metricType"},
		{name: "too long", input: sampleInput{ServiceName: strings.Repeat("a", 17), MetricType: "x", Value: &v}, wantErr: "Field serviceName must be at most 16 characters"},
		{name: "bad identifier", input: sampleInput{ServiceName: "-svc", MetricType: "x", Value: &v}, wantErr: "Field serviceName must start with a letter or digit"},
		{name: "ignored json name falls back to struct name", input: sampleInput{ServiceName: "svc", MetricType: "x", Value: &v, Note: "long"}, wantErr: "Field Note must be at most 3 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(&tt.input)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStruct_NotAStruct(t *testing.T) {
	assert.Error(t, Struct("nope"))
}

func TestIdentifier(t *testing.T) {
	assert.True(t, Identifier("api-service"))
	assert.True(t, Identifier("payments.v2:eu/1"))
	assert.False(t, Identifier(""))
	assert.False(t, Identifier("has space"))
	assert.False(t, Identifier("_leading"))
	assert.False(t, Identifier(strings.Repeat("a", 129)))
}
