package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{"joins with underscore", []string{"out", "offering", "temp"}, "out_offering_temp"},
		{"colon", []string{"urn:ogc:temperature"}, "urn_ogc_temperature"},
		{"dash and dot", []string{"sensor-1", "v1.0"}, "sensor_1_v1_0"},
		{"mixed", []string{"a:b-c.d"}, "a_b_c_d"},
		{"already clean", []string{"clean_name"}, "clean_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.parts...))
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{"a:b-c.d", "x y", "urn:ogc:def:property:temperature", ""}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once))
		assert.NotContains(t, once, ":")
		assert.NotContains(t, once, "-")
		assert.NotContains(t, once, ".")
	}
}

func TestSanitizeStrictReplacesSpaces(t *testing.T) {
	assert.Equal(t, "Sensor_Type_a_b", SanitizeStrict("Sensor Type", "a:b"))
}
