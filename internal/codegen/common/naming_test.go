package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToPascalCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"DOUBLE_STYLE", "DoubleStyle"},
		{"CompareTo", "CompareTo"},
		{"compare_to", "CompareTo"},
		{"get-value", "GetValue"},
		{"round", "Round"},
		{"HTTP_proxy", "HttpProxy"},
		{"élan_vital", "ÉlanVital"},
		{"ÜBER_ALLES", "ÜberAlles"},
		{"__", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToPascalCase(tt.in), tt.in)
	}
}

func TestToCamelAndSnakeCase(t *testing.T) {
	assert.Equal(t, "compareTo", ToCamelCase("CompareTo"))
	assert.Equal(t, "", ToCamelCase(""))
	assert.Equal(t, "élanVital", ToCamelCase("ÉLAN_VITAL"))
	assert.Equal(t, "compare_to", ToSnakeCase("CompareTo"))
	assert.Equal(t, "xml_parser", ToSnakeCase("XMLParser"))
}

func TestFlatAndDottedName(t *testing.T) {
	assert.Equal(t, "Tizen_Base_Double", FlatName("Tizen::Base::Double"))
	assert.Equal(t, "Round", FlatName("::Round"))
	assert.Equal(t, "Tizen.Base", DottedName("Tizen::Base"))
	assert.Equal(t, "", DottedName(""))
}
