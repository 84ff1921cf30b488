package csharp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Alia5/bindgen/internal/codegen/symtab"
)

func enumDecl(values ...string) *symtab.Declaration {
	e := &symtab.Declaration{Name: "E", QualifiedName: "E", Kind: symtab.KindEnum}
	for i, v := range values {
		e.Enumerators = append(e.Enumerators, symtab.Enumerator{Name: string(rune('A' + i)), Value: v})
	}
	return e
}

func TestIsFlags(t *testing.T) {
	assert.True(t, isFlags(enumDecl("0", "1", "2", "4")))
	assert.True(t, isFlags(enumDecl("0x1", "1 << 1", "A | B")))
	assert.False(t, isFlags(enumDecl("1", "2", "3")))
	assert.False(t, isFlags(enumDecl("1", "")))
	assert.False(t, isFlags(enumDecl("1")))
	assert.False(t, isFlags(enumDecl("1", "1")))
}

func TestEnumValue(t *testing.T) {
	members := map[string]string{"KEY_A": "A", "KEY_B": "B"}
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"4", "4", true},
		{"0x10u", "0x10", true},
		{"100ULL", "100", true},
		{"KEY_A | KEY_B", "A | B", true},
		{"Ns::KEY_A + 1", "A + 1", true},
		{"OTHER_CONSTANT", "OTHER_CONSTANT", false},
		{"sizeof(int)", "sizeof(int)", false},
	}
	for _, tt := range tests {
		got, ok := enumValue(tt.in, members)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.in)
		}
	}
}

func TestEnumMembersFallBackOnCollision(t *testing.T) {
	e := &symtab.Declaration{Enumerators: []symtab.Enumerator{{Name: "STYLE_A"}, {Name: "STYLE_B"}}}
	assert.Equal(t, map[string]string{"STYLE_A": "A", "STYLE_B": "B"}, enumMembers(e))

	e = &symtab.Declaration{Enumerators: []symtab.Enumerator{{Name: "STYLE_A_B"}, {Name: "STYLE_a_b"}}}
	assert.Equal(t, map[string]string{"STYLE_A_B": "STYLE_A_B", "STYLE_a_b": "STYLE_a_b"}, enumMembers(e))
}

func TestMemberName(t *testing.T) {
	assert.Equal(t, "CompareTo", memberName("CompareTo", "Double"))
	assert.Equal(t, "ToString_", memberName("ToString", "Double"))
	assert.Equal(t, "Double_", memberName("Double", "Double"))
	assert.Equal(t, "GetValue", memberName("get_value", "Double"))
}

func TestIdentEscapesKeywords(t *testing.T) {
	assert.Equal(t, "@params", ident("params"))
	assert.Equal(t, "value", ident("value"))
	assert.Equal(t, "self_", paramName(symtab.Param{Name: "self"}, 0))
	assert.Equal(t, "arg2", paramName(symtab.Param{}, 2))
	assert.Equal(t, "@object", paramName(symtab.Param{Name: "object"}, 0))
}

func TestCsFileName(t *testing.T) {
	assert.Equal(t, "FBaseDouble.cs", csFileName("FBaseDouble.h"))
	assert.Equal(t, "base/FBaseDouble.cs", csFileName(`base\FBaseDouble.hpp`))
	assert.Equal(t, "osp/FBaseDouble.cs", csFileName("../osp/FBaseDouble.h"))
	assert.Equal(t, "osp/FBaseDouble.cs", csFileName("../../osp/./FBaseDouble.h"))
	assert.Equal(t, "FBaseDouble.cs", csFileName("/opt/tizen/include/FBaseDouble.h"))
	assert.Equal(t, "FBaseDouble.cs", csFileName(`C:\tizen\include\FBaseDouble.h`))
	assert.Equal(t, "FBase.cs", csFileName("base/../FBase.h"))
}
