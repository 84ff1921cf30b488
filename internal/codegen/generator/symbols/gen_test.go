package symbols_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Alia5/bindgen/internal/codegen/common"
	"github.com/Alia5/bindgen/internal/codegen/generator/symbols"
	"github.com/Alia5/bindgen/internal/codegen/typemap"
	bgtest "github.com/Alia5/bindgen/internal/testing"
)

func TestGenerateDumpsTable(t *testing.T) {
	md := bgtest.DoubleMetadata(t)
	require.NoError(t, md.Types.Register("Tizen::Base::String", typemap.Mapping{Target: "string", Strategy: typemap.BuiltinEquivalent, Marshal: "LPWStr"}))

	dir := t.TempDir()
	w := common.NewWriter(dir, bgtest.DiscardLogger())
	require.NoError(t, symbols.Generate(bgtest.DiscardLogger(), w, md))
	assert.Equal(t, []string{"Tizen.symbols.yaml"}, w.Written())

	data, err := os.ReadFile(filepath.Join(dir, symbols.FileName("Tizen")))
	require.NoError(t, err)

	var doc symbols.Document
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "Tizen", doc.Library)
	assert.Equal(t, "1.2.3", doc.Version)
	assert.Equal(t, []string{bgtest.Header}, doc.Headers)
	assert.Equal(t, md.Table.Stats(), doc.Stats)
	assert.Len(t, doc.Decls, len(md.Table.Decls))
	assert.Equal(t, "LPWStr", doc.Mappings["Tizen::Base::String"].Marshal)
	assert.Equal(t, "Tizen_Tizen_Base_Double_CompareTo_1", doc.Shims["Tizen::Base::Double::CompareTo(double) const"])
	require.Len(t, doc.Skipped, 1)
	assert.Equal(t, "Tizen::Base::BaseFunctions::Attach(Widget*)", doc.Skipped[0].Declaration)
}
