package csharp

import (
	"log/slog"
	"strings"
	"text/template"

	"github.com/Alia5/bindgen/internal/codegen/common"
	"github.com/Alia5/bindgen/internal/codegen/symtab"
)

type externFunc struct {
	Symbol     string
	Signature  string
	Return     string
	ReturnAttr string
	Params     string
}

const interopTemplate = `// <auto-generated>
//     Generated by bindgen {{.Version}} for {{.TargetTriple}}. Do not edit.
// </auto-generated>
using System;
using System.Runtime.InteropServices;
{{- if .Utf32}}
using System.Text;
{{- end}}
{{if .Namespace}}
namespace {{.Namespace}}
{
{{end}}
/// <summary>
/// Base of every generated wrapper. Owns the native instance when created
/// through a constructor or returned by value.
/// </summary>
public abstract class NativeObject : IDisposable
{
    internal IntPtr __Instance;
    private readonly bool __ownsHandle;

    protected NativeObject(IntPtr handle, bool ownsHandle)
    {
        __Instance = handle;
        __ownsHandle = ownsHandle;
    }

    public IntPtr Handle => __Instance;

    protected virtual void Delete(IntPtr handle)
    {
    }

    internal static T __Wrap<T>(IntPtr handle, Func<IntPtr, bool, T> make, bool ownsHandle) where T : NativeObject
    {
        return handle == IntPtr.Zero ? null : make(handle, ownsHandle);
    }

    public void Dispose()
    {
        Dispose(true);
        GC.SuppressFinalize(this);
    }

    protected virtual void Dispose(bool disposing)
    {
        if (__Instance == IntPtr.Zero)
        {
            return;
        }
        if (__ownsHandle)
        {
            Delete(__Instance);
        }
        __Instance = IntPtr.Zero;
    }

    ~NativeObject()
    {
        Dispose(false);
    }
}
{{if .Utf32}}
/// <summary>
/// Marshals strings as NUL-terminated UTF-32 buffers, the layout of wchar_t
/// on {{.TargetTriple}}. Strings passed in are copied and freed after the call;
/// returned strings stay owned by the native side.
/// </summary>
public sealed class Utf32StringMarshaler : ICustomMarshaler
{
    private static readonly Utf32StringMarshaler Instance = new Utf32StringMarshaler();

    public static ICustomMarshaler GetInstance(string cookie) => Instance;

    public static string FromNative(IntPtr native)
    {
        if (native == IntPtr.Zero)
        {
            return null;
        }
        int length = 0;
        while (Marshal.ReadInt32(native, length * 4) != 0)
        {
            length++;
        }
        byte[] bytes = new byte[length * 4];
        Marshal.Copy(native, bytes, 0, bytes.Length);
        return Encoding.UTF32.GetString(bytes);
    }

    public IntPtr MarshalManagedToNative(object managed)
    {
        if (managed is not string s)
        {
            return IntPtr.Zero;
        }
        byte[] bytes = Encoding.UTF32.GetBytes(s + "\0");
        IntPtr native = Marshal.AllocHGlobal(bytes.Length);
        Marshal.Copy(bytes, 0, native, bytes.Length);
        return native;
    }

    public object MarshalNativeToManaged(IntPtr native) => FromNative(native);

    public void CleanUpNativeData(IntPtr native) => Marshal.FreeHGlobal(native);

    public void CleanUpManagedData(object managed)
    {
    }

    public int GetNativeDataSize() => -1;
}
{{end}}
/// <summary>
/// Raw entry points of the {{.Library}} shim.
/// </summary>
public static partial class NativeMethods
{
    public const string LibraryName = "{{.Library}}";
{{range .Externs}}
    /// <summary><c>{{.Signature}}</c></summary>
    [DllImport(LibraryName, CallingConvention = CallingConvention.Cdecl)]
{{- if .ReturnAttr}}
    {{.ReturnAttr}}
{{- end}}
    public static extern {{.Return}} {{.Symbol}}({{.Params}});
{{end}}}
{{- if .Namespace}}
}
{{- end}}
`

var interopTmpl = template.Must(template.New("interop").Parse(interopTemplate))

func (g *generator) externFor(d *symtab.Declaration) externFunc {
	scope := common.ResolveScope(d)
	var params []string
	if instance(d) {
		params = append(params, "IntPtr self")
	}
	for i, p := range d.Params {
		params = append(params, g.m.interopParam(g.ix.Resolve(p.Type, scope), paramName(p, i)))
	}
	f := externFunc{
		Symbol:    g.ix.Shim(d),
		Signature: escapeXML(d.Key()),
		Params:    strings.Join(params, ", "),
		Return:    "IntPtr",
	}
	if d.Kind != symtab.KindConstructor {
		ret := g.ix.Resolve(d.Type, scope)
		f.Return = g.m.interopType(ret)
		f.ReturnAttr = g.m.returnAttr(ret)
	}
	return f
}

func (g *generator) externs() []externFunc {
	var out []externFunc
	for _, cls := range g.ix.Classes() {
		for _, d := range g.ix.Callables(cls) {
			out = append(out, g.externFor(d))
		}
		if g.ix.HasDelete(cls) {
			out = append(out, externFunc{
				Symbol:    g.ix.Shim(cls),
				Signature: escapeXML("delete " + cls.Native),
				Return:    "void",
				Params:    "IntPtr self",
			})
		}
	}
	for _, fn := range g.ix.FreeFunctions() {
		out = append(out, g.externFor(fn))
	}
	return out
}

func generateInterop(logger *slog.Logger, w *common.Writer, g *generator) error {
	data := struct {
		Version      string
		TargetTriple string
		Namespace    string
		Library      string
		Utf32        bool
		Externs      []externFunc
	}{
		Version:      g.md.Version.String(),
		TargetTriple: g.md.TargetTriple,
		Namespace:    g.m.root,
		Library:      g.shimLibrary,
		Utf32:        !g.m.wideChars,
		Externs:      g.externs(),
	}
	rel := g.md.LibraryName + ".Interop.cs"
	if err := w.Execute(rel, interopTmpl, data); err != nil {
		return err
	}
	logger.Debug("Generated interop", "file", rel, "entryPoints", len(data.Externs))
	return nil
}

func escapeXML(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}
