package cgen

import (
	"log/slog"
	"text/template"

	"github.com/Alia5/bindgen/internal/codegen/common"
)

var headerTmpl = template.Must(template.New("header").Parse(`#ifndef {{.Guard}}
#define {{.Guard}}

/* Auto-generated {{.LibraryName}} C shim ({{.TargetTriple}}). Do not edit. */

#include <stddef.h>
#include <stdint.h>
#include <wchar.h>
#ifndef __cplusplus
#include <stdbool.h>
#include <uchar.h>
#endif

/* Platform-specific exports */
#if defined(_WIN32) || defined(_WIN64)
  #ifdef {{.API}}_BUILD
    #define {{.API}} __declspec(dllexport)
  #else
    #define {{.API}} __declspec(dllimport)
  #endif
#else
  #define {{.API}} __attribute__((visibility("default")))
#endif

/* Version information */
#define {{.Guard}}_VERSION_MAJOR {{.Version.Major}}
#define {{.Guard}}_VERSION_MINOR {{.Version.Minor}}
#define {{.Guard}}_VERSION_PATCH {{.Version.Patch}}

#ifdef __cplusplus
extern "C" {
#endif
{{range .Funcs}}
/* {{.Signature}} */
{{$.API}} {{.Return}} {{.Symbol}}({{.ParamList}});
{{end}}
#ifdef __cplusplus
}
#endif

#endif /* {{.Guard}} */
`))

var sourceTmpl = template.Must(template.New("source").Parse(`/* Auto-generated {{.LibraryName}} C shim ({{.TargetTriple}}). Do not edit. */

#include "{{.Base}}.h"
{{range .Headers}}
#include <{{.}}>{{end}}

extern "C" {
{{range .Funcs}}
/* {{.Signature}} */
{{.Return}} {{.Symbol}}({{.ParamList}})
{
    {{.Body}}
}
{{end}}
}
`))

func generateHeader(logger *slog.Logger, w *common.Writer, data shimData) error {
	rel := "include/" + data.Base + ".h"
	if err := w.Execute(rel, headerTmpl, data); err != nil {
		return err
	}
	logger.Debug("Generated shim header", "file", rel)
	return nil
}

func generateSource(logger *slog.Logger, w *common.Writer, data shimData) error {
	rel := "src/" + data.Base + ".cpp"
	if err := w.Execute(rel, sourceTmpl, data); err != nil {
		return err
	}
	logger.Debug("Generated shim source", "file", rel)
	return nil
}
