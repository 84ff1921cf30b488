package cgen

import (
	"log/slog"
	"text/template"

	"github.com/Alia5/bindgen/internal/codegen/common"
)

var cmakeTmpl = template.Must(template.New("cmake").Parse(`cmake_minimum_required(VERSION 3.10)
project({{.Base}} CXX)

set(CMAKE_CXX_STANDARD 11)

# Library source files
add_library({{.Base}} SHARED
    src/{{.Base}}.cpp
)

# Include directories
target_include_directories({{.Base}} PUBLIC
    ${CMAKE_CURRENT_SOURCE_DIR}/include
)
{{- if .IncludeDirs}}
target_include_directories({{.Base}} PRIVATE
{{range .IncludeDirs}}    "{{.}}"
{{end}})
{{- end}}
{{- if .LibraryDirs}}
target_link_directories({{.Base}} PRIVATE
{{range .LibraryDirs}}    "{{.}}"
{{end}})
{{- end}}
{{- if .Libraries}}
target_link_libraries({{.Base}} PRIVATE
{{range .Libraries}}    {{.}}
{{end}})
{{- end}}

# Platform-specific settings
if(WIN32)
    target_compile_definitions({{.Base}} PRIVATE {{.API}}_BUILD)
else()
    set(CMAKE_CXX_FLAGS "${CMAKE_CXX_FLAGS} -fvisibility=hidden")
endif()

# Installation
install(TARGETS {{.Base}}
    LIBRARY DESTINATION lib
    ARCHIVE DESTINATION lib
    RUNTIME DESTINATION bin
)

install(FILES include/{{.Base}}.h
    DESTINATION include
)
`))

func generateCMake(logger *slog.Logger, w *common.Writer, data shimData) error {
	if err := w.Execute("CMakeLists.txt", cmakeTmpl, data); err != nil {
		return err
	}
	logger.Info("Generated CMakeLists.txt", "dir", w.Root())
	return nil
}
