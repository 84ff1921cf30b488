package scanner

import (
	"log/slog"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/Alia5/bindgen/internal/codegen/symtab"
)

var (
	pureVirtualRe = regexp.MustCompile(`\)[^;{]*=\s*0\s*;`)
	deletedRe     = regexp.MustCompile(`=\s*delete\s*;`)
	spaceRe       = regexp.MustCompile(`\s+`)
	tightRe       = regexp.MustCompile(`\s*(::|<|>|,|\*|&)\s*`)
)

var declaratorTypes = map[string]bool{
	"identifier":                    true,
	"field_identifier":              true,
	"type_identifier":               true,
	"qualified_identifier":          true,
	"operator_name":                 true,
	"destructor_name":               true,
	"pointer_declarator":            true,
	"reference_declarator":          true,
	"function_declarator":           true,
	"array_declarator":              true,
	"init_declarator":               true,
	"parenthesized_declarator":      true,
	"abstract_pointer_declarator":   true,
	"abstract_reference_declarator": true,
	"abstract_function_declarator":  true,
}

type include struct {
	path   string
	system bool
	line   int
}

func (i include) spelling() string {
	if i.system {
		return "<" + i.path + ">"
	}
	return `"` + i.path + `"`
}

// extractor walks one header's syntax tree and collects declarations in
// source order.
type extractor struct {
	header   string
	src      []byte
	logger   *slog.Logger
	decls    []*symtab.Declaration
	includes []include
	seenNS   map[string]bool
}

func newExtractor(header string, src []byte, logger *slog.Logger) *extractor {
	return &extractor{header: header, src: src, logger: logger, seenNS: map[string]bool{}}
}

func (x *extractor) add(d *symtab.Declaration) {
	x.decls = append(x.decls, d)
}

func (x *extractor) text(n *sitter.Node) string {
	return n.Content(x.src)
}

// typeText normalizes a type spelling: collapsed whitespace, no space around
// punctuation, no leading global scope.
func (x *extractor) typeText(n *sitter.Node) string {
	s := spaceRe.ReplaceAllString(strings.TrimSpace(x.text(n)), " ")
	s = tightRe.ReplaceAllString(s, "$1")
	return strings.TrimPrefix(s, "::")
}

func (x *extractor) skip(n *sitter.Node, what string) {
	x.logger.Debug("Skipping unsupported construct", "header", x.header, "construct", what, "line", n.StartPoint().Row+1)
}

func (x *extractor) scope(n *sitter.Node, ns string) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		x.item(n.NamedChild(i), ns)
	}
}

func (x *extractor) item(n *sitter.Node, ns string) {
	switch n.Type() {
	case "namespace_definition":
		x.namespace(n, ns)
	case "class_specifier", "struct_specifier":
		if d := x.class(n, ns, ""); d != nil {
			x.add(d)
		}
	case "enum_specifier":
		if d := x.enum(n, ns, ""); d != nil {
			x.add(d)
		}
	case "declaration", "function_definition":
		x.declaration(n, ns)
	case "type_definition":
		x.typedef(n, ns, "", x.add)
	case "alias_declaration":
		x.alias(n, ns, "", x.add)
	case "linkage_specification":
		if body := n.ChildByFieldName("body"); body != nil {
			if body.Type() == "declaration_list" {
				x.scope(body, ns)
			} else {
				x.item(body, ns)
			}
		}
	case "preproc_include":
		x.include(n)
	case "preproc_ifdef", "preproc_if", "preproc_else", "preproc_elif", "preproc_elifdef":
		x.scope(n, ns)
	case "template_declaration":
		x.skip(n, "template")
	}
}

func (x *extractor) include(n *sitter.Node) {
	p := n.ChildByFieldName("path")
	if p == nil {
		return
	}
	raw := strings.TrimSpace(x.text(p))
	inc := include{line: int(n.StartPoint().Row) + 1}
	switch p.Type() {
	case "system_lib_string":
		inc.system = true
		inc.path = strings.TrimSuffix(strings.TrimPrefix(raw, "<"), ">")
	case "string_literal":
		inc.path = strings.Trim(raw, `"`)
	default:
		// computed include, nothing to resolve
		return
	}
	x.includes = append(x.includes, inc)
}

func (x *extractor) namespace(n *sitter.Node, ns string) {
	name := n.ChildByFieldName("name")
	if name == nil {
		x.skip(n, "anonymous namespace")
		return
	}
	full := ns
	for _, seg := range strings.Split(x.typeText(name), "::") {
		full = symtab.Join(full, seg)
		if x.seenNS[full] {
			continue
		}
		x.seenNS[full] = true
		x.add(&symtab.Declaration{
			Name:          seg,
			QualifiedName: full,
			Native:        full,
			Header:        x.header,
			Kind:          symtab.KindNamespace,
			Namespace:     symtab.Parent(full),
			Access:        symtab.AccessPublic,
		})
	}
	if body := n.ChildByFieldName("body"); body != nil {
		x.scope(body, full)
	}
}

// declaration handles namespace-scope declarations and definitions. Only
// functions named by a plain identifier are kept; variables and out-of-line
// member definitions are ignored.
func (x *extractor) declaration(n *sitter.Node, ns string) {
	typeNode := n.ChildByFieldName("type")
	if typeNode != nil {
		switch typeNode.Type() {
		case "class_specifier", "struct_specifier":
			if d := x.class(typeNode, ns, ""); d != nil {
				x.add(d)
			}
		case "enum_specifier":
			if d := x.enum(typeNode, ns, ""); d != nil {
				x.add(d)
			}
		}
	}
	for _, dn := range declarators(n) {
		ref, inner := x.typeRef(n, typeNode, dn)
		if inner == nil || inner.Type() != "function_declarator" {
			continue
		}
		name := inner.ChildByFieldName("declarator")
		if name == nil || name.Type() != "identifier" {
			if name != nil {
				x.skip(n, name.Type())
			}
			continue
		}
		fn := x.callable(inner, ref)
		fn.Name = x.text(name)
		fn.QualifiedName = symtab.Join(ns, fn.Name)
		fn.Native = fn.QualifiedName
		fn.Kind = symtab.KindFunction
		fn.Namespace = ns
		fn.Static = x.hasStorage(n, "static")
		x.add(fn)
	}
}

func (x *extractor) class(n *sitter.Node, ns, owner string) *symtab.Declaration {
	body := n.ChildByFieldName("body")
	name := n.ChildByFieldName("name")
	if body == nil || name == nil {
		return nil
	}
	if name.Type() != "type_identifier" {
		x.skip(n, "class "+name.Type())
		return nil
	}
	return x.classBody(n, body, x.text(name), ns, owner)
}

func (x *extractor) classBody(n, body *sitter.Node, name, ns, owner string) *symtab.Declaration {
	scope := ns
	if owner != "" {
		scope = owner
	}
	qn := symtab.Join(scope, name)
	d := &symtab.Declaration{
		Name:          name,
		QualifiedName: qn,
		Native:        qn,
		Header:        x.header,
		Kind:          symtab.KindClass,
		Namespace:     ns,
		Owner:         owner,
		Access:        symtab.AccessPublic,
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "base_class_clause" {
			continue
		}
		for j := 0; j < int(c.NamedChildCount()); j++ {
			b := c.NamedChild(j)
			switch b.Type() {
			case "type_identifier", "qualified_identifier", "template_type":
				d.Bases = append(d.Bases, x.typeText(b))
			}
		}
	}
	access := symtab.AccessPrivate
	if n.Type() == "struct_specifier" {
		access = symtab.AccessPublic
	}
	x.members(body, d, ns, access)
	return d
}

func (x *extractor) members(body *sitter.Node, cls *symtab.Declaration, ns string, access symtab.Access) symtab.Access {
	addMember := func(m *symtab.Declaration) {
		if err := cls.AddMember(m); err != nil {
			x.logger.Debug("Skipping duplicate member", "class", cls.QualifiedName, "member", m.Key())
		}
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		switch c.Type() {
		case "access_specifier":
			access = symtab.Access(strings.TrimSuffix(strings.TrimSpace(x.text(c)), ":"))
		case "preproc_ifdef", "preproc_if", "preproc_else", "preproc_elif", "preproc_elifdef":
			access = x.members(c, cls, ns, access)
		case "field_declaration", "declaration", "function_definition":
			x.member(c, cls, ns, access, addMember)
		case "type_definition":
			if access == symtab.AccessPublic {
				x.typedef(c, ns, cls.QualifiedName, addMember)
			}
		case "alias_declaration":
			if access == symtab.AccessPublic {
				x.alias(c, ns, cls.QualifiedName, addMember)
			}
		case "template_declaration":
			x.skip(c, "member template")
		}
	}
	return access
}

func (x *extractor) member(n *sitter.Node, cls *symtab.Declaration, ns string, access symtab.Access, addMember func(*symtab.Declaration)) {
	src := x.text(n)
	if pureVirtualRe.MatchString(src) {
		cls.Abstract = true
	}
	if access != symtab.AccessPublic || deletedRe.MatchString(src) {
		return
	}

	typeNode := n.ChildByFieldName("type")
	if typeNode != nil {
		switch typeNode.Type() {
		case "class_specifier", "struct_specifier":
			if nested := x.class(typeNode, ns, cls.QualifiedName); nested != nil {
				addMember(nested)
			}
		case "enum_specifier":
			if e := x.enum(typeNode, ns, cls.QualifiedName); e != nil {
				addMember(e)
			}
		}
	}

	static := x.hasStorage(n, "static")
	virtual := hasVirtual(n)
	for _, dn := range declarators(n) {
		ref, inner := x.typeRef(n, typeNode, dn)
		if inner == nil {
			continue
		}
		switch inner.Type() {
		case "function_declarator":
			name := inner.ChildByFieldName("declarator")
			if name == nil {
				continue
			}
			if t := name.Type(); t != "field_identifier" && t != "identifier" {
				x.skip(n, t)
				continue
			}
			m := x.callable(inner, ref)
			m.Name = x.text(name)
			m.QualifiedName = symtab.Join(cls.QualifiedName, m.Name)
			m.Native = m.QualifiedName
			m.Owner = cls.QualifiedName
			m.Namespace = ns
			m.Access = access
			m.Static = static
			m.Virtual = virtual
			switch {
			case m.Name == cls.Name:
				m.Kind = symtab.KindConstructor
				m.Type = symtab.TypeRef{}
			case typeNode == nil:
				x.skip(n, "conversion function")
				continue
			default:
				m.Kind = symtab.KindMethod
			}
			addMember(m)
		case "field_identifier", "identifier":
			if typeNode == nil {
				continue
			}
			name := x.text(inner)
			addMember(&symtab.Declaration{
				Name:          name,
				QualifiedName: symtab.Join(cls.QualifiedName, name),
				Native:        symtab.Join(cls.QualifiedName, name),
				Header:        x.header,
				Kind:          symtab.KindField,
				Namespace:     ns,
				Owner:         cls.QualifiedName,
				Access:        access,
				Type:          ref,
				Static:        static,
			})
		}
	}
}

// callable fills the parts shared by functions, methods and constructors.
func (x *extractor) callable(fd *sitter.Node, ret symtab.TypeRef) *symtab.Declaration {
	d := &symtab.Declaration{Header: x.header, Type: ret, Access: symtab.AccessPublic}
	if params := fd.ChildByFieldName("parameters"); params != nil {
		d.Params, d.Variadic, d.Unsupported = x.params(params)
	}
	for i := 0; i < int(fd.NamedChildCount()); i++ {
		c := fd.NamedChild(i)
		if c.Type() == "type_qualifier" && x.text(c) == "const" {
			d.Const = true
		}
	}
	if d.Variadic && d.Unsupported == "" {
		d.Unsupported = "variadic function"
	}
	return d
}

func (x *extractor) params(list *sitter.Node) (params []symtab.Param, variadic bool, unsupported string) {
	for i := 0; i < int(list.ChildCount()); i++ {
		c := list.Child(i)
		switch c.Type() {
		case "...", "variadic_parameter_declaration":
			variadic = true
		case "parameter_declaration", "optional_parameter_declaration":
			typeNode := c.ChildByFieldName("type")
			ref, inner := x.typeRef(c, typeNode, c.ChildByFieldName("declarator"))
			if ref.IsVoid() && inner == nil {
				continue
			}
			p := symtab.Param{Type: ref}
			if inner != nil {
				switch inner.Type() {
				case "identifier":
					p.Name = x.text(inner)
				case "array_declarator":
					p.Type.Pointer++
					if name := inner.ChildByFieldName("declarator"); name != nil && name.Type() == "identifier" {
						p.Name = x.text(name)
					}
				case "function_declarator", "abstract_function_declarator", "parenthesized_declarator":
					unsupported = "function pointer parameter"
				}
			}
			if dv := c.ChildByFieldName("default_value"); dv != nil {
				p.Default = strings.TrimSpace(x.text(dv))
			}
			params = append(params, p)
		}
	}
	return params, variadic, unsupported
}

// typeRef resolves the type named by a declaration's type node as modified by
// declarator. It returns the innermost declarator that is not a pointer,
// reference or initializer wrapper, or nil when none is left.
func (x *extractor) typeRef(decl, typeNode, declarator *sitter.Node) (symtab.TypeRef, *sitter.Node) {
	var ref symtab.TypeRef
	if typeNode != nil {
		switch typeNode.Type() {
		case "class_specifier", "struct_specifier", "union_specifier", "enum_specifier":
			if name := typeNode.ChildByFieldName("name"); name != nil {
				ref.Name = x.typeText(name)
			}
		default:
			ref.Name = x.typeText(typeNode)
		}
	}
	for i := 0; i < int(decl.NamedChildCount()); i++ {
		c := decl.NamedChild(i)
		if c.Type() == "type_qualifier" && x.text(c) == "const" {
			ref.Const = true
		}
	}

	n := declarator
	for n != nil {
		switch n.Type() {
		case "pointer_declarator", "abstract_pointer_declarator":
			ref.Pointer++
			n = n.ChildByFieldName("declarator")
		case "reference_declarator", "abstract_reference_declarator":
			ref.Reference = true
			n = lastNamedChild(n)
		case "init_declarator":
			n = n.ChildByFieldName("declarator")
		default:
			return ref, n
		}
	}
	return ref, nil
}

func (x *extractor) enum(n *sitter.Node, ns, owner string) *symtab.Declaration {
	body := n.ChildByFieldName("body")
	name := n.ChildByFieldName("name")
	if body == nil || name == nil {
		return nil
	}
	return x.enumBody(body, x.text(name), ns, owner)
}

func (x *extractor) enumBody(body *sitter.Node, name, ns, owner string) *symtab.Declaration {
	scope := ns
	if owner != "" {
		scope = owner
	}
	qn := symtab.Join(scope, name)
	d := &symtab.Declaration{
		Name:          name,
		QualifiedName: qn,
		Native:        qn,
		Header:        x.header,
		Kind:          symtab.KindEnum,
		Namespace:     ns,
		Owner:         owner,
		Access:        symtab.AccessPublic,
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		e := body.NamedChild(i)
		if e.Type() != "enumerator" {
			continue
		}
		en := symtab.Enumerator{}
		if nn := e.ChildByFieldName("name"); nn != nil {
			en.Name = x.text(nn)
		}
		if v := e.ChildByFieldName("value"); v != nil {
			en.Value = spaceRe.ReplaceAllString(strings.TrimSpace(x.text(v)), " ")
		}
		d.Enumerators = append(d.Enumerators, en)
	}
	return d
}

func (x *extractor) typedef(n *sitter.Node, ns, owner string, add func(*symtab.Declaration)) {
	typeNode := n.ChildByFieldName("type")
	scope := ns
	if owner != "" {
		scope = owner
	}

	// typedef struct Tag { ... } Name; declares the tagged type as well.
	// An untagged body takes the name of the first plain declarator.
	var body *sitter.Node
	tagged := false
	if typeNode != nil {
		switch typeNode.Type() {
		case "class_specifier", "struct_specifier", "enum_specifier":
			body = typeNode.ChildByFieldName("body")
			tagged = typeNode.ChildByFieldName("name") != nil
		}
	}
	if body != nil && tagged {
		if typeNode.Type() == "enum_specifier" {
			if d := x.enum(typeNode, ns, owner); d != nil {
				add(d)
			}
		} else if d := x.class(typeNode, ns, owner); d != nil {
			add(d)
		}
	}

	anonymous := ""
	for _, dn := range declarators(n) {
		ref, inner := x.typeRef(n, typeNode, dn)
		if inner == nil {
			continue
		}
		name := x.innermostName(inner)
		if name == "" {
			continue
		}
		if body != nil && !tagged {
			if anonymous == "" && ref.Pointer == 0 && inner.Type() == "type_identifier" {
				anonymous = name
				if typeNode.Type() == "enum_specifier" {
					add(x.enumBody(body, name, ns, owner))
				} else {
					add(x.classBody(typeNode, body, name, ns, owner))
				}
				continue
			}
			ref.Name = anonymous
		}

		qn := symtab.Join(scope, name)
		d := &symtab.Declaration{
			Name:          name,
			QualifiedName: qn,
			Native:        qn,
			Header:        x.header,
			Kind:          symtab.KindTypedef,
			Namespace:     ns,
			Owner:         owner,
			Access:        symtab.AccessPublic,
			Type:          ref,
		}
		switch {
		case inner.Type() == "function_declarator":
			d.Unsupported = "function pointer typedef"
		case ref.Name == "":
			d.Unsupported = "anonymous type"
		}
		add(d)
	}
}

func (x *extractor) alias(n *sitter.Node, ns, owner string, add func(*symtab.Declaration)) {
	name := n.ChildByFieldName("name")
	desc := n.ChildByFieldName("type")
	if name == nil || desc == nil {
		return
	}
	ref, _ := x.typeRef(desc, desc.ChildByFieldName("type"), desc.ChildByFieldName("declarator"))
	scope := ns
	if owner != "" {
		scope = owner
	}
	qn := symtab.Join(scope, x.text(name))
	add(&symtab.Declaration{
		Name:          x.text(name),
		QualifiedName: qn,
		Native:        qn,
		Header:        x.header,
		Kind:          symtab.KindTypedef,
		Namespace:     ns,
		Owner:         owner,
		Access:        symtab.AccessPublic,
		Type:          ref,
	})
}

// declarators returns the declarator children of a declaration-like node.
func declarators(n *sitter.Node) []*sitter.Node {
	var skip []uint32
	for _, field := range []string{"type", "default_value", "value"} {
		if f := n.ChildByFieldName(field); f != nil {
			skip = append(skip, f.StartByte())
		}
	}
	var out []*sitter.Node
outer:
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if !declaratorTypes[c.Type()] {
			continue
		}
		for _, s := range skip {
			if c.StartByte() == s {
				continue outer
			}
		}
		out = append(out, c)
	}
	return out
}

func lastNamedChild(n *sitter.Node) *sitter.Node {
	c := int(n.NamedChildCount())
	if c == 0 {
		return nil
	}
	return n.NamedChild(c - 1)
}

// innermostName digs through declarator wrappers for the declared name.
func (x *extractor) innermostName(n *sitter.Node) string {
	for n != nil {
		switch n.Type() {
		case "type_identifier", "identifier", "field_identifier":
			return x.text(n)
		}
		next := n.ChildByFieldName("declarator")
		if next == nil && n.NamedChildCount() > 0 {
			next = n.NamedChild(0)
		}
		n = next
	}
	return ""
}

func (x *extractor) hasStorage(n *sitter.Node, spec string) bool {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "storage_class_specifier" && x.text(c) == spec {
			return true
		}
	}
	return false
}

func hasVirtual(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		switch n.Child(i).Type() {
		case "virtual", "virtual_function_specifier":
			return true
		}
	}
	return false
}
