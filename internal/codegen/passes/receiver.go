package passes

import (
	"github.com/Alia5/bindgen/internal/codegen/symtab"
)

const ReceiverPromotionName = "receiver-promotion"

// ReceiverPromotion turns free functions whose first parameter is a class
// into instance methods of that class.
type ReceiverPromotion struct{}

func (ReceiverPromotion) Name() string { return ReceiverPromotionName }

func (p ReceiverPromotion) Run(t *symtab.Table, r *Report) error {
	classes := t.Classes()
	out := make([]*symtab.Declaration, 0, len(t.Decls))
	for _, d := range t.Decls {
		cls := p.receiverClass(classes, d)
		if cls == nil {
			out = append(out, d)
			continue
		}
		if cls.Excluded {
			r.Warn(p.Name(), d.QualifiedName, "receiver class %s is excluded; left as free function", cls.QualifiedName)
			out = append(out, d)
			continue
		}
		if cls.ResolvedType != nil {
			r.Warn(p.Name(), d.QualifiedName, "receiver class %s is mapped to %s; left as free function", cls.QualifiedName, cls.ResolvedType.Name)
			out = append(out, d)
			continue
		}
		promote(d, cls)
	}
	t.Decls = out
	return nil
}

func (ReceiverPromotion) receiverClass(classes map[string]*symtab.Declaration, d *symtab.Declaration) *symtab.Declaration {
	if d.Kind != symtab.KindFunction || len(d.Params) == 0 {
		return nil
	}
	first := d.Params[0].Type
	if first.Pointer > 1 {
		return nil
	}
	return symtab.Lookup(classes, first.Name, d.Namespace)
}

func promote(d, cls *symtab.Declaration) {
	recv := d.Params[0]
	d.Receiver = &recv
	d.Params = append([]symtab.Param(nil), d.Params[1:]...)
	d.Kind = symtab.KindInstanceMethod
	d.Owner = cls.QualifiedName
	d.QualifiedName = symtab.Join(cls.QualifiedName, d.Name)
	cls.Members = append(cls.Members, d)
}
