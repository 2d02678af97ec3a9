package ast

import (
	"fmt"
	"io"
	"reflect"
)

// Fprint writes an indented, human-readable dump of n to w: one line per
// field, nested nodes and slices indented under their parent. Grounded on
// go/ast.Fprint/Print, which walks an arbitrary AST generically through
// reflection rather than needing a String method per node type — the same
// shortcut applies here since this AST has no comment/doc-association
// machinery go/ast's version has to skip.
func Fprint(w io.Writer, n Node) error {
	p := &dumper{w: w}
	p.print(reflect.ValueOf(n), 0)
	return p.err
}

type dumper struct {
	w   io.Writer
	err error
}

func (p *dumper) printf(depth int, format string, args ...any) {
	if p.err != nil {
		return
	}
	for i := 0; i < depth; i++ {
		if _, err := io.WriteString(p.w, "  "); err != nil {
			p.err = err
			return
		}
	}
	if _, err := fmt.Fprintf(p.w, format, args...); err != nil {
		p.err = err
	}
}

func (p *dumper) print(v reflect.Value, depth int) {
	if !v.IsValid() {
		p.printf(depth, "nil\n")
		return
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			p.printf(depth, "nil\n")
			return
		}
		p.print(v.Elem(), depth)

	case reflect.Ptr:
		if v.IsNil() {
			p.printf(depth, "nil\n")
			return
		}
		p.print(v.Elem(), depth)

	case reflect.Slice:
		n := v.Len()
		p.printf(depth, "%s (%d)\n", v.Type(), n)
		for i := 0; i < n; i++ {
			p.print(v.Index(i), depth+1)
		}

	case reflect.Struct:
		p.printf(depth, "%s\n", v.Type())
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" {
				continue // unexported
			}
			fv := v.Field(i)
			switch fv.Kind() {
			case reflect.Struct, reflect.Slice, reflect.Ptr, reflect.Interface:
				p.printf(depth+1, "%s:\n", f.Name)
				p.print(fv, depth+2)
			default:
				p.printf(depth+1, "%s: %v\n", f.Name, fv.Interface())
			}
		}

	default:
		p.printf(depth, "%v\n", v.Interface())
	}
}
