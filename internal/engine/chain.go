package engine

import (
	"fmt"
	"reflect"

	"github.com/nikolalohinski/gonja"
	"github.com/nikolalohinski/gonja/exec"
	"github.com/nikolalohinski/gonja/nodes"
)

// Filters inserted by chainUndefined. The names are not identifiers, so a
// template cannot call them.
const (
	chainAttrFilter = "chainable.attr"
	chainItemFilter = "chainable.item"
)

// registerChainable installs the chainable filters and a loader that
// rewrites every template it hands out, including imports and includes.
func registerChainable(env *gonja.Environment) {
	env.Filters.Register(chainAttrFilter, chainAttr)
	env.Filters.Register(chainItemFilter, chainItem)
	env.EvalConfig.Loader = chainableLoader{env: env}
}

type chainableLoader struct {
	env *gonja.Environment
}

func (l chainableLoader) GetTemplate(name string) (*exec.Template, error) {
	tpl, err := l.env.GetTemplate(name)
	if err != nil {
		return nil, err
	}
	chainUndefined(tpl.Root)
	return tpl, nil
}

func (l chainableLoader) Path(name string) (string, error) {
	return l.env.Path(name)
}

// chainAttr replaces an undefined target with an empty list. Every
// attribute and index lookup on it misses, which lenient evaluation turns
// back into undefined.
func chainAttr(_ *exec.Evaluator, in *exec.Value, _ *exec.VarArgs) *exec.Value {
	if in.IsNil() {
		return exec.AsValue([]any{})
	}
	return in
}

// chainItem performs the subscript itself and returns the result boxed in
// a one-element list, because gonja fails every missing integer index.
func chainItem(_ *exec.Evaluator, in *exec.Value, params *exec.VarArgs) *exec.Value {
	if in.IsError() {
		return in
	}
	box := func(v *exec.Value) *exec.Value {
		return exec.AsValue([]*exec.Value{v})
	}
	if in.IsNil() || len(params.Args) == 0 {
		return box(exec.AsValue(nil))
	}

	key := params.Args[0]
	var (
		item  *exec.Value
		found bool
	)
	switch {
	case key.IsString():
		if item, found = in.Getitem(key.String()); !found {
			item, found = in.Getattr(key.String())
		}
	case key.IsInteger():
		item, found = in.Getitem(key.Integer())
	default:
		return exec.AsValue(fmt.Errorf("subscript %s is not a string or integer", key.String()))
	}
	if !found {
		return box(exec.AsValue(nil))
	}
	return box(item)
}

// chainUndefined rewrites every attribute and item lookup under root so
// that a lookup on an undefined value yields undefined. Statements keep
// their expressions in unexported fields, hence the reflect walk.
func chainUndefined(root *nodes.Template) {
	w := &chainWalker{seen: make(map[uintptr]bool)}
	w.walk(reflect.ValueOf(root))
}

type chainWalker struct {
	seen map[uintptr]bool
}

func (w *chainWalker) walk(v reflect.Value) {
	switch v.Kind() {
	case reflect.Interface:
		if !v.IsNil() {
			w.walk(v.Elem())
		}
	case reflect.Pointer:
		if v.IsNil() || w.seen[v.Pointer()] {
			return
		}
		w.seen[v.Pointer()] = true
		// A writable alias of v, which may have come through an unexported field.
		p := reflect.NewAt(v.Type().Elem(), v.UnsafePointer())
		switch n := p.Interface().(type) {
		case *nodes.Getattr:
			wrapGetattr(n)
		case *nodes.Getitem:
			wrapGetitem(n)
		}
		w.walk(p.Elem())
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			w.walk(v.Field(i))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			w.walk(v.Index(i))
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			w.walk(iter.Value())
		}
	}
}

func wrapped(n nodes.Node, filter string) bool {
	f, ok := n.(*nodes.FilteredExpression)
	return ok && len(f.Filters) > 0 && f.Filters[len(f.Filters)-1].Name == filter
}

func wrapGetattr(n *nodes.Getattr) {
	if wrapped(n.Node, chainAttrFilter) {
		return
	}
	n.Node = &nodes.FilteredExpression{
		Expression: n.Node,
		Filters:    []*nodes.FilterCall{{Token: n.Location, Name: chainAttrFilter}},
	}
}

// wrapGetitem turns x[k] into (x | chainable.item(k))[0].
func wrapGetitem(n *nodes.Getitem) {
	if n.Arg == nil || wrapped(n.Node, chainItemFilter) {
		return
	}
	n.Node = &nodes.FilteredExpression{
		Expression: n.Node,
		Filters: []*nodes.FilterCall{{
			Token: n.Location,
			Name:  chainItemFilter,
			Args:  []nodes.Expression{n.Arg},
		}},
	}
	n.Arg = &nodes.Integer{Location: n.Location, Val: 0}
}
