package functions

import (
	"errors"
	"fmt"

	"github.com/nikolalohinski/gonja/exec"

	"github.com/dgallion1/mdbook-jinja/internal/layout"
)

// Callables returns the binding's functions in the form the template
// engine calls them: positional and keyword arguments arrive as VarArgs.
func (b *Binding) Callables() map[string]any {
	return map[string]any{
		"file_exists":   b.fileExists,
		"copy_file":     b.copyFile,
		"load_file":     b.loadFile,
		"load_document": b.loadDocument,
	}
}

func (b *Binding) fileExists(va *exec.VarArgs) (bool, error) {
	const fn = "file_exists"
	args, err := expect(fn, va, []*exec.KwArg{{Name: "rel", Default: "template"}})
	if err != nil {
		return false, err
	}
	path, err := stringArg(fn, "path", args.Args[0])
	if err != nil {
		return false, err
	}
	anchor, err := anchorArg(fn, "rel", args.KwArgs["rel"])
	if err != nil {
		return false, err
	}
	return b.FileExists(path, anchor)
}

func (b *Binding) copyFile(va *exec.VarArgs) (bool, error) {
	const fn = "copy_file"
	args, err := expect(fn, va, []*exec.KwArg{
		{Name: "dst", Default: nil},
		{Name: "srcrel", Default: "template"},
		{Name: "dstrel", Default: "chapterbuild"},
	})
	if err != nil {
		return false, err
	}
	src, err := stringArg(fn, "src", args.Args[0])
	if err != nil {
		return false, err
	}
	dst := src
	if v := args.KwArgs["dst"]; v != nil && !v.IsNil() {
		if dst, err = stringArg(fn, "dst", v); err != nil {
			return false, err
		}
	}
	srcAnchor, err := anchorArg(fn, "srcrel", args.KwArgs["srcrel"])
	if err != nil {
		return false, err
	}
	dstAnchor, err := anchorArg(fn, "dstrel", args.KwArgs["dstrel"])
	if err != nil {
		return false, err
	}
	return b.CopyFile(src, srcAnchor, dst, dstAnchor)
}

func (b *Binding) loadFile(va *exec.VarArgs) (string, error) {
	const fn = "load_file"
	path, anchor, err := pathAndRel(fn, va)
	if err != nil {
		return "", err
	}
	return b.LoadFile(path, anchor)
}

func (b *Binding) loadDocument(va *exec.VarArgs) (string, error) {
	const fn = "load_document"
	path, anchor, err := pathAndRel(fn, va)
	if err != nil {
		return "", err
	}
	return b.LoadDocument(path, anchor)
}

func pathAndRel(fn string, va *exec.VarArgs) (string, layout.Anchor, error) {
	args, err := expect(fn, va, []*exec.KwArg{{Name: "rel", Default: "template"}})
	if err != nil {
		return "", 0, err
	}
	path, err := stringArg(fn, "path", args.Args[0])
	if err != nil {
		return "", 0, err
	}
	anchor, err := anchorArg(fn, "rel", args.KwArgs["rel"])
	if err != nil {
		return "", 0, err
	}
	return path, anchor, nil
}

// expect checks the call against one required positional argument and the
// given keywords. Unknown or duplicated keywords are usage errors.
func expect(fn string, va *exec.VarArgs, kwargs []*exec.KwArg) (*exec.ReducedVarArgs, error) {
	args := va.Expect(1, kwargs)
	if args.IsError() {
		return nil, &Error{Kind: KindUsage, Func: fn, Err: errors.New(args.Error())}
	}
	return args, nil
}

func stringArg(fn, name string, v *exec.Value) (string, error) {
	if v == nil || !v.IsString() {
		return "", &Error{Kind: KindUsage, Func: fn, Err: fmt.Errorf("%s must be a string", name)}
	}
	return v.String(), nil
}

func anchorArg(fn, name string, v *exec.Value) (layout.Anchor, error) {
	if v == nil || !v.IsString() {
		return 0, &Error{Kind: KindUsage, Func: fn, Err: fmt.Errorf("%s must be a string", name)}
	}
	anchor, err := layout.ParseAnchor(v.String())
	if err != nil {
		return 0, &Error{Kind: KindUsage, Func: fn, Err: err}
	}
	return anchor, nil
}
