package compiler

// declID uniquely identifies one local variable declaration across the
// whole chunk. Using a globally unique id (rather than a per-scope
// name) is what lets shadowing "just work": each `local x` gets its
// own id, and name resolution during analysis always finds the
// innermost live declaration.
type declID int

// refKind tags how a NameExpr resolved.
type refKind int

const (
	refLocal refKind = iota
	refUpvalue
	refGlobal
)

// nameRef is the resolution analysis computes for one ast.NameExpr,
// looked up by codegen via the Analyzer.resolved map so scope
// resolution is only ever performed once.
type nameRef struct {
	kind  refKind
	decl  declID // refLocal
	index int    // refUpvalue: index into the owning FunctionInfo.Upvalues
	name  string // refGlobal
}

// upvalueSource describes how a FunctionInfo obtains the cell for one
// of its upvalues at CLOSURE-build time: either directly from a
// parent local's cell register, or forwarded from one of the parent's
// own upvalues (for capture chains deeper than one level).
type upvalueSource struct {
	fromParentLocal bool
	parentDecl      declID
	parentUpvalue   int
}

// FunctionInfo is the per-function-scope analysis record: parameters,
// the ordered upvalue list, and (via the Analyzer's declInfo table)
// which of its locals were captured by a nested function and
// therefore need cell storage.
type FunctionInfo struct {
	Parent   *FunctionInfo
	Label    string
	Params   []declID
	IsVararg bool
	Upvalues []upvalueSource
	upvalIdx map[declID]int
}

type declInfo struct {
	name     string
	owner    *FunctionInfo
	captured bool
}

// blockScope is one lexical block's name->declID bindings, chained to
// its enclosing block (which may belong to an enclosing function,
// which is exactly how free-variable resolution walks outward across
// function boundaries).
type blockScope struct {
	parent *blockScope
	owner  *FunctionInfo
	vars   map[string]declID
	// order and line record declarations as they occur. The goto
	// scope-violation check (goto.go) walks the AST and does not read
	// them.
	order []declID
	lines map[declID]int
}

func newBlockScope(parent *blockScope, owner *FunctionInfo) *blockScope {
	return &blockScope{
		parent: parent,
		owner:  owner,
		vars:   make(map[string]declID),
		lines:  make(map[declID]int),
	}
}
