// Package ast defines the tree-shaped program representation consumed by the
// code generator (internal/codegen) and the tree-walking evaluator
// (internal/eval). Lexing, parsing, type checking and scope resolution all
// happen upstream of this package: every node reaching this package is
// assumed to belong to a well-formed, already-typechecked program.
package ast

// Span locates a node in the original source. It is carried for diagnostics
// only; neither the code generator nor the evaluator branch on it.
type Span struct {
	File        string
	Line, Col   int
	EndLine     int
	EndCol      int
}

// Program is the root of a compilation unit: exactly one Space declaration.
type Program struct {
	Space *Space
}

// Space is the single top-level declaration of a PEPL program.
type Space struct {
	Name        string
	State       []*StateField
	Derived     []*DerivedField
	Invariants  []*Invariant
	Actions     []*Action
	Views       []*View
	Credentials []*Credential
	Update      *Update // nil if not declared
	OnEvent     *EventHandler // nil if not declared
	Tests       []*Test
	Span        Span
}

// StateField is a named, defaulted slot in the space's state record.
type StateField struct {
	Name    string
	Type    *TypeAnnotation
	Default Expr
	Span    Span
}

// DerivedField is recomputed from state after every successful mutation; it
// is never assigned to directly by a `set` statement.
type DerivedField struct {
	Name string
	Type *TypeAnnotation
	Expr Expr
	Span Span
}

// Invariant is a boolean condition checked after every successful dispatch.
type Invariant struct {
	Name string
	Cond Expr
	Span Span
}

// Credential is a named, opaque secret binding available to action bodies;
// the evaluator seeds it with a nil placeholder and the host supplies the
// real value out of band.
type Credential struct {
	Name string
	Span Span
}

// Action is a named, parameterised procedure that mutates state under
// invariant checking.
type Action struct {
	Name   string
	Params []*Param
	Body   []Stmt
	Span   Span
}

// Update is the optional per-tick callback, `update(dt) { ... }`.
type Update struct {
	Param string
	Body  []Stmt
	Span  Span
}

// EventHandler is the optional `handle_event(event) { ... }` callback.
type EventHandler struct {
	Param string
	Body  []Stmt
	Span  Span
}

// Param is a single positional action or callback parameter.
type Param struct {
	Name string
	Type *TypeAnnotation
}

// View is a pure function producing a Surface tree; it may read state and
// derived fields but never calls capabilities or mutates state.
type View struct {
	Name string
	Body []UIElement
	Span Span
}

// Test is a `test` block executed by the test runner against a fresh
// SpaceInstance with its mocked capability responses installed first.
type Test struct {
	Name      string
	Responses []*MockResponse
	Body      []Stmt
	Span      Span
}

// MockResponse installs a canned Value for a `module.function` capability
// call observed during a test.
type MockResponse struct {
	Module   string
	Function string
	Value    Expr
}

// TypeAnnotation is a minimal structural type descriptor; the core never
// performs type checking, it only needs enough shape to default-initialise
// state fields and describe sum-type variants.
type TypeAnnotation struct {
	Kind     TypeKind
	Name     string            // Kind == TypeRecord / TypeVariant / TypeAlias
	Elem     *TypeAnnotation   // Kind == TypeList
	Fields   []*FieldType      // Kind == TypeRecord
	Variants []*VariantType    // Kind == TypeVariant (sum type)
}

type TypeKind int

const (
	TypeNumber TypeKind = iota
	TypeBool
	TypeString
	TypeNil
	TypeList
	TypeRecord
	TypeVariant
	TypeAlias
)

type FieldType struct {
	Name string
	Type *TypeAnnotation
}

// VariantType is one arm of a sum type. Nothing in this module writes
// GlobalID: the dense program-wide variant ids, shared across all user sum
// types so that `match` can test a single id space, are kept in codegen's
// Metadata.VariantIndex.
type VariantType struct {
	Name     string
	Fields   []*FieldType
	GlobalID int
}

// ---- Statements ----

type Stmt interface{ stmtNode() }

// SetStmt assigns a state field, or a dotted path into a state field, to the
// result of evaluating Value. Path has length 1 for `set name = expr` and
// length >= 2 for `set a.b.c = expr`.
type SetStmt struct {
	Path  []string
	Value Expr
	Span  Span
}

// LetStmt binds a new scoped local, or evaluates Value purely for effect
// when Name is empty (`let _ = expr`-style statement-expressions).
type LetStmt struct {
	Name  string
	Value Expr
	Span  Span
}

type IfStmt struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
	Span Span
}

type ForStmt struct {
	IndexName string // "" if unbound
	ElemName  string
	Iterable  Expr
	Body      []Stmt
	Span      Span
}

type MatchStmt struct {
	Subject Expr
	Arms    []*MatchArm
	Span    Span
}

type MatchArm struct {
	Wildcard bool
	Variant  string
	Bindings []string // positional payload field bindings
	Body     []Stmt
}

type ReturnStmt struct {
	Span Span
}

// AssertStmt traps with Msg (or a default) when Cond evaluates to false.
type AssertStmt struct {
	Cond Expr
	Msg  Expr // nil if absent
	Span Span
}

// ExprStmt evaluates Expr and discards the result; used for bare capability
// or method calls inside action bodies.
type ExprStmt struct {
	Expr Expr
	Span Span
}

func (*SetStmt) stmtNode()    {}
func (*LetStmt) stmtNode()    {}
func (*IfStmt) stmtNode()     {}
func (*ForStmt) stmtNode()    {}
func (*MatchStmt) stmtNode()  {}
func (*ReturnStmt) stmtNode() {}
func (*AssertStmt) stmtNode() {}
func (*ExprStmt) stmtNode()   {}

// ---- Expressions ----

type Expr interface{ exprNode() }

type NumberLit struct {
	Value float64
	Span  Span
}

type StringLit struct {
	Value string
	Span  Span
}

type BoolLit struct {
	Value bool
	Span  Span
}

type NilLit struct{ Span Span }

// InterpString is a string built from alternating literal and expression
// parts: `"count is ${count}"`.
type InterpString struct {
	Parts []InterpPart
	Span  Span
}

type InterpPart struct {
	Literal string // valid when Expr == nil
	Expr    Expr
}

type ListLit struct {
	Elements []Expr
	Span     Span
}

type RecordLit struct {
	Fields []*RecordFieldLit
	Span   Span
}

type RecordFieldLit struct {
	Key   string
	Value Expr
}

// Ident resolves, in order, to a local binding, a state field, or an action
// name (producing an ACTION_REF); anything else is nil.
type Ident struct {
	Name string
	Span Span
}

// FieldAccess is `receiver.field`; lowers to val_record_get on an interned key.
type FieldAccess struct {
	Receiver Expr
	Field    string
	Span     Span
}

// MethodCall is `receiver.method(args...)`; desugars to a host_call with the
// receiver prepended to args.
type MethodCall struct {
	Receiver Expr
	Method   string
	Args     []Expr
	Span     Span
}

// CapabilityCall is `module.function(args...)` where module names a
// declared capability (http, storage, location, notifications, credential)
// or a pure stdlib module (math, string, list, record, json, convert, time,
// timer, core).
type CapabilityCall struct {
	Module   string
	Function string
	Args     []Expr
	Span     Span
}

// ActionCall builds an ACTION_REF carrying bound arguments, used as a UI
// event prop: `on_click: increment(1)`.
type ActionCall struct {
	Action string
	Args   []Expr
	Span   Span
}

type LambdaLit struct {
	Params []string
	Body   Expr
	Span   Span
}

type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpAnd
	OpOr
	OpCoalesce // ??
)

type BinaryExpr struct {
	Op          BinOp
	Left, Right Expr
	Span        Span
}

type UnOp int

const (
	OpNeg UnOp = iota
	OpNot
)

type UnaryExpr struct {
	Op      UnOp
	Operand Expr
	Span    Span
}

// TryExpr is `expr?`: unwraps a Result, propagating/trapping on Err. See the
// open question in spec §9 — the codegen lowers this to a trap-on-Err while
// the evaluator already implements the full unwrap semantics.
type TryExpr struct {
	Operand Expr
	Span    Span
}

type IfExpr struct {
	Cond Expr
	Then Expr
	Else Expr
	Span Span
}

type ForExpr struct {
	IndexName string
	ElemName  string
	Iterable  Expr
	Body      Expr
	Span      Span
}

type MatchExpr struct {
	Subject Expr
	Arms    []*MatchExprArm
	Span    Span
}

type MatchExprArm struct {
	Wildcard bool
	Variant  string
	Bindings []string
	Body     Expr
}

// VariantLit constructs a sum-type value: `Ok(n)`, `Err("bad")`, `None`.
type VariantLit struct {
	Variant string
	Args    []Expr
	Span    Span
}

func (*NumberLit) exprNode()      {}
func (*StringLit) exprNode()      {}
func (*BoolLit) exprNode()        {}
func (*NilLit) exprNode()         {}
func (*InterpString) exprNode()   {}
func (*ListLit) exprNode()        {}
func (*RecordLit) exprNode()      {}
func (*Ident) exprNode()          {}
func (*FieldAccess) exprNode()    {}
func (*MethodCall) exprNode()     {}
func (*CapabilityCall) exprNode() {}
func (*ActionCall) exprNode()     {}
func (*LambdaLit) exprNode()      {}
func (*BinaryExpr) exprNode()     {}
func (*UnaryExpr) exprNode()      {}
func (*TryExpr) exprNode()        {}
func (*IfExpr) exprNode()         {}
func (*ForExpr) exprNode()        {}
func (*MatchExpr) exprNode()      {}
func (*VariantLit) exprNode()     {}

// ---- UI ----

type UIElement interface{ uiNode() }

// UINode is a concrete component instantiation: `Text { content: "hi" }`.
type UINode struct {
	Component string
	Props     []*UIProp
	Children  []UIElement
	Span      Span
}

// UIProp is a single prop assignment; event props are conventionally named
// with an `on_` prefix and carry an Expr that resolves to an action
// reference (Ident, ActionCall, or LambdaLit).
type UIProp struct {
	Name  string
	Value Expr
}

type UIIf struct {
	Cond Expr
	Then []UIElement
	Else []UIElement
	Span Span
}

type UIFor struct {
	IndexName string
	ElemName  string
	Iterable  Expr
	Body      []UIElement
	Span      Span
}

func (*UINode) uiNode() {}
func (*UIIf) uiNode()   {}
func (*UIFor) uiNode()  {}
