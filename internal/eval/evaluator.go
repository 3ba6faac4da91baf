package eval

import (
	"math"

	"github.com/pepl-lang/pepl-core/ast"
	"github.com/pepl-lang/pepl-core/value"
)

// DefaultGasLimit bounds a single dispatch when a program does not declare
// its own limit; it exists purely so ad-hoc evaluator use (tests, the
// `test` runner) doesn't need to thread one through everywhere.
const DefaultGasLimit = 1_000_000

// callStackCeiling bounds lambda call recursion depth, mirroring the
// interpreter engine's frame-count guard: unbounded recursion in a
// deterministic, gas-metered language should exhaust gas long before it
// exhausts the Go call stack, but this is cheap insurance against a lambda
// that recurses without ever touching gas-ticked control flow.
var callStackCeiling = 2048

// Evaluator is the reference tree-walking interpreter (spec §4.4). It
// carries the gas meter and dispatches expressions/statements recursively;
// SpaceInstance wraps it with the state lifecycle, invariant checking and
// atomic dispatch semantics.
type Evaluator struct {
	Env       *Environment
	gas       int
	gasLimit  int
	actions   map[string]int
	callDepth int
	mocks     *mockTable
}

func NewEvaluator(env *Environment, actions map[string]int) *Evaluator {
	return &Evaluator{
		Env:      env,
		gasLimit: DefaultGasLimit,
		actions:  actions,
		mocks:    newMockTable(),
	}
}

func (ev *Evaluator) SetGasLimit(limit int) { ev.gasLimit = limit }
func (ev *Evaluator) ResetGas()             { ev.gas = 0 }

func (ev *Evaluator) InstallMock(module, function string, v value.Value) {
	ev.mocks.install(MockKey{Module: module, Function: function}, v)
}

// tick is called once per expression and statement evaluation (spec §4.4
// "Evaluator"); it is the evaluator-side twin of the codegen's inline gas
// tick at every call site and loop head.
func (ev *Evaluator) tick() error {
	ev.gas++
	if ev.gas > ev.gasLimit {
		return GasExhaustedError{}
	}
	return nil
}

// EvalExprs evaluates a list of expressions left to right, short-circuiting
// on the first error.
func (ev *Evaluator) EvalExprs(exprs []ast.Expr) ([]value.Value, error) {
	out := make([]value.Value, len(exprs))
	for i, e := range exprs {
		v, err := ev.EvalExpr(e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// EvalExpr evaluates a single expression node against the current
// environment, ticking gas exactly once per node (spec §4.4).
func (ev *Evaluator) EvalExpr(e ast.Expr) (value.Value, error) {
	if err := ev.tick(); err != nil {
		return value.Value{}, err
	}
	switch n := e.(type) {
	case *ast.NumberLit:
		return value.NumberValue(n.Value), nil
	case *ast.StringLit:
		return value.StringValue(n.Value), nil
	case *ast.BoolLit:
		return value.BoolValue(n.Value), nil
	case *ast.NilLit:
		return value.NilValue(), nil
	case *ast.InterpString:
		return ev.evalInterpString(n)
	case *ast.ListLit:
		items, err := ev.EvalExprs(n.Elements)
		if err != nil {
			return value.Value{}, err
		}
		return value.ListValue(items), nil
	case *ast.RecordLit:
		fields := make([]value.RecordField, len(n.Fields))
		for i, f := range n.Fields {
			v, err := ev.EvalExpr(f.Value)
			if err != nil {
				return value.Value{}, err
			}
			fields[i] = value.RecordField{Key: f.Key, Value: v}
		}
		return value.RecordValue(fields), nil
	case *ast.Ident:
		return ev.evalIdent(n)
	case *ast.FieldAccess:
		recv, err := ev.EvalExpr(n.Receiver)
		if err != nil {
			return value.Value{}, err
		}
		return recv.RecordGet(n.Field), nil
	case *ast.MethodCall:
		return ev.evalMethodCall(n)
	case *ast.CapabilityCall:
		args, err := ev.EvalExprs(n.Args)
		if err != nil {
			return value.Value{}, err
		}
		if isCapabilityModule(n.Module) {
			return ev.callCapability(n.Module, n.Function, args)
		}
		return ev.callStdlib(n.Module, n.Function, args)
	case *ast.ActionCall:
		args, err := ev.EvalExprs(n.Args)
		if err != nil {
			return value.Value{}, err
		}
		v := value.ActionRefValue(ev.actions[n.Action], n.Action)
		v.Payload = args
		return v, nil
	case *ast.LambdaLit:
		return value.Value{Tag: value.Lambda, Lambda: &value.LambdaValue{
			Params: n.Params,
			Body:   n.Body,
			Env:    ev.Env.snapshotScopes(),
		}}, nil
	case *ast.BinaryExpr:
		return ev.evalBinary(n)
	case *ast.UnaryExpr:
		return ev.evalUnary(n)
	case *ast.TryExpr:
		return ev.evalTry(n)
	case *ast.IfExpr:
		cond, err := ev.EvalExpr(n.Cond)
		if err != nil {
			return value.Value{}, err
		}
		if cond.Bool {
			return ev.EvalExpr(n.Then)
		}
		return ev.EvalExpr(n.Else)
	case *ast.ForExpr:
		return ev.evalForExpr(n)
	case *ast.MatchExpr:
		return ev.evalMatchExpr(n)
	case *ast.VariantLit:
		args, err := ev.EvalExprs(n.Args)
		if err != nil {
			return value.Value{}, err
		}
		if n.Variant == "Ok" || n.Variant == "Err" {
			if n.Variant == "Ok" {
				return value.OkValue(argOrNil(args)), nil
			}
			return value.ErrValue(argOrNil(args)), nil
		}
		return value.VariantValue(n.Variant, args), nil
	default:
		return value.Value{}, UndefinedBindingError{Name: "unsupported expression node"}
	}
}

func argOrNil(args []value.Value) value.Value {
	if len(args) == 0 {
		return value.NilValue()
	}
	return args[0]
}

func (ev *Evaluator) evalInterpString(n *ast.InterpString) (value.Value, error) {
	var sb []byte
	for _, part := range n.Parts {
		if part.Expr == nil {
			sb = append(sb, part.Literal...)
			continue
		}
		v, err := ev.EvalExpr(part.Expr)
		if err != nil {
			return value.Value{}, err
		}
		sb = append(sb, value.ToString(v)...)
	}
	return value.StringValue(string(sb)), nil
}

// evalIdent implements the resolution order from spec §4.3: local binding,
// then state/derived field, then action name (as an ACTION_REF), else nil.
func (ev *Evaluator) evalIdent(n *ast.Ident) (value.Value, error) {
	if v, ok := ev.Env.Get(n.Name); ok {
		return v, nil
	}
	if idx, ok := ev.actions[n.Name]; ok {
		return value.ActionRefValue(idx, n.Name), nil
	}
	return value.NilValue(), nil
}

func isCapabilityModule(name string) bool {
	switch name {
	case "http", "storage", "location", "notifications", "credential":
		return true
	default:
		return false
	}
}

func (ev *Evaluator) evalBinary(n *ast.BinaryExpr) (value.Value, error) {
	switch n.Op {
	case ast.OpAnd:
		l, err := ev.EvalExpr(n.Left)
		if err != nil {
			return value.Value{}, err
		}
		if !l.Bool {
			return value.BoolValue(false), nil
		}
		r, err := ev.EvalExpr(n.Right)
		if err != nil {
			return value.Value{}, err
		}
		return value.BoolValue(r.Bool), nil
	case ast.OpOr:
		l, err := ev.EvalExpr(n.Left)
		if err != nil {
			return value.Value{}, err
		}
		if l.Bool {
			return value.BoolValue(true), nil
		}
		r, err := ev.EvalExpr(n.Right)
		if err != nil {
			return value.Value{}, err
		}
		return value.BoolValue(r.Bool), nil
	case ast.OpCoalesce:
		l, err := ev.EvalExpr(n.Left)
		if err != nil {
			return value.Value{}, err
		}
		if !l.IsNil() {
			return l, nil
		}
		return ev.EvalExpr(n.Right)
	}

	l, err := ev.EvalExpr(n.Left)
	if err != nil {
		return value.Value{}, err
	}
	r, err := ev.EvalExpr(n.Right)
	if err != nil {
		return value.Value{}, err
	}

	switch n.Op {
	case ast.OpEq:
		return value.BoolValue(value.Eq(l, r)), nil
	case ast.OpNe:
		return value.BoolValue(!value.Eq(l, r)), nil
	case ast.OpLt:
		return value.BoolValue(l.Num < r.Num), nil
	case ast.OpLe:
		return value.BoolValue(l.Num <= r.Num), nil
	case ast.OpGt:
		return value.BoolValue(l.Num > r.Num), nil
	case ast.OpGe:
		return value.BoolValue(l.Num >= r.Num), nil
	}

	var result float64
	switch n.Op {
	case ast.OpAdd:
		result = l.Num + r.Num
	case ast.OpSub:
		result = l.Num - r.Num
	case ast.OpMul:
		result = l.Num * r.Num
	case ast.OpDiv:
		if r.Num == 0 {
			return value.Value{}, ArithmeticTrapError{Reason: "division by zero"}
		}
		result = l.Num / r.Num
	case ast.OpMod:
		if r.Num == 0 {
			return value.Value{}, ArithmeticTrapError{Reason: "division by zero"}
		}
		result = l.Num - math.Floor(l.Num/r.Num)*r.Num
	default:
		return value.Value{}, UndefinedBindingError{Name: "unsupported binary operator"}
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		reason := "NaN result"
		if math.IsInf(result, 0) {
			reason = "division by zero"
		}
		return value.Value{}, ArithmeticTrapError{Reason: reason}
	}
	return value.NumberValue(result), nil
}

func (ev *Evaluator) evalUnary(n *ast.UnaryExpr) (value.Value, error) {
	v, err := ev.EvalExpr(n.Operand)
	if err != nil {
		return value.Value{}, err
	}
	switch n.Op {
	case ast.OpNeg:
		result := -v.Num
		if math.IsNaN(result) {
			return value.Value{}, ArithmeticTrapError{Reason: "NaN result"}
		}
		return value.NumberValue(result), nil
	case ast.OpNot:
		return value.BoolValue(!v.Bool), nil
	default:
		return value.Value{}, UndefinedBindingError{Name: "unsupported unary operator"}
	}
}

// evalTry implements the full `?` semantics (spec §4.4): the operand must be
// a Result; Ok(v) yields v, Err(msg) traps as UnwrapError carrying the error
// value as message. Codegen's lowerTryExpr also traps on Err, with the Err
// payload as the message when it is a string.
func (ev *Evaluator) evalTry(n *ast.TryExpr) (value.Value, error) {
	v, err := ev.EvalExpr(n.Operand)
	if err != nil {
		return value.Value{}, err
	}
	if v.Tag != value.Result {
		return value.Value{}, UnwrapError{Reason: "operand is not a Result"}
	}
	if v.VariantName == "Ok" {
		return argOrNil(v.Payload), nil
	}
	return value.Value{}, UnwrapError{Reason: value.ToString(argOrNil(v.Payload))}
}

func (ev *Evaluator) evalForExpr(n *ast.ForExpr) (value.Value, error) {
	iter, err := ev.EvalExpr(n.Iterable)
	if err != nil {
		return value.Value{}, err
	}
	ev.Env.PushScope()
	defer ev.Env.PopScope()
	for i, item := range iter.Items {
		if err := ev.tick(); err != nil {
			return value.Value{}, err
		}
		if n.IndexName != "" {
			ev.Env.Define(n.IndexName, value.NumberValue(float64(i)))
		}
		if n.ElemName != "" {
			ev.Env.Define(n.ElemName, item)
		}
		if _, err := ev.EvalExpr(n.Body); err != nil {
			return value.Value{}, err
		}
	}
	return value.NilValue(), nil
}

func (ev *Evaluator) evalMatchExpr(n *ast.MatchExpr) (value.Value, error) {
	subject, err := ev.EvalExpr(n.Subject)
	if err != nil {
		return value.Value{}, err
	}
	for _, a := range n.Arms {
		if a.Wildcard {
			return ev.evalMatchArmExpr(a, subject)
		}
		if subject.Tag == value.Variant || subject.Tag == value.Result {
			if subject.VariantName == a.Variant {
				return ev.evalMatchArmExpr(a, subject)
			}
		}
	}
	return value.NilValue(), nil
}

func (ev *Evaluator) evalMatchArmExpr(a *ast.MatchExprArm, subject value.Value) (value.Value, error) {
	ev.Env.PushScope()
	defer ev.Env.PopScope()
	for i, name := range a.Bindings {
		if i < len(subject.Payload) {
			ev.Env.Define(name, subject.Payload[i])
		}
	}
	return ev.EvalExpr(a.Body)
}

func (ev *Evaluator) evalMethodCall(n *ast.MethodCall) (value.Value, error) {
	recv, err := ev.EvalExpr(n.Receiver)
	if err != nil {
		return value.Value{}, err
	}
	args, err := ev.EvalExprs(n.Args)
	if err != nil {
		return value.Value{}, err
	}
	full := append([]value.Value{recv}, args...)
	switch recv.Tag {
	case value.List:
		return stdlibList(n.Method, full)
	case value.String:
		return stdlibString(n.Method, full)
	case value.Record:
		return stdlibRecord(n.Method, full)
	default:
		return value.Value{}, UndefinedBindingError{Name: "method dispatch on unknown receiver type: " + n.Method}
	}
}

// CallLambda invokes a captured closure with positional args, enforcing the
// recursion-depth ceiling and restoring the caller's scope stack afterward
// (spec §9 "Closures in the evaluator").
func (ev *Evaluator) CallLambda(l *value.LambdaValue, args []value.Value) (value.Value, error) {
	ev.callDepth++
	defer func() { ev.callDepth-- }()
	if ev.callDepth > callStackCeiling {
		return value.Value{}, ArithmeticTrapError{Reason: "stack overflow"}
	}
	saved := ev.Env.scopes
	captured, _ := l.Env.([]map[string]value.Value)
	ev.Env.scopes = append(append([]map[string]value.Value{}, captured...), map[string]value.Value{})
	defer func() { ev.Env.scopes = saved }()
	for i, p := range l.Params {
		if i < len(args) {
			ev.Env.Define(p, args[i])
		} else {
			ev.Env.Define(p, value.NilValue())
		}
	}
	body, _ := l.Body.(ast.Expr)
	return ev.EvalExpr(body)
}

func (e *Environment) snapshotScopes() []map[string]value.Value {
	out := make([]map[string]value.Value, len(e.scopes))
	copy(out, e.scopes)
	return out
}
