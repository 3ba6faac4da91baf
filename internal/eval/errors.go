package eval

import "fmt"

// GasExhaustedError is raised when the per-dispatch step counter crosses its
// limit (spec §5 "Suspension points").
type GasExhaustedError struct{}

func (GasExhaustedError) Error() string { return "gas exhausted" }

// ArithmeticTrapError covers divide/modulo-by-zero and any operation
// producing NaN or infinity (spec §7).
type ArithmeticTrapError struct{ Reason string }

func (e ArithmeticTrapError) Error() string { return e.Reason }

// AssertionFailedError is raised by a user `assert` with an optional message.
type AssertionFailedError struct{ Message string }

func (e AssertionFailedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "assertion failed"
}

// UnwrapError is raised by `?` on a Result that is Err, or by any stdlib
// function documented to trap on Err (spec §4.3 `?`, §7 "Unwrap on Err").
type UnwrapError struct{ Reason string }

func (e UnwrapError) Error() string { return fmt.Sprintf("unwrap on Err: %s", e.Reason) }

// UndefinedBindingError signals a reference to a name with no local, state,
// or action binding. Well-typed programs never trigger this; if one does,
// it is a codegen/evaluator bug rather than a user-facing error (spec §7).
type UndefinedBindingError struct{ Name string }

func (e UndefinedBindingError) Error() string { return fmt.Sprintf("undefined binding: %s", e.Name) }

// returnSignal unwinds a `return` statement to the nearest dispatch
// boundary without being treated as a runtime error; it is never surfaced
// to callers of Dispatch/Update/HandleEvent.
type returnSignal struct{}

func (returnSignal) Error() string { return "return" }
