// Package result provides the success/failure value used by every domain
// operation in place of error-only returns. A Result is either Ok (carrying a
// value) or Err (carrying an error); accessing the wrong variant is a caller
// defect and panics.
package result

import "fmt"

// Result holds either a value of type T or an error, never both.
type Result[T any] struct {
	value T
	err   error
	ok    bool
}

// Ok returns a successful Result carrying value.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value, ok: true}
}

// Err returns a failed Result carrying err. A nil err is a caller defect.
func Err[T any](err error) Result[T] {
	if err == nil {
		panic("result: Err called with nil error")
	}

	return Result[T]{err: err}
}

// Errf returns a failed Result with a formatted error. The format string may
// use %w to preserve a sentinel category.
func Errf[T any](format string, args ...any) Result[T] {
	return Err[T](fmt.Errorf(format, args...))
}

// IsSuccess reports whether the Result is Ok.
func (r Result[T]) IsSuccess() bool {
	return r.ok
}

// IsFailure reports whether the Result is Err.
func (r Result[T]) IsFailure() bool {
	return !r.ok
}

// Value returns the carried value. Panics if the Result is a failure; callers
// must branch on IsSuccess first.
func (r Result[T]) Value() T {
	if !r.ok {
		panic(fmt.Sprintf("result: Value called on failure: %v", r.err))
	}

	return r.value
}

// Error returns the carried error. Panics if the Result is a success.
func (r Result[T]) Error() error {
	if r.ok {
		panic("result: Error called on success")
	}

	return r.err
}

// ValueOr returns the carried value, or def when the Result is a failure.
func (r Result[T]) ValueOr(def T) T {
	if !r.ok {
		return def
	}

	return r.value
}

// Unpack converts the Result to the conventional (value, error) pair.
func (r Result[T]) Unpack() (T, error) {
	return r.value, r.err
}

// Map applies fn to the value of a successful Result. A failure passes
// through unchanged.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if r.IsFailure() {
		return Err[U](r.err)
	}

	return Ok(fn(r.value))
}

// FlatMap chains a Result-producing fn onto a successful Result. The first
// failure in a chain short-circuits the rest.
func FlatMap[T, U any](r Result[T], fn func(T) Result[U]) Result[U] {
	if r.IsFailure() {
		return Err[U](r.err)
	}

	return fn(r.value)
}

// Fold collapses a Result into a single value by applying onOk or onErr.
func Fold[T, U any](r Result[T], onOk func(T) U, onErr func(error) U) U {
	if r.IsFailure() {
		return onErr(r.err)
	}

	return onOk(r.value)
}

// Recover turns a failure into a success by applying fn to the error. A
// success passes through unchanged.
func Recover[T any](r Result[T], fn func(error) T) Result[T] {
	if r.IsSuccess() {
		return r
	}

	return Ok(fn(r.err))
}

// Combine returns the values of all Results, or the first failure found.
func Combine[T any](rs ...Result[T]) Result[[]T] {
	values := make([]T, 0, len(rs))

	for _, r := range rs {
		if r.IsFailure() {
			return Err[[]T](r.err)
		}

		values = append(values, r.value)
	}

	return Ok(values)
}

// Void is the unit type for operations that succeed without producing a value.
type Void struct{}

// OkVoid returns a successful Result[Void].
func OkVoid() Result[Void] {
	return Ok(Void{})
}
