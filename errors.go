// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package survae

import (
	"github.com/pkg/errors"
)

// The library follows GoMLX's exception style of error reporting: errors that
// indicate a misconfigured model or a bug in a transform implementation are
// thrown as panics carrying one of the error types below, with a stack trace
// attached (print with %+v). They can be recovered in the usual way with
// github.com/gomlx/exceptions, e.g.:
//
//	exception := exceptions.Try(func() { flow.LogProb(x) })
//	if shapeErr, ok := exception.(*survae.ShapeError); ok { ... }
//
// None of them is retryable and the library never falls back silently:
// masking any of them would train the model on a wrong objective.

// ShapeError reports a violated shape contract: an input whose non-batch
// dimensions do not match what a transform or distribution declared at
// construction. It is thrown (as a panic) at the offending component.
type ShapeError struct {
	error
}

// ShapeErrorf creates a *ShapeError with a formatted message and a stack trace.
func ShapeErrorf(format string, args ...any) *ShapeError {
	return &ShapeError{errors.Errorf(format, args...)}
}

// PanicShapef throws (panics with) a *ShapeError.
func PanicShapef(format string, args ...any) {
	panic(ShapeErrorf(format, args...))
}

// VariantContractError reports a transform implementation that violates its
// variant's round-trip invariant -- e.g. a bijection whose ToData(ToLatent(x))
// diverges beyond tolerance. It is detected by the test helpers in the
// transformtest package, never at run time: checking the invariant on every
// call would be prohibitively expensive.
type VariantContractError struct {
	error
}

// ContractErrorf creates a *VariantContractError with a formatted message and
// a stack trace.
func ContractErrorf(format string, args ...any) *VariantContractError {
	return &VariantContractError{errors.Errorf(format, args...)}
}

// PanicContractf throws (panics with) a *VariantContractError.
func PanicContractf(format string, args ...any) {
	panic(ContractErrorf(format, args...))
}

// NumericError reports a non-finite log-density term. The Flow surfaces these
// through a nanlogger.NanLogger attached by the caller (see
// flows.Flow.WithNanLogger); they are never recovered or substituted, since a
// patched value would silently corrupt likelihood estimates.
type NumericError struct {
	error
}

// NumericErrorf creates a *NumericError with a formatted message and a stack
// trace.
func NumericErrorf(format string, args ...any) *NumericError {
	return &NumericError{errors.Errorf(format, args...)}
}

// PanicNumericf throws (panics with) a *NumericError.
func PanicNumericf(format string, args ...any) {
	panic(NumericErrorf(format, args...))
}
