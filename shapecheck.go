// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package survae

import (
	"slices"

	"github.com/gomlx/gomlx/pkg/core/graph"
)

// EventSize returns the number of elements of one event (one batch element)
// with the given non-batch dimensions. An empty dims means a scalar event,
// size 1.
func EventSize(dims []int) int {
	size := 1
	for _, d := range dims {
		size *= d
	}
	return size
}

// EventDimsOf returns the non-batch (event) dimensions of x, that is, all but
// the leading axis.
func EventDimsOf(x *graph.Node) []int {
	return x.Shape().Dimensions[1:]
}

// CheckEventDims throws a *ShapeError if x is not batched (rank ≥ 1) with the
// given non-batch dimensions. what names the offending component and operation
// for the error message.
func CheckEventDims(what string, x *graph.Node, want []int) {
	if x.Rank() != len(want)+1 {
		PanicShapef("%s: input must be shaped [batch, %v], got %s", what, want, x.Shape())
	}
	if !slices.Equal(EventDimsOf(x), want) {
		PanicShapef("%s: input must be shaped [batch, %v], got %s", what, want, x.Shape())
	}
}

// CheckDims throws a *ShapeError if the two event-dimension lists differ.
func CheckDims(what string, got, want []int) {
	if !slices.Equal(got, want) {
		PanicShapef("%s: event dimensions %v do not match declared %v", what, got, want)
	}
}

// CheckSameBatch throws a *ShapeError if the two nodes disagree on the batch
// (leading) dimension.
func CheckSameBatch(what string, a, b *graph.Node) {
	if a.Rank() == 0 || b.Rank() == 0 ||
		a.Shape().Dimensions[0] != b.Shape().Dimensions[0] {
		PanicShapef("%s: batch dimensions differ, got %s and %s", what, a.Shape(), b.Shape())
	}
}
