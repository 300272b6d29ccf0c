// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package transformtest holds test utilities for transform implementations.
// It checks the inversion contract each transform variant promises:
//
//   - Bijective: ToData(ToLatent(x)) == x up to numerical precision, and the
//     two log-density terms cancel.
//   - Surjective generative: ToData(ToLatent(x)) == x exactly, on inputs from
//     the transform's support.
//   - Surjective inferential: ToLatent(ToData(z)) == z exactly.
//
// Stochastic transforms promise no inversion identity and have nothing to
// check here. Contract violations are reported through the testing.T, never
// at graph-building or execution time.
package transformtest

import (
	"fmt"
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/survae/transforms"
	"github.com/stretchr/testify/require"
)

// BuildFn creates the transform under test, with its variables in ctx.
type BuildFn func(ctx *context.Context) transforms.Transform

// InputFn builds the test input batch. For AssertInverse and
// AssertRightInverse it must produce data-space values in the transform's
// support (e.g. integer-valued for dequantization); for AssertLeftInverse it
// must produce latent-space values.
type InputFn func(g *Graph) *Node

// roundTrip runs first then second on the inputs and returns the largest
// absolute reconstruction error and the largest absolute sum of the two
// log-density terms, as float64 scalars.
func roundTrip(t *testing.T, name string, build BuildFn, input InputFn,
	first, second func(t transforms.Transform, v *Node) (*Node, *Node)) (maxReconErr, maxDensityErr float64) {
	ctx := context.New()
	exec := context.MustNewExec(graphtest.BuildTestBackend(), ctx,
		func(ctx *context.Context, g *Graph) []*Node {
			transform := build(ctx)
			v := input(g)
			mid, term1 := first(transform, v)
			recon, term2 := second(transform, mid)
			reconErr := ReduceAllMax(Abs(Sub(ConvertDType(recon, v.DType()), v)))
			densityErr := ReduceAllMax(Abs(Add(term1, term2)))
			return []*Node{ConvertDType(reconErr, dtypes.Float64), ConvertDType(densityErr, dtypes.Float64)}
		})
	var outputs []*tensors.Tensor
	require.NotPanicsf(t, func() { outputs = exec.MustExec() },
		"%s: failed to run round-trip graph", name)
	return outputs[0].Value().(float64), outputs[1].Value().(float64)
}

// AssertInverse checks a bijective transform: the ToLatent/ToData round trip
// must reconstruct the input within epsilon, and the two log-determinant
// terms must cancel within epsilon.
func AssertInverse(t *testing.T, name string, build BuildFn, input InputFn, epsilon float64) {
	t.Run(name, func(t *testing.T) {
		checkVariant(t, name, build, transforms.Bijective)
		reconErr, densityErr := roundTrip(t, name, build, input,
			transforms.Transform.ToLatent, transforms.Transform.ToData)
		fmt.Printf("\n%s: max |x - ToData(ToLatent(x))| = %g, max |logDet sum| = %g\n", name, reconErr, densityErr)
		require.LessOrEqualf(t, reconErr, epsilon, "%s: round trip failed to reconstruct the input", name)
		require.LessOrEqualf(t, densityErr, epsilon, "%s: log-density terms do not cancel", name)
	})
}

// AssertRightInverse checks a surjective generative transform:
// ToData(ToLatent(x)) must equal x within epsilon (pass 0 for exact), for
// inputs in the transform's support, and the two log-density terms must
// cancel within epsilon.
func AssertRightInverse(t *testing.T, name string, build BuildFn, input InputFn, epsilon float64) {
	t.Run(name, func(t *testing.T) {
		checkVariant(t, name, build, transforms.SurjectiveGenerative)
		reconErr, densityErr := roundTrip(t, name, build, input,
			transforms.Transform.ToLatent, transforms.Transform.ToData)
		fmt.Printf("\n%s: max |x - ToData(ToLatent(x))| = %g, max |correction sum| = %g\n", name, reconErr, densityErr)
		require.LessOrEqualf(t, reconErr, epsilon, "%s: ToData is not a right inverse of ToLatent", name)
		require.LessOrEqualf(t, densityErr, epsilon, "%s: log-density corrections do not cancel", name)
	})
}

// AssertLeftInverse checks a surjective inferential transform:
// ToLatent(ToData(z)) must equal z within epsilon (pass 0 for exact). The
// log-density terms are stochastic estimates and are not compared.
func AssertLeftInverse(t *testing.T, name string, build BuildFn, input InputFn, epsilon float64) {
	t.Run(name, func(t *testing.T) {
		checkVariant(t, name, build, transforms.SurjectiveInferential)
		reconErr, _ := roundTrip(t, name, build, input,
			transforms.Transform.ToData, transforms.Transform.ToLatent)
		fmt.Printf("\n%s: max |z - ToLatent(ToData(z))| = %g\n", name, reconErr)
		require.LessOrEqualf(t, reconErr, epsilon, "%s: ToLatent is not a left inverse of ToData", name)
	})
}

func checkVariant(t *testing.T, name string, build BuildFn, want transforms.Variant) {
	got := build(context.New()).Variant()
	require.Equalf(t, want, got, "%s: transform declares variant %s, want %s", name, got, want)
}
