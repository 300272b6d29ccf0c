// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package distributions_test

import (
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/ctxtest"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/survae/distributions"
	"github.com/stretchr/testify/require"

	_ "github.com/gomlx/gomlx/backends/default"
)

// logProbAtZero is the standard normal log-density of a single zero
// coordinate, -log(2*pi)/2.
const logProbAtZero = -0.9189385332046727

func TestStandardNormalLogProb(t *testing.T) {
	ctxtest.RunTestGraphFn(t, "StandardNormal.LogProb",
		func(ctx *context.Context, g *Graph) (inputs, outputs []*Node) {
			d := distributions.NewStandardNormal(ctx, dtypes.Float64, 2)
			x := Const(g, [][]float64{{0, 0}, {1, -1}, {2, 0}})
			inputs = []*Node{x}
			outputs = []*Node{d.LogProb(x)}
			return
		}, []any{
			[]float64{2 * logProbAtZero, 2*logProbAtZero - 1, 2*logProbAtZero - 2},
		}, 1e-10)
}

func TestStandardNormalSample(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, g *Graph) *Node {
		d := distributions.NewStandardNormal(ctx, dtypes.Float64, 3, 2)
		return d.Sample(g, 5)
	})
	var samples *tensors.Tensor
	require.NotPanics(t, func() { samples = exec.MustExec()[0] })
	require.Equal(t, []int{5, 3, 2}, samples.Shape().Dimensions)
	require.Equal(t, dtypes.Float64, samples.DType())
}

// Normal with freshly initialized (zero) location and log-scale must match
// the standard normal.
func TestNormalZeroInitMatchesStandard(t *testing.T) {
	ctxtest.RunTestGraphFn(t, "Normal.LogProb (zero-init)",
		func(ctx *context.Context, g *Graph) (inputs, outputs []*Node) {
			d := distributions.NewNormal(ctx.In("learned"), dtypes.Float64, 2)
			ref := distributions.NewStandardNormal(ctx, dtypes.Float64, 2)
			x := Const(g, [][]float64{{0.5, -0.25}, {3, 1}})
			inputs = []*Node{x}
			outputs = []*Node{Sub(d.LogProb(x), ref.LogProb(x))}
			return
		}, []any{
			[]float64{0, 0},
		}, 1e-10)
}

func TestConditionalNormal(t *testing.T) {
	// Network parameterizes mean=x and logScale=0, so LogProb(x, x)
	// evaluates the standard normal at zero.
	net := func(ctx *context.Context, x *Node) *Node {
		return Concatenate([]*Node{x, ZerosLike(x)}, -1)
	}
	ctxtest.RunTestGraphFn(t, "ConditionalNormal.LogProb",
		func(ctx *context.Context, g *Graph) (inputs, outputs []*Node) {
			d := distributions.NewConditionalNormal(ctx, net, 2)
			x := Const(g, [][]float64{{1, 2}, {-0.5, 0.25}})
			inputs = []*Node{x}
			outputs = []*Node{d.LogProb(x, x)}
			return
		}, []any{
			[]float64{2 * logProbAtZero, 2 * logProbAtZero},
		}, 1e-10)
}

func TestConditionalNormalSampleAndLogProb(t *testing.T) {
	net := func(ctx *context.Context, x *Node) *Node {
		return Concatenate([]*Node{x, ZerosLike(x)}, -1)
	}
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, g *Graph) []*Node {
		d := distributions.NewConditionalNormal(ctx, net, 2)
		x := Const(g, [][]float64{{1, 2}, {-0.5, 0.25}, {0, 0}})
		y, logProb := d.SampleAndLogProb(x)
		// The returned log-density must match re-evaluating at the sample.
		return []*Node{y, Sub(logProb, d.LogProb(y, x))}
	})
	var results []*tensors.Tensor
	require.NotPanics(t, func() { results = exec.MustExec() })
	require.Equal(t, []int{3, 2}, results[0].Shape().Dimensions)
	diff := results[1].Value().([]float64)
	for _, v := range diff {
		require.InDelta(t, 0, v, 1e-10)
	}
}

func TestConditionalBernoulli(t *testing.T) {
	// Zero logits give probability 1/2 to each coordinate independently.
	net := func(ctx *context.Context, x *Node) *Node {
		return ZerosLike(x)
	}
	ctxtest.RunTestGraphFn(t, "ConditionalBernoulli.LogProb",
		func(ctx *context.Context, g *Graph) (inputs, outputs []*Node) {
			d := distributions.NewConditionalBernoulli(ctx, net, 3)
			x := Const(g, [][]float64{{0, 0, 0}, {1, 1, 1}})
			y := Const(g, [][]float64{{0, 1, 0}, {1, 1, 0}})
			inputs = []*Node{y}
			outputs = []*Node{d.LogProb(y, x)}
			return
		}, []any{
			[]float64{3 * -0.6931471805599453, 3 * -0.6931471805599453},
		}, 1e-10)
}

func TestConditionalBernoulliSampleIsBinary(t *testing.T) {
	net := func(ctx *context.Context, x *Node) *Node {
		return ZerosLike(x)
	}
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, g *Graph) *Node {
		d := distributions.NewConditionalBernoulli(ctx, net, 4)
		x := Zeros(g, shapes.Make(dtypes.Float64, 100, 4))
		y, _ := d.SampleAndLogProb(x)
		isBinary := LogicalOr(Equal(y, ZerosLike(y)), Equal(y, OnesLike(y)))
		return ReduceLogicalAnd(isBinary)
	})
	var results []*tensors.Tensor
	require.NotPanics(t, func() { results = exec.MustExec() })
	require.True(t, results[0].Value().(bool), "samples must be exactly 0 or 1")
}

func TestStandardNormalConditionalIgnoresConditioning(t *testing.T) {
	ctxtest.RunTestGraphFn(t, "StandardNormalConditional.LogProb",
		func(ctx *context.Context, g *Graph) (inputs, outputs []*Node) {
			d := distributions.NewStandardNormalConditional(ctx, dtypes.Float64, 2)
			x := Const(g, [][]float64{{100, -100}, {0, 0}})
			y := Const(g, [][]float64{{0, 0}, {1, 1}})
			inputs = []*Node{y}
			outputs = []*Node{d.LogProb(y, x)}
			return
		}, []any{
			[]float64{2 * logProbAtZero, 2*logProbAtZero - 1},
		}, 1e-10)
}
