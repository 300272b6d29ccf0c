// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package flows_test

import (
	"math/rand"
	"testing"

	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/graph/nanlogger"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/ctxtest"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/survae"
	"github.com/gomlx/survae/distributions"
	"github.com/gomlx/survae/flows"
	"github.com/gomlx/survae/transforms"
	"github.com/stretchr/testify/require"

	_ "github.com/gomlx/gomlx/backends/default"
)

func randomRows(seed int64, batch, dim int) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, batch)
	for i := range rows {
		rows[i] = make([]float64, dim)
		for j := range rows[i] {
			rows[i][j] = rng.NormFloat64()
		}
	}
	return rows
}

// affineNet is a parameter-free coupling network: shift and raw log-scale.
func affineNet(ctx *context.Context, x *Node) *Node {
	return Concatenate([]*Node{Tanh(x), Sin(x)}, -1)
}

// newBijectiveFlow builds a small all-bijective flow over 2d events with
// parameter-free couplings, so likelihoods are exact and deterministic.
func newBijectiveFlow(ctx *context.Context) *flows.Flow {
	sequence := []transforms.Transform{
		transforms.NewCoupling(ctx.In("coupling_0"), affineNet, 2),
		transforms.NewReverse(2),
		transforms.NewCoupling(ctx.In("coupling_1"), affineNet, 2),
	}
	base := distributions.NewStandardNormal(ctx, dtypes.Float64, 2)
	return flows.New(base, sequence...)
}

// An empty flow is exactly its base distribution.
func TestFlowEmptyMatchesBase(t *testing.T) {
	ctxtest.RunTestGraphFn(t, "empty flow",
		func(ctx *context.Context, g *Graph) (inputs, outputs []*Node) {
			base := distributions.NewStandardNormal(ctx, dtypes.Float64, 2)
			flow := flows.New(base)
			x := Const(g, randomRows(1, 20, 2))
			inputs = []*Node{x}
			outputs = []*Node{ReduceAllMax(Abs(Sub(flow.LogProb(x), base.LogProb(x))))}
			return
		}, []any{0.0}, 0)
}

// Flow.LogProb must equal the hand-unrolled fold over the same transforms.
func TestFlowLogProbComposition(t *testing.T) {
	ctxtest.RunTestGraphFn(t, "flow fold",
		func(ctx *context.Context, g *Graph) (inputs, outputs []*Node) {
			c0 := transforms.NewCoupling(ctx.In("coupling_0"), affineNet, 2)
			rev := transforms.NewReverse(2)
			c1 := transforms.NewCoupling(ctx.In("coupling_1"), affineNet, 2)
			base := distributions.NewStandardNormal(ctx, dtypes.Float64, 2)
			flow := flows.New(base, c0, rev, c1)

			x := Const(g, randomRows(2, 50, 2))
			z, term0 := c0.ToLatent(x)
			z, term1 := rev.ToLatent(z)
			z, term2 := c1.ToLatent(z)
			want := Add(Add(Add(term0, term1), term2), base.LogProb(z))

			inputs = []*Node{x}
			outputs = []*Node{ReduceAllMax(Abs(Sub(flow.LogProb(x), want)))}
			return
		}, []any{0.0}, 1e-12)
}

// For an all-bijective flow, the log-density returned along a sampled path
// must match re-evaluating LogProb at the samples.
func TestFlowSampleWithLogProb(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, g *Graph) []*Node {
		flow := newBijectiveFlow(ctx)
		x, logProb := flow.SampleWithLogProb(g, 64)
		return []*Node{x, ReduceAllMax(Abs(Sub(logProb, flow.LogProb(x))))}
	})
	var results []*tensors.Tensor
	require.NotPanics(t, func() { results = exec.MustExec() })
	require.Equal(t, []int{64, 2}, results[0].Shape().Dimensions)
	require.InDelta(t, 0, results[1].Value().(float64), 1e-10)
}

func TestFlowSampleShape(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, g *Graph) *Node {
		return newBijectiveFlow(ctx).Sample(g, 17)
	})
	var results []*tensors.Tensor
	require.NotPanics(t, func() { results = exec.MustExec() })
	require.Equal(t, []int{17, 2}, results[0].Shape().Dimensions)
}

// The event dimensions must chain through surjective transforms: an
// augmentation widens the latent side.
func TestFlowDims(t *testing.T) {
	ctx := context.New()
	aux := distributions.NewStandardNormalConditional(ctx, dtypes.Float64, 2)
	augment := transforms.NewAugment(aux, 2)
	base := distributions.NewStandardNormal(ctx, dtypes.Float64, 4)
	flow := flows.New(base, augment)
	require.Equal(t, []int{2}, flow.DataDims())
	require.Equal(t, []int{4}, flow.LatentDims())
}

func TestFlowLogProbShapeChecked(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	g := NewGraph(backend, "flow-bad-shape")
	flow := newBijectiveFlow(ctx)
	x := Const(g, randomRows(3, 4, 3)) // events shaped [3], flow wants [2]
	exception := exceptions.Try(func() { flow.LogProb(x) })
	_, ok := exception.(*survae.ShapeError)
	require.Truef(t, ok, "want *survae.ShapeError, got %v", exception)
}

// logNet poisons the raw log-scale with the log of the pass-through part,
// which is NaN for negative inputs.
func logNet(ctx *context.Context, x *Node) *Node {
	return Concatenate([]*Node{ZerosLike(x), Log(x)}, -1)
}

// A non-finite log-density term produced inside a transform must surface
// through the attached NanLogger, with the offending step in the scope.
func TestFlowNanLoggerTrace(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	var numTraces int
	var lastScope []string
	logger := nanlogger.New().WithHandler(func(trace *nanlogger.Trace) {
		numTraces++
		lastScope = trace.Scope
	})
	ctx := context.New()
	exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, x *Node) *Node {
		coupling := transforms.NewCoupling(ctx.In("coupling"), logNet, 2)
		base := distributions.NewStandardNormal(ctx, dtypes.Float64, 2)
		return flows.New(base, coupling).WithNanLogger(logger).LogProb(x)
	})
	logger.AttachToExec(exec)

	require.NotPanics(t, func() { exec.MustExec([][]float64{{1, 1}}) })
	require.Equal(t, 0, numTraces)

	// The negative pass-through element poisons the coupling's log-scale.
	require.NotPanics(t, func() { exec.MustExec([][]float64{{-1, 1}}) })
	require.Equal(t, 1, numTraces)
	require.Equal(t, []string{"flow/to-latent[0]"}, lastScope)
}

func TestNegLogLikelihood(t *testing.T) {
	graphtest.RunTestGraphFn(t, "NegLogLikelihood",
		func(g *Graph) (inputs, outputs []*Node) {
			logProbs := Const(g, []float64{-1, -3})
			outputs = []*Node{flows.NegLogLikelihood(nil, []*Node{logProbs})}
			return
		}, []any{2.0}, 0)
}
