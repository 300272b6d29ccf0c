// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package transforms

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/initializers"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/survae"
)

// ActNorm is a normalization bijection with a learnable shift and log-scale
// per channel (the last event axis), applied element-wise:
//
//	ToLatent: z = (x - shift) · exp(-logScale)
//	ToData:   x = z · exp(logScale) + shift
//
// Its log-determinant is a closed form -- ±Σ logScale times the number of
// positions per channel -- independent of the input value. Both parameters are
// zero-initialized, so an untrained ActNorm is the identity.
type ActNorm struct {
	ctx        *context.Context
	dtype      dtypes.DType
	eventDims  []int
	featureDim int

	shiftVar, logScaleVar *context.Variable
}

// NewActNorm creates an ActNorm over events shaped eventDims, normalizing
// per-channel along the last event axis. The "shift" and "log_scale"
// variables are created in ctx (use ctx.In(...) to scope them).
func NewActNorm(ctx *context.Context, dtype dtypes.DType, eventDims ...int) *ActNorm {
	if len(eventDims) == 0 {
		survae.PanicShapef("NewActNorm: at least one event dimension required")
	}
	featureDim := eventDims[len(eventDims)-1]
	paramsCtx := ctx.WithInitializer(initializers.Zero)
	shape := shapes.Make(dtype, featureDim)
	return &ActNorm{
		ctx:         ctx,
		dtype:       dtype,
		eventDims:   eventDims,
		featureDim:  featureDim,
		shiftVar:    paramsCtx.VariableWithShape("shift", shape),
		logScaleVar: paramsCtx.VariableWithShape("log_scale", shape),
	}
}

// params returns shift and logScale reshaped to [1, ..., 1, featureDim] so
// they broadcast against [batch, eventDims...] nodes.
func (t *ActNorm) params(g *Graph) (shift, logScale *Node) {
	dims := make([]int, len(t.eventDims)+1)
	for i := range dims {
		dims[i] = 1
	}
	dims[len(dims)-1] = t.featureDim
	shift = Reshape(t.shiftVar.ValueGraph(g), dims...)
	logScale = Reshape(t.logScaleVar.ValueGraph(g), dims...)
	return
}

// logDet returns the [batch] log-determinant of the ToLatent direction:
// -Σ logScale summed over every position of every channel.
func (t *ActNorm) logDet(g *Graph, batch int) *Node {
	positionsPerChannel := survae.EventSize(t.eventDims) / t.featureDim
	total := MulScalar(ReduceAllSum(t.logScaleVar.ValueGraph(g)), -float64(positionsPerChannel))
	return broadcastToBatch(total, batch)
}

// ToLatent implements Transform.
func (t *ActNorm) ToLatent(x *Node) (z, logDensity *Node) {
	survae.CheckEventDims("ActNorm.ToLatent", x, t.eventDims)
	g := x.Graph()
	shift, logScale := t.params(g)
	z = Mul(Sub(x, shift), Exp(Neg(logScale)))
	logDensity = t.logDet(g, x.Shape().Dimensions[0])
	return
}

// ToData implements Transform.
func (t *ActNorm) ToData(z *Node) (x, logDensity *Node) {
	survae.CheckEventDims("ActNorm.ToData", z, t.eventDims)
	g := z.Graph()
	shift, logScale := t.params(g)
	x = Add(Mul(z, Exp(logScale)), shift)
	logDensity = Neg(t.logDet(g, z.Shape().Dimensions[0]))
	return
}

// Variant implements Transform.
func (t *ActNorm) Variant() Variant { return Bijective }

// LatentDims implements Transform.
func (t *ActNorm) LatentDims(dataDims []int) []int {
	survae.CheckDims("ActNorm.LatentDims", dataDims, t.eventDims)
	return sameDims(dataDims)
}

// DataDims implements Transform.
func (t *ActNorm) DataDims(latentDims []int) []int {
	survae.CheckDims("ActNorm.DataDims", latentDims, t.eventDims)
	return sameDims(latentDims)
}

var _ Transform = (*ActNorm)(nil)
