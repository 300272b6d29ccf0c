// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package distributions

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/initializers"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/survae"
)

// StandardNormal is an isotropic unit normal N(0, I) over a fixed event shape.
// It is the usual base distribution of a flow.
type StandardNormal struct {
	ctx       *context.Context
	dtype     dtypes.DType
	eventDims []int
}

// NewStandardNormal creates a N(0, I) distribution over events shaped
// eventDims, with the given dtype. ctx is only used for the random number
// generator state when sampling.
func NewStandardNormal(ctx *context.Context, dtype dtypes.DType, eventDims ...int) *StandardNormal {
	return &StandardNormal{ctx: ctx, dtype: dtype, eventDims: eventDims}
}

// LogProb implements Distribution.
func (d *StandardNormal) LogProb(x *Node) *Node {
	survae.CheckEventDims("StandardNormal.LogProb", x, d.eventDims)
	return standardLogProb(x)
}

// Sample implements Distribution.
func (d *StandardNormal) Sample(g *Graph, numSamples int) *Node {
	dims := append([]int{numSamples}, d.eventDims...)
	return d.ctx.RandomNormal(g, shapes.Make(d.dtype, dims...))
}

// EventDims implements Distribution.
func (d *StandardNormal) EventDims() []int { return d.eventDims }

// DType implements Distribution.
func (d *StandardNormal) DType() dtypes.DType { return d.dtype }

// Normal is a diagonal normal with learnable location and log-scale, one per
// event element. Both start at zero, so an untrained Normal is N(0, I).
type Normal struct {
	ctx       *context.Context
	dtype     dtypes.DType
	eventDims []int

	locVar, logScaleVar *context.Variable
}

// NewNormal creates a diagonal normal over events shaped eventDims, with
// learnable "loc" and "log_scale" variables created in ctx (use ctx.In(...)
// to scope them). Both are zero-initialized.
func NewNormal(ctx *context.Context, dtype dtypes.DType, eventDims ...int) *Normal {
	paramsCtx := ctx.WithInitializer(initializers.Zero)
	shape := shapes.Make(dtype, eventDims...)
	return &Normal{
		ctx:         ctx,
		dtype:       dtype,
		eventDims:   eventDims,
		locVar:      paramsCtx.VariableWithShape("loc", shape),
		logScaleVar: paramsCtx.VariableWithShape("log_scale", shape),
	}
}

// params returns loc and logScale reshaped with a leading axis of 1, so they
// broadcast against [batch, eventDims...] nodes.
func (d *Normal) params(g *Graph) (loc, logScale *Node) {
	loc = InsertAxes(d.locVar.ValueGraph(g), 0)
	logScale = InsertAxes(d.logScaleVar.ValueGraph(g), 0)
	return
}

// LogProb implements Distribution.
func (d *Normal) LogProb(x *Node) *Node {
	survae.CheckEventDims("Normal.LogProb", x, d.eventDims)
	loc, logScale := d.params(x.Graph())
	eps := Mul(Sub(x, loc), Exp(Neg(logScale)))
	// sumOverEvent(logScale) is shaped [1] and broadcasts over the batch.
	return Sub(standardLogProb(eps), sumOverEvent(logScale))
}

// Sample implements Distribution.
func (d *Normal) Sample(g *Graph, numSamples int) *Node {
	dims := append([]int{numSamples}, d.eventDims...)
	eps := d.ctx.RandomNormal(g, shapes.Make(d.dtype, dims...))
	loc, logScale := d.params(g)
	return Add(Mul(eps, Exp(logScale)), loc)
}

// EventDims implements Distribution.
func (d *Normal) EventDims() []int { return d.eventDims }

// DType implements Distribution.
func (d *Normal) DType() dtypes.DType { return d.dtype }
