// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package transforms

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/survae"
)

// Coupling is a coupling bijection (RealNVP style): the input is split along
// its last axis into a pass-through part and a transformed part; the
// transformed part is updated element-wise with shift (and, unless Additive,
// log-scale) parameters produced by an opaque network of the pass-through
// part. The Jacobian is triangular, so the log-determinant is the sum of the
// log-scales over the transformed elements -- identically zero for additive
// couplings.
//
// Create it with NewCoupling, optionally chain configuration calls, then use
// it as a Transform. Configuration must be finished before the first use.
type Coupling struct {
	ctx            *context.Context
	net            NetFn
	eventDims      []int
	numPass        int // size of the pass-through part along the last axis
	numTransformed int
	additive       bool
	transformFirst bool
	logScaleClamp  float64
}

// NewCoupling creates an affine coupling over events shaped eventDims, split
// along the last axis: the first half (rounded up) passes through unchanged
// and parameterizes the element-wise map of the second half.
//
// net receives the pass-through part, shaped [batch, ..., numPass], and must
// return [batch, ..., 2·numTransformed] (shift and raw log-scale,
// concatenated) -- or [batch, ..., numTransformed] if Additive is set. Its
// variables live in ctx; the coupling never inspects them.
func NewCoupling(ctx *context.Context, net NetFn, eventDims ...int) *Coupling {
	if len(eventDims) == 0 {
		survae.PanicShapef("NewCoupling: at least one event dimension required")
	}
	last := eventDims[len(eventDims)-1]
	if last < 2 {
		survae.PanicShapef("NewCoupling: last event dimension must be ≥ 2 to split, got %v", eventDims)
	}
	numTransformed := last / 2
	return &Coupling{
		ctx:            ctx,
		net:            net,
		eventDims:      eventDims,
		numPass:        last - numTransformed,
		numTransformed: numTransformed,
		logScaleClamp:  2.0,
	}
}

// Additive makes the coupling shift-only (scale fixed to 1), so its
// log-determinant is identically zero. The network must then output
// [batch, ..., numTransformed].
func (c *Coupling) Additive() *Coupling {
	c.additive = true
	return c
}

// TransformFirstHalf swaps the roles of the two halves: the leading elements
// are transformed and the trailing ones pass through. Alternating this (or
// interleaving Reverse transforms) lets consecutive couplings update every
// element.
func (c *Coupling) TransformFirstHalf() *Coupling {
	c.transformFirst = true
	return c
}

// LogScaleClamp bounds the log-scale to (-clamp, clamp) through a tanh, for
// numerical stability. Defaults to 2.0. Ignored for additive couplings.
func (c *Coupling) LogScaleClamp(clamp float64) *Coupling {
	c.logScaleClamp = clamp
	return c
}

// split returns the pass-through and transformed parts of v, in that order.
func (c *Coupling) split(v *Node) (pass, transformed *Node) {
	if c.transformFirst {
		transformed, pass = splitLastAxis(v, c.numTransformed)
		return
	}
	return splitLastAxis(v, c.numPass)
}

// join is the inverse of split.
func (c *Coupling) join(pass, transformed *Node) *Node {
	if c.transformFirst {
		return Concatenate([]*Node{transformed, pass}, -1)
	}
	return Concatenate([]*Node{pass, transformed}, -1)
}

// netParams runs the network on the pass-through part and returns the shift
// and log-scale (nil log-scale for additive couplings).
func (c *Coupling) netParams(pass *Node) (shift, logScale *Node) {
	// Checked(false) so the net's variables are created on the first call and
	// reused by later calls (e.g. the inverse direction in the same graph).
	out := c.net(c.ctx.Checked(false), pass)
	wantLast := c.numTransformed
	if !c.additive {
		wantLast *= 2
	}
	wantDims := append(sameDims(pass.Shape().Dimensions[:pass.Rank()-1]), wantLast)
	if out.Rank() != pass.Rank() || out.Shape().Dimensions[out.Rank()-1] != wantLast {
		survae.PanicShapef("Coupling: net must output [%v], got %s", wantDims, out.Shape())
	}
	if c.additive {
		return out, nil
	}
	shift, rawScale := splitLastAxis(out, c.numTransformed)
	logScale = MulScalar(Tanh(rawScale), c.logScaleClamp)
	return
}

// ToLatent implements Transform: z = join(pass, transformed·exp(logScale) + shift).
func (c *Coupling) ToLatent(x *Node) (z, logDensity *Node) {
	survae.CheckEventDims("Coupling.ToLatent", x, c.eventDims)
	pass, transformed := c.split(x)
	shift, logScale := c.netParams(pass)
	if c.additive {
		z = c.join(pass, Add(transformed, shift))
		logDensity = zeroLogDensity(x)
		return
	}
	z = c.join(pass, Add(Mul(transformed, Exp(logScale)), shift))
	logDensity = sumOverEvent(logScale)
	return
}

// ToData implements Transform: the exact inverse of ToLatent.
func (c *Coupling) ToData(z *Node) (x, logDensity *Node) {
	survae.CheckEventDims("Coupling.ToData", z, c.eventDims)
	pass, transformed := c.split(z)
	shift, logScale := c.netParams(pass)
	if c.additive {
		x = c.join(pass, Sub(transformed, shift))
		logDensity = zeroLogDensity(z)
		return
	}
	x = c.join(pass, Mul(Sub(transformed, shift), Exp(Neg(logScale))))
	logDensity = Neg(sumOverEvent(logScale))
	return
}

// Variant implements Transform.
func (c *Coupling) Variant() Variant { return Bijective }

// LatentDims implements Transform.
func (c *Coupling) LatentDims(dataDims []int) []int {
	survae.CheckDims("Coupling.LatentDims", dataDims, c.eventDims)
	return sameDims(dataDims)
}

// DataDims implements Transform.
func (c *Coupling) DataDims(latentDims []int) []int {
	survae.CheckDims("Coupling.DataDims", latentDims, c.eventDims)
	return sameDims(latentDims)
}

var _ Transform = (*Coupling)(nil)
