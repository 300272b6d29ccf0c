// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package transforms

import (
	"math"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/survae"
)

// UniformDequantization is a generative surjection bridging discrete/ordinal
// data (integer values 0..2^bits-1 stored in a float dtype) and a continuous
// latent in [0, 1):
//
//	ToLatent: z = (x + u) / 2^bits, u ~ U[0,1)^d  (stochastic right inverse)
//	ToData:   x = floor(z · 2^bits)               (deterministic)
//
// The uniform right inverse has density 2^(bits·d) on its support, so the
// ToLatent correction is the constant -d·bits·log 2 and ToData's is its exact
// negative. ToData(ToLatent(x)) == x exactly for integer-valued x.
type UniformDequantization struct {
	ctx       *context.Context
	eventDims []int
	numBits   int
}

// NewUniformDequantization creates a UniformDequantization over events shaped
// eventDims, defaulting to 8 bits (256 levels, the usual image encoding). ctx
// is used for the random number generator state.
func NewUniformDequantization(ctx *context.Context, eventDims ...int) *UniformDequantization {
	if len(eventDims) == 0 {
		survae.PanicShapef("NewUniformDequantization: at least one event dimension required")
	}
	return &UniformDequantization{ctx: ctx, eventDims: eventDims, numBits: 8}
}

// NumBits sets the number of bits of the discrete side: values are integers
// in [0, 2^bits) and the continuous side lives in [0, 1).
func (t *UniformDequantization) NumBits(bits int) *UniformDequantization {
	if bits < 0 {
		survae.PanicShapef("UniformDequantization.NumBits: must be ≥ 0, got %d", bits)
	}
	t.numBits = bits
	return t
}

// correction is d·bits·log 2, the log-density of the uniform right inverse.
func (t *UniformDequantization) correction() float64 {
	return float64(survae.EventSize(t.eventDims)) * float64(t.numBits) * math.Ln2
}

// ToLatent implements Transform: adds uniform noise and rescales to [0, 1).
func (t *UniformDequantization) ToLatent(x *Node) (z, logDensity *Node) {
	survae.CheckEventDims("UniformDequantization.ToLatent", x, t.eventDims)
	g := x.Graph()
	u := t.ctx.RandomUniform(g, x.Shape())
	z = MulScalar(Add(x, u), math.Exp2(-float64(t.numBits)))
	logDensity = constantLogDensity(x, -t.correction())
	return
}

// ToData implements Transform: quantizes back to integer levels.
func (t *UniformDequantization) ToData(z *Node) (x, logDensity *Node) {
	survae.CheckEventDims("UniformDequantization.ToData", z, t.eventDims)
	x = Floor(MulScalar(z, math.Exp2(float64(t.numBits))))
	logDensity = constantLogDensity(z, t.correction())
	return
}

// Variant implements Transform.
func (t *UniformDequantization) Variant() Variant { return SurjectiveGenerative }

// LatentDims implements Transform.
func (t *UniformDequantization) LatentDims(dataDims []int) []int {
	survae.CheckDims("UniformDequantization.LatentDims", dataDims, t.eventDims)
	return sameDims(dataDims)
}

// DataDims implements Transform.
func (t *UniformDequantization) DataDims(latentDims []int) []int {
	survae.CheckDims("UniformDequantization.DataDims", latentDims, t.eventDims)
	return sameDims(latentDims)
}

var _ Transform = (*UniformDequantization)(nil)
