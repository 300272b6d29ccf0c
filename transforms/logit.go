// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package transforms

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/survae"
)

// Logit is the element-wise logit/sigmoid bijection between data in the
// open unit interval and an unbounded latent:
//
//	ToLatent: z = logit(x) = log(x) - log(1-x)
//	ToData:   x = sigmoid(z)
//
// It is the usual final bijection of flows over dequantized data, which lives
// in [0, 1). Data values are clamped to [epsilon, 1-epsilon] before the logit
// to keep the correction finite at the boundary; epsilon is configurable and
// defaults to 1e-6.
type Logit struct {
	eventDims []int
	epsilon   float64
}

// NewLogit creates the logit/sigmoid bijection over events shaped
// eventDims. It has no learnable parameters.
func NewLogit(eventDims ...int) *Logit {
	if len(eventDims) == 0 {
		survae.PanicShapef("NewLogit: at least one event dimension required")
	}
	return &Logit{eventDims: eventDims, epsilon: 1e-6}
}

// Epsilon sets the boundary clamp of the ToLatent direction.
func (t *Logit) Epsilon(epsilon float64) *Logit {
	if epsilon <= 0 || epsilon >= 0.5 {
		survae.PanicShapef("Logit.Epsilon: must be in (0, 0.5), got %g", epsilon)
	}
	t.epsilon = epsilon
	return t
}

// ToLatent implements Transform: log|det J| = Σ -log x - log(1-x).
func (t *Logit) ToLatent(x *Node) (z, logDensity *Node) {
	survae.CheckEventDims("Logit.ToLatent", x, t.eventDims)
	clamped := ClipScalar(x, t.epsilon, 1-t.epsilon)
	logX := Log(clamped)
	log1mX := Log(OneMinus(clamped))
	z = Sub(logX, log1mX)
	logDensity = Neg(sumOverEvent(Add(logX, log1mX)))
	return
}

// ToData implements Transform: log|det J| = Σ log σ(z) + log(1-σ(z)),
// computed in the stable softplus form.
func (t *Logit) ToData(z *Node) (x, logDensity *Node) {
	survae.CheckEventDims("Logit.ToData", z, t.eventDims)
	x = Sigmoid(z)
	elemwise := Neg(Add(Softplus(z), Softplus(Neg(z))))
	logDensity = sumOverEvent(elemwise)
	return
}

// Variant implements Transform.
func (t *Logit) Variant() Variant { return Bijective }

// LatentDims implements Transform.
func (t *Logit) LatentDims(dataDims []int) []int {
	survae.CheckDims("Logit.LatentDims", dataDims, t.eventDims)
	return sameDims(dataDims)
}

// DataDims implements Transform.
func (t *Logit) DataDims(latentDims []int) []int {
	survae.CheckDims("Logit.DataDims", latentDims, t.eventDims)
	return sameDims(latentDims)
}

var _ Transform = (*Logit)(nil)
