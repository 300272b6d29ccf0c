// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package transforms

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/survae"
	"github.com/gomlx/survae/distributions"
)

// Augment is a generative surjection that widens the latent space with
// auxiliary channels appended along the last event axis:
//
//	ToLatent: z = [x, e], e ~ q(e|x)  (stochastic right inverse)
//	ToData:   x = z[..., :dataChannels]  (deterministic projection)
//
// q is any Conditional -- conditioned on the kept part, or independent of it
// (NewStandardNormalConditional). The ToLatent correction is -log q(e|x) and
// ToData's is its exact negative; ToData(ToLatent(x)) == x exactly.
type Augment struct {
	aux        distributions.Conditional
	dataDims   []int
	latentDims []int
}

// NewAugment creates an Augment over data events shaped eventDims; aux
// supplies the auxiliary channels, and must have the same event dimensions
// except for the last axis, which it extends.
func NewAugment(aux distributions.Conditional, eventDims ...int) *Augment {
	if len(eventDims) == 0 {
		survae.PanicShapef("NewAugment: at least one event dimension required")
	}
	auxDims := aux.EventDims()
	if len(auxDims) != len(eventDims) {
		survae.PanicShapef("NewAugment: auxiliary event rank %v does not match data event rank %v",
			auxDims, eventDims)
	}
	survae.CheckDims("NewAugment (leading axes)", auxDims[:len(auxDims)-1], eventDims[:len(eventDims)-1])
	latentDims := sameDims(eventDims)
	latentDims[len(latentDims)-1] += auxDims[len(auxDims)-1]
	return &Augment{aux: aux, dataDims: eventDims, latentDims: latentDims}
}

// ToLatent implements Transform.
func (t *Augment) ToLatent(x *Node) (z, logDensity *Node) {
	survae.CheckEventDims("Augment.ToLatent", x, t.dataDims)
	aux, logQ := t.aux.SampleAndLogProb(x)
	z = Concatenate([]*Node{x, aux}, -1)
	logDensity = Neg(logQ)
	return
}

// ToData implements Transform.
func (t *Augment) ToData(z *Node) (x, logDensity *Node) {
	survae.CheckEventDims("Augment.ToData", z, t.latentDims)
	x, aux := splitLastAxis(z, t.dataDims[len(t.dataDims)-1])
	logDensity = t.aux.LogProb(aux, x)
	return
}

// Variant implements Transform.
func (t *Augment) Variant() Variant { return SurjectiveGenerative }

// LatentDims implements Transform.
func (t *Augment) LatentDims(dataDims []int) []int {
	survae.CheckDims("Augment.LatentDims", dataDims, t.dataDims)
	return sameDims(t.latentDims)
}

// DataDims implements Transform.
func (t *Augment) DataDims(latentDims []int) []int {
	survae.CheckDims("Augment.DataDims", latentDims, t.latentDims)
	return sameDims(t.dataDims)
}

var _ Transform = (*Augment)(nil)
