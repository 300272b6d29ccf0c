// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package transforms

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/survae"
	"github.com/gomlx/survae/distributions"
)

// Slicing is an inferential surjection, the mirror image of Augment: it narrows
// the latent space by deterministically keeping the leading channels of the
// last event axis and routing the rest to a conditional density:
//
//	ToLatent: z = x[..., :numKeep]  (deterministic projection)
//	ToData:   x = [z, r], r ~ p(r|z)  (stochastic right inverse)
//
// The ToLatent correction is +log p(x[..., numKeep:] | z) -- the "decoder"
// likelihood of the dimensions sliced off -- and ToData's is its exact
// negative. ToLatent(ToData(z)) == z exactly.
type Slicing struct {
	dec        distributions.Conditional
	numKeep    int
	dataDims   []int
	latentDims []int
}

// NewSlice creates a Slicing over data events shaped eventDims, keeping the
// leading numKeep channels of the last axis. dec models the sliced-off
// remainder given the kept part; its event dimensions must match eventDims
// with a last axis of (last - numKeep).
func NewSlice(dec distributions.Conditional, numKeep int, eventDims ...int) *Slicing {
	if len(eventDims) == 0 {
		survae.PanicShapef("NewSlice: at least one event dimension required")
	}
	last := eventDims[len(eventDims)-1]
	if numKeep < 1 || numKeep >= last {
		survae.PanicShapef("NewSlice: numKeep must be in [1, %d), got %d", last, numKeep)
	}
	wantDecDims := sameDims(eventDims)
	wantDecDims[len(wantDecDims)-1] = last - numKeep
	survae.CheckDims("NewSlice (decoder event dims)", dec.EventDims(), wantDecDims)
	latentDims := sameDims(eventDims)
	latentDims[len(latentDims)-1] = numKeep
	return &Slicing{dec: dec, numKeep: numKeep, dataDims: eventDims, latentDims: latentDims}
}

// ToLatent implements Transform.
func (t *Slicing) ToLatent(x *Node) (z, logDensity *Node) {
	survae.CheckEventDims("Slicing.ToLatent", x, t.dataDims)
	z, rest := splitLastAxis(x, t.numKeep)
	logDensity = t.dec.LogProb(rest, z)
	return
}

// ToData implements Transform.
func (t *Slicing) ToData(z *Node) (x, logDensity *Node) {
	survae.CheckEventDims("Slicing.ToData", z, t.latentDims)
	rest, logP := t.dec.SampleAndLogProb(z)
	x = Concatenate([]*Node{z, rest}, -1)
	logDensity = Neg(logP)
	return
}

// Variant implements Transform.
func (t *Slicing) Variant() Variant { return SurjectiveInferential }

// LatentDims implements Transform.
func (t *Slicing) LatentDims(dataDims []int) []int {
	survae.CheckDims("Slicing.LatentDims", dataDims, t.dataDims)
	return sameDims(t.latentDims)
}

// DataDims implements Transform.
func (t *Slicing) DataDims(latentDims []int) []int {
	survae.CheckDims("Slicing.DataDims", latentDims, t.latentDims)
	return sameDims(t.dataDims)
}

var _ Transform = (*Slicing)(nil)
