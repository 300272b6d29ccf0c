// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package flows composes a base distribution with an ordered sequence of
// transforms into a generative model with a tractable (exact or lower-bound)
// log-likelihood.
//
// LogProb folds the sequence in declared order (data → latent), accumulating
// each transform's ToLatent log-density correction, and finishes with the
// base distribution's log-density of the final latent value. Sample draws
// from the base and folds ToData in reverse order. SampleWithLogProb does
// both at once, accumulating the ToData corrections with the opposite sign,
// so a freshly drawn sample comes with its own log-density estimate without a
// second inference pass.
//
// The fold depends only on the Transform interface, never on the concrete
// variant: an all-bijective flow yields exact likelihoods, while stochastic
// and surjective layers turn the result into a stochastic lower-bound
// estimate (an ELBO), with no change to the composition logic.
package flows

import (
	"fmt"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/nanlogger"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/survae"
	"github.com/gomlx/survae/distributions"
	"github.com/gomlx/survae/transforms"
)

// Flow is a base distribution over the latent space plus an ordered sequence
// of transforms between the data space and the latent space. The sequence
// order is part of the model and fixed at construction; the first transform
// touches the data side, the last one produces the latent the base
// distribution evaluates.
//
// A Flow owns no mutable state: learnable parameters live in the transforms'
// and base's context variables, so a Flow is safe for concurrent graph
// building the same way the underlying engine is.
type Flow struct {
	base       distributions.Distribution
	transforms []transforms.Transform
	dataDims   []int
	nanLogger  *nanlogger.NanLogger
}

// New creates a Flow from its base distribution and the transform sequence in
// inference (data → latent) order. An empty sequence is valid: the Flow then
// degenerates to the base distribution.
//
// The declared event dimensions of the sequence are checked end to end
// against the base distribution at construction; a mismatch throws a
// *survae.ShapeError.
func New(base distributions.Distribution, sequence ...transforms.Transform) *Flow {
	dims := base.EventDims()
	for i := len(sequence) - 1; i >= 0; i-- {
		dims = sequence[i].DataDims(dims)
	}
	return &Flow{
		base:       base,
		transforms: sequence,
		dataDims:   dims,
	}
}

// WithNanLogger attaches a nanlogger.NanLogger: every accumulated log-density
// term is traced, so the first non-finite term is surfaced (with the
// transform that produced it) when the logger is attached to the executor.
// Non-finite terms are never recovered or substituted. Returns the Flow for
// chaining.
func (f *Flow) WithNanLogger(l *nanlogger.NanLogger) *Flow {
	f.nanLogger = l
	return f
}

// Base returns the base distribution.
func (f *Flow) Base() distributions.Distribution { return f.base }

// Transforms returns the transform sequence in inference order. The returned
// slice must not be modified.
func (f *Flow) Transforms() []transforms.Transform { return f.transforms }

// DataDims are the event dimensions of the data side.
func (f *Flow) DataDims() []int { return f.dataDims }

// LatentDims are the event dimensions of the latent side, i.e. of the base
// distribution.
func (f *Flow) LatentDims() []int { return f.base.EventDims() }

// trace registers the log-density term with the attached NanLogger, if any.
func (f *Flow) trace(term *Node, step int, what string) {
	if f.nanLogger == nil {
		return
	}
	f.nanLogger.TraceFirstNaN(term, fmt.Sprintf("flow/%s[%d]", what, step))
}

// LogProb returns the log-likelihood of x -- exact if every transform is
// bijective, a single-sample stochastic lower bound otherwise -- one scalar
// per batch element, shaped [batch]. x must be shaped [batch, DataDims()...].
//
// It is a strict left-to-right fold: each transform's ToLatent is applied in
// declared order, its correction accumulated, and the base log-density of the
// final latent value added.
func (f *Flow) LogProb(x *Node) *Node {
	survae.CheckEventDims("Flow.LogProb", x, f.dataDims)
	logProb := Zeros(x.Graph(), shapes.Make(x.DType(), x.Shape().Dimensions[0]))
	for i, t := range f.transforms {
		var term *Node
		x, term = t.ToLatent(x)
		f.trace(term, i, "to-latent")
		logProb = Add(logProb, term)
	}
	baseTerm := f.base.LogProb(x)
	f.trace(baseTerm, len(f.transforms), "base")
	return Add(logProb, baseTerm)
}

// Sample draws numSamples from the model: a base sample pushed through every
// transform's ToData in reverse declared order. The result is shaped
// [numSamples, DataDims()...].
func (f *Flow) Sample(g *Graph, numSamples int) *Node {
	x, _ := f.sample(g, numSamples)
	return x
}

// SampleWithLogProb draws numSamples and also returns the model's log-density
// of the drawn samples ([numSamples]), accumulated along the sampled path --
// the generative-direction corrections enter with the opposite sign of
// LogProb's, so for an all-bijective flow the result equals LogProb of the
// returned samples.
func (f *Flow) SampleWithLogProb(g *Graph, numSamples int) (x, logProb *Node) {
	return f.sample(g, numSamples)
}

func (f *Flow) sample(g *Graph, numSamples int) (x, logProb *Node) {
	x = f.base.Sample(g, numSamples)
	logProb = f.base.LogProb(x)
	f.trace(logProb, len(f.transforms), "base")
	for i := len(f.transforms) - 1; i >= 0; i-- {
		var term *Node
		x, term = f.transforms[i].ToData(x)
		f.trace(term, i, "to-data")
		logProb = Sub(logProb, term)
	}
	return
}
