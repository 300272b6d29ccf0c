// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package distributions holds the probability distributions a flow is built
// from: the base (latent) distributions a flows.Flow evaluates against and
// samples from, and the conditional distributions used inside stochastic and
// surjective transforms (encoders, decoders and right inverses).
//
// All log-densities are computed in log-space and returned as one scalar per
// batch element, shaped [batch] -- they are never aggregated across the batch.
// Sample and LogProb of a Distribution are mutually consistent: LogProb is a
// valid density for whatever Sample draws from.
//
// Learnable parameters are held as context.Context variables and are only
// mutated by an external optimizer, never by the distributions themselves.
package distributions

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gopjrt/dtypes"
)

// Distribution is an unconditional distribution over a fixed event shape.
// It is the terminal piece of a flows.Flow: the latent density the flow
// evaluates against and samples from.
type Distribution interface {
	// LogProb returns the log-density of x, one scalar per batch element,
	// shaped [batch]. x must be shaped [batch, EventDims()...]; it throws a
	// *survae.ShapeError otherwise.
	LogProb(x *Node) *Node

	// Sample draws numSamples independent samples, shaped
	// [numSamples, EventDims()...].
	Sample(g *Graph, numSamples int) *Node

	// EventDims are the non-batch dimensions of one sample.
	EventDims() []int

	// DType of the samples and densities.
	DType() dtypes.DType
}

// Conditional is a conditional distribution p(y|x), used as the encoder and
// decoder of VAE transforms, the noise distribution of augmentation and the
// right-inverse distribution of slicing.
//
// The conditioning input x is an arbitrary batched node; implementations that
// are parameterized by a network define the shape contract between x and the
// network. The event y is shaped [batch, EventDims()...].
type Conditional interface {
	// SampleAndLogProb draws y ~ p(y|x) and returns it along with its
	// log-density, shaped [batch].
	SampleAndLogProb(x *Node) (y, logProb *Node)

	// LogProb returns log p(y|x), shaped [batch].
	LogProb(y, x *Node) *Node

	// EventDims are the non-batch dimensions of y.
	EventDims() []int
}

const log2Pi = 1.8378770664093453 // log(2π)

// sumOverEvent reduces all non-batch axes, returning one scalar per batch
// element, shaped [batch].
func sumOverEvent(x *Node) *Node {
	if x.Rank() == 1 {
		return x
	}
	axes := make([]int, 0, x.Rank()-1)
	for axis := 1; axis < x.Rank(); axis++ {
		axes = append(axes, axis)
	}
	return ReduceSum(x, axes...)
}

// standardLogProb is the element-wise standard normal log-density of eps,
// summed over the event axes.
func standardLogProb(eps *Node) *Node {
	elemwise := AddScalar(MulScalar(Square(eps), -0.5), -0.5*log2Pi)
	return sumOverEvent(elemwise)
}
