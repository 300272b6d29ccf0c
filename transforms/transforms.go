// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package transforms holds the transformation layers a flows.Flow is composed
// of. A Transform maps between a data-like side and a latent-like side; the
// two operations are named by direction -- ToLatent (inference) and ToData
// (generation) -- and each returns, along with the mapped value, one
// log-density correction per batch element.
//
// There are exactly four behavioral variants (see Variant), each with its own
// density-accounting contract:
//
//   - Bijective: ToLatent returns the exact log|det J| of the data→latent
//     map, ToData its exact negative. ToData(ToLatent(x)) == x up to float
//     precision.
//   - Stochastic: ToLatent samples z ~ q(z|x) and returns
//     log p(x|z) − log q(z|x); ToData samples x ~ p(x|z) and returns the
//     negated term for the pair it generated. Round trips hold only in
//     expectation.
//   - SurjectiveGenerative: ToData is a deterministic, non-invertible
//     function f; ToLatent samples one right inverse z ~ q(z|x) and returns
//     −log q(z|x) plus any closed-form Jacobian contribution of f.
//     ToData(ToLatent(x)) == x exactly.
//   - SurjectiveInferential: the mirror image -- ToLatent deterministic,
//     ToData a stochastic right inverse. ToLatent(ToData(z)) == z exactly.
//
// With this contract, a flow's log-likelihood is the sum of the base
// log-density and every ToLatent correction; the sum is exact when every
// transform is bijective and a stochastic lower-bound estimate otherwise.
//
// Transforms are constructed once -- declaring their event dimensions, dtype
// and learnable parameters (context.Context variables) -- and reused across
// invocations; they retain no per-call state. Inputs whose non-batch
// dimensions do not match the declaration throw a *survae.ShapeError.
package transforms

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/survae"
)

// Variant tags the behavioral contract of a Transform.
type Variant int

const (
	// Bijective transforms are deterministic and exactly invertible, with
	// exact log-Jacobian-determinant corrections.
	Bijective Variant = iota

	// Stochastic transforms are randomized in both directions; corrections
	// are stochastic estimators (VAE layers).
	Stochastic

	// SurjectiveGenerative transforms are deterministic latent→data and
	// stochastic data→latent (dequantization, augmentation).
	SurjectiveGenerative

	// SurjectiveInferential transforms are deterministic data→latent and
	// stochastic latent→data (slicing).
	SurjectiveInferential
)

// String implements fmt.Stringer.
func (v Variant) String() string {
	switch v {
	case Bijective:
		return "Bijective"
	case Stochastic:
		return "Stochastic"
	case SurjectiveGenerative:
		return "SurjectiveGenerative"
	case SurjectiveInferential:
		return "SurjectiveInferential"
	}
	return "InvalidVariant"
}

// StochasticToLatent reports whether ToLatent draws random numbers.
func (v Variant) StochasticToLatent() bool {
	return v == Stochastic || v == SurjectiveGenerative
}

// StochasticToData reports whether ToData draws random numbers.
func (v Variant) StochasticToData() bool {
	return v == Stochastic || v == SurjectiveInferential
}

// HasExactLogDensity reports whether the log-density corrections are exact,
// as opposed to stochastic estimates.
func (v Variant) HasExactLogDensity() bool { return v == Bijective }

// Transform is one layer of a flow: a mapping between a data-like side and a
// latent-like side with the density-accounting contract of its Variant.
//
// Both operations return one log-density correction per batch element, shaped
// [batch], in log-space; corrections are accumulated additively by the flow
// and never aggregated across the batch inside a transform. ToData's
// correction is the exact negative of ToLatent's for the same (x, z) pair, so
// the two directions cancel -- exactly for bijections, in expectation for the
// stochastic variants.
//
// Implementations never mutate their inputs: every operation produces new
// nodes.
type Transform interface {
	// ToLatent maps a data-side value to the latent side (inference
	// direction). x must be shaped [batch, dataDims...] per the transform's
	// declaration, or it throws a *survae.ShapeError.
	ToLatent(x *Node) (z, logDensity *Node)

	// ToData maps a latent-side value to the data side (generative
	// direction). z must be shaped [batch, latentDims...] per the
	// transform's declaration, or it throws a *survae.ShapeError.
	ToData(z *Node) (x, logDensity *Node)

	// Variant returns the behavioral contract tag.
	Variant() Variant

	// LatentDims maps data-side event dimensions to latent-side event
	// dimensions. It throws a *survae.ShapeError if dataDims does not match
	// the transform's declaration. Together with DataDims it declares
	// whether dimensionality changes between the two sides.
	LatentDims(dataDims []int) []int

	// DataDims is the inverse of LatentDims.
	DataDims(latentDims []int) []int
}

// NetFn is an alias of survae.NetFn, the opaque parameterized function type
// used to build couplings and conditional distributions.
type NetFn = survae.NetFn

// zeroLogDensity returns a [batch] node of zeros, the correction of
// volume-preserving deterministic maps.
func zeroLogDensity(x *Node) *Node {
	g := x.Graph()
	batch := x.Shape().Dimensions[0]
	return Zeros(g, shapes.Make(x.DType(), batch))
}

// constantLogDensity returns a [batch] node filled with a value that is
// independent of the input, e.g. a closed-form Jacobian term.
func constantLogDensity(x *Node, value float64) *Node {
	g := x.Graph()
	batch := x.Shape().Dimensions[0]
	return FillScalar(g, shapes.Make(x.DType(), batch), value)
}

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

// broadcastToBatch broadcasts a scalar node to shape [batch].
func broadcastToBatch(scalar *Node, batch int) *Node {
	return BroadcastToDims(InsertAxes(scalar, 0), batch)
}

// splitLastAxis splits x along its last axis into a leading part of the given
// size and the remainder.
func splitLastAxis(x *Node, leading int) (a, b *Node) {
	last := x.Shape().Dimensions[x.Rank()-1]
	a = SliceAxis(x, -1, AxisRange(0, leading))
	b = SliceAxis(x, -1, AxisRange(leading, last))
	return
}

// sameDims returns a copy of dims; the dimension mapping of transforms that
// do not change dimensionality.
func sameDims(dims []int) []int {
	out := make([]int, len(dims))
	copy(out, dims)
	return out
}
