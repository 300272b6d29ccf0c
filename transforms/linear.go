// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package transforms

import (
	"math/rand"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/initializers"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/survae"
)

// Permutation is a fixed permutation of the channels (the last event axis).
// It is volume-preserving: its log-determinant is identically zero. The
// inverse permutation is precomputed at construction.
type Permutation struct {
	eventDims []int
	perm, inv []int
}

// NewPermutation creates a Permutation over events shaped eventDims. perm
// maps latent channel i to data channel perm[i]: ToLatent moves channel
// perm[i] to position i. perm must be a permutation of 0..featureDim-1 or a
// *survae.ShapeError is thrown.
func NewPermutation(perm []int, eventDims ...int) *Permutation {
	if len(eventDims) == 0 {
		survae.PanicShapef("NewPermutation: at least one event dimension required")
	}
	featureDim := eventDims[len(eventDims)-1]
	if len(perm) != featureDim {
		survae.PanicShapef("NewPermutation: perm has %d entries, last event dimension is %d",
			len(perm), featureDim)
	}
	inv := make([]int, featureDim)
	seen := make([]bool, featureDim)
	for i, p := range perm {
		if p < 0 || p >= featureDim || seen[p] {
			survae.PanicShapef("NewPermutation: perm %v is not a permutation of 0..%d", perm, featureDim-1)
		}
		seen[p] = true
		inv[p] = i
	}
	return &Permutation{
		eventDims: eventDims,
		perm:      append([]int(nil), perm...),
		inv:       inv,
	}
}

// NewReverse creates the Permutation that reverses the channel order, the
// usual companion of couplings so consecutive layers transform different
// halves.
func NewReverse(eventDims ...int) *Permutation {
	if len(eventDims) == 0 {
		survae.PanicShapef("NewReverse: at least one event dimension required")
	}
	featureDim := eventDims[len(eventDims)-1]
	perm := make([]int, featureDim)
	for i := range perm {
		perm[i] = featureDim - 1 - i
	}
	return NewPermutation(perm, eventDims...)
}

// NewShuffle creates a Permutation drawn uniformly at random from the given
// seed. The permutation is fixed once drawn -- it is configuration, not a
// learnable parameter -- so the same seed always builds the same transform.
func NewShuffle(seed int64, eventDims ...int) *Permutation {
	if len(eventDims) == 0 {
		survae.PanicShapef("NewShuffle: at least one event dimension required")
	}
	featureDim := eventDims[len(eventDims)-1]
	rng := rand.New(rand.NewSource(seed))
	return NewPermutation(rng.Perm(featureDim), eventDims...)
}

// applyPerm reorders the channels of v according to perm, by concatenating
// single-channel slices in the permuted order.
func applyPerm(v *Node, perm []int) *Node {
	parts := make([]*Node, len(perm))
	for i, p := range perm {
		parts[i] = SliceAxis(v, -1, AxisElem(p))
	}
	return Concatenate(parts, -1)
}

// ToLatent implements Transform.
func (t *Permutation) ToLatent(x *Node) (z, logDensity *Node) {
	survae.CheckEventDims("Permutation.ToLatent", x, t.eventDims)
	return applyPerm(x, t.perm), zeroLogDensity(x)
}

// ToData implements Transform.
func (t *Permutation) ToData(z *Node) (x, logDensity *Node) {
	survae.CheckEventDims("Permutation.ToData", z, t.eventDims)
	return applyPerm(z, t.inv), zeroLogDensity(z)
}

// Variant implements Transform.
func (t *Permutation) Variant() Variant { return Bijective }

// LatentDims implements Transform.
func (t *Permutation) LatentDims(dataDims []int) []int {
	survae.CheckDims("Permutation.LatentDims", dataDims, t.eventDims)
	return sameDims(dataDims)
}

// DataDims implements Transform.
func (t *Permutation) DataDims(latentDims []int) []int {
	survae.CheckDims("Permutation.DataDims", latentDims, t.eventDims)
	return sameDims(latentDims)
}

// InvertibleLinear is a learnable invertible mixing of the channels of flat
// (rank-1 event) inputs, the generalization of a permutation -- the role a 1x1
// convolution plays in image flows.
//
// The mixing matrix is parameterized as W = H_k · … · H_1 · diag(exp(s)):
// a product of k Householder reflections (orthogonal, volume-preserving)
// composed with a learnable diagonal scale. The parameterization keeps both
// the log-determinant (Σ s, a closed form) and the exact inverse (reversed
// reflections, negated scales) cheap: no matrix decomposition is ever needed.
//
// Reflection vectors are randomly initialized; the log-scale starts at zero,
// so the initial transform is an orthogonal mixing with log-determinant zero.
type InvertibleLinear struct {
	ctx            *context.Context
	dtype          dtypes.DType
	numFeatures    int
	numReflections int

	vectorsVar, logScaleVar *context.Variable
}

// NewInvertibleLinear creates an InvertibleLinear over events shaped
// [numFeatures], with numFeatures Householder reflections (a full orthogonal
// family). Use NumReflections to trade expressiveness for compute. Variables
// are created in ctx (use ctx.In(...) to scope them).
func NewInvertibleLinear(ctx *context.Context, dtype dtypes.DType, numFeatures int) *InvertibleLinear {
	if numFeatures < 1 {
		survae.PanicShapef("NewInvertibleLinear: numFeatures must be ≥ 1, got %d", numFeatures)
	}
	return &InvertibleLinear{
		ctx:            ctx,
		dtype:          dtype,
		numFeatures:    numFeatures,
		numReflections: numFeatures,
	}
}

// NumReflections sets the number of Householder reflections composing the
// orthogonal part. Must be called before the first use.
func (t *InvertibleLinear) NumReflections(k int) *InvertibleLinear {
	if k < 1 {
		survae.PanicShapef("InvertibleLinear.NumReflections: must be ≥ 1, got %d", k)
	}
	if t.vectorsVar != nil {
		survae.PanicShapef("InvertibleLinear.NumReflections: transform already in use")
	}
	t.numReflections = k
	return t
}

// variables creates the learnable parameters on first use.
func (t *InvertibleLinear) variables() {
	if t.vectorsVar != nil {
		return
	}
	vectorsCtx := t.ctx.WithInitializer(initializers.RandomNormalFn(t.ctx, 1.0))
	t.vectorsVar = vectorsCtx.VariableWithShape("householder_vectors",
		shapes.Make(t.dtype, t.numReflections, t.numFeatures))
	t.logScaleVar = t.ctx.WithInitializer(initializers.Zero).
		VariableWithShape("log_scale", shapes.Make(t.dtype, t.numFeatures))
}

// reflect applies the i-th Householder reflection to u ([batch, numFeatures]):
// u - 2·(u·v̂)·v̂ᵀ.
func (t *InvertibleLinear) reflect(u *Node, i int) *Node {
	g := u.Graph()
	v := SliceAxis(t.vectorsVar.ValueGraph(g), 0, AxisElem(i)) // [1, numFeatures]
	squaredNorm := ReduceAllSum(Square(v))                     // scalar
	dot := ReduceSum(Mul(u, v), -1)                            // [batch]
	coef := InsertAxes(Div(dot, squaredNorm), -1)              // [batch, 1]
	return Sub(u, MulScalar(Mul(coef, v), 2))
}

// ToLatent implements Transform: z = H_k·…·H_1·(x · exp(s))... applied as
// scale first, then the reflections in order.
func (t *InvertibleLinear) ToLatent(x *Node) (z, logDensity *Node) {
	survae.CheckEventDims("InvertibleLinear.ToLatent", x, []int{t.numFeatures})
	t.variables()
	g := x.Graph()
	logScale := t.logScaleVar.ValueGraph(g)
	u := Mul(x, Exp(InsertAxes(logScale, 0)))
	for i := 0; i < t.numReflections; i++ {
		u = t.reflect(u, i)
	}
	z = u
	logDensity = broadcastToBatch(ReduceAllSum(logScale), x.Shape().Dimensions[0])
	return
}

// ToData implements Transform: the exact inverse -- reflections in reverse
// order (each is its own inverse), then the negated scales.
func (t *InvertibleLinear) ToData(z *Node) (x, logDensity *Node) {
	survae.CheckEventDims("InvertibleLinear.ToData", z, []int{t.numFeatures})
	t.variables()
	g := z.Graph()
	logScale := t.logScaleVar.ValueGraph(g)
	u := z
	for i := t.numReflections - 1; i >= 0; i-- {
		u = t.reflect(u, i)
	}
	x = Mul(u, Exp(Neg(InsertAxes(logScale, 0))))
	logDensity = Neg(broadcastToBatch(ReduceAllSum(logScale), z.Shape().Dimensions[0]))
	return
}

// Variant implements Transform.
func (t *InvertibleLinear) Variant() Variant { return Bijective }

// LatentDims implements Transform.
func (t *InvertibleLinear) LatentDims(dataDims []int) []int {
	survae.CheckDims("InvertibleLinear.LatentDims", dataDims, []int{t.numFeatures})
	return sameDims(dataDims)
}

// DataDims implements Transform.
func (t *InvertibleLinear) DataDims(latentDims []int) []int {
	survae.CheckDims("InvertibleLinear.DataDims", latentDims, []int{t.numFeatures})
	return sameDims(latentDims)
}

var (
	_ Transform = (*Permutation)(nil)
	_ Transform = (*InvertibleLinear)(nil)
)
