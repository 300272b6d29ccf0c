// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package transforms

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/survae"
	"github.com/gomlx/survae/distributions"
)

// VAE is the stochastic transform: a variational autoencoder layer expressed
// in the flow algebra. Its two directions are a pair of conditional
// distributions -- the encoder q(z|x) and the decoder p(x|z):
//
//	ToLatent: z ~ q(z|x), correction log p(x|z) - log q(z|x)
//	ToData:   x ~ p(x|z), correction log q(z|x) - log p(x|z)
//
// Folded into a flow, the ToLatent correction plus the base log-density is
// exactly the single-sample ELBO, a stochastic lower bound of log p(x).
// Round trips hold only in expectation, never exactly.
type VAE struct {
	encoder, decoder distributions.Conditional
}

// NewVAE creates a VAE transform from its encoder q(z|x) and decoder p(x|z).
// The decoder's event dimensions are the data side, the encoder's are the
// latent side; they may differ freely in shape and size.
func NewVAE(encoder, decoder distributions.Conditional) *VAE {
	return &VAE{encoder: encoder, decoder: decoder}
}

// ToLatent implements Transform.
func (t *VAE) ToLatent(x *Node) (z, logDensity *Node) {
	survae.CheckEventDims("VAE.ToLatent", x, t.decoder.EventDims())
	z, logQ := t.encoder.SampleAndLogProb(x)
	logP := t.decoder.LogProb(x, z)
	logDensity = Sub(logP, logQ)
	return
}

// ToData implements Transform.
func (t *VAE) ToData(z *Node) (x, logDensity *Node) {
	survae.CheckEventDims("VAE.ToData", z, t.encoder.EventDims())
	x, logP := t.decoder.SampleAndLogProb(z)
	logQ := t.encoder.LogProb(z, x)
	logDensity = Sub(logQ, logP)
	return
}

// Variant implements Transform.
func (t *VAE) Variant() Variant { return Stochastic }

// LatentDims implements Transform.
func (t *VAE) LatentDims(dataDims []int) []int {
	survae.CheckDims("VAE.LatentDims", dataDims, t.decoder.EventDims())
	return sameDims(t.encoder.EventDims())
}

// DataDims implements Transform.
func (t *VAE) DataDims(latentDims []int) []int {
	survae.CheckDims("VAE.DataDims", latentDims, t.encoder.EventDims())
	return sameDims(t.decoder.EventDims())
}

var _ Transform = (*VAE)(nil)
