// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package survae is the root of a library for composing generative probabilistic
// models out of invertible and stochastic transformations ("SurVAE flows"),
// unifying normalizing flows and variational autoencoders under a single
// composition algebra.
//
// A model is a flows.Flow: a base distributions.Distribution over a latent
// space plus an ordered sequence of transforms.Transform values. Each transform
// maps between a data-like side and a latent-like side, in one of four variants:
//
//   - Bijective: deterministic and exactly invertible, with a closed-form
//     log-Jacobian-determinant (couplings, ActNorm, permutations, invertible
//     linear mixing).
//   - Stochastic: randomized in both directions, no exact inverse (VAE layers).
//   - Surjective-Generative: deterministic latent→data, stochastic right
//     inverse data→latent (dequantization, augmentation).
//   - Surjective-Inferential: deterministic data→latent, stochastic right
//     inverse latent→data (slicing).
//
// Every transform operation returns, along with its output, one log-density
// correction per batch element; the Flow folds over the sequence accumulating
// those corrections, yielding an exact log-likelihood when every transform is
// bijective and a stochastic lower-bound estimate otherwise.
//
// All numerical work is delegated to the GoMLX computation graph engine: the
// library only builds graphs, it never executes tensor math itself. All
// learnable parameters live in a context.Context and are only mutated by an
// external optimizer, never by the transforms.
//
// This package holds the error taxonomy and the small contracts shared by the
// sub-packages; see the distributions, transforms and flows packages for the
// actual algebra.
package survae

import (
	"github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
)

// NetFn is an opaque parameterized graph-building function: it maps an input
// node to an output node, creating (or reusing) whatever variables it needs in
// ctx. Coupling transforms and conditional distributions take the networks
// that parameterize them as NetFn values and never inspect their internals.
//
// Implementations must be deterministic given (ctx, x) -- any stochasticity of
// a transform is owned by the transform itself -- and must preserve the batch
// (leading) axis of x.
type NetFn func(ctx *context.Context, x *graph.Node) *graph.Node
