// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package flows

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
)

// NegLogLikelihood is a train.Trainer-compatible loss: it expects the model
// function to return the per-example log-likelihood (Flow.LogProb) as its
// first prediction and ignores labels. The loss is the mean negative
// log-likelihood over the batch, a scalar.
//
// Typical use:
//
//	modelFn := func(ctx *context.Context, spec any, inputs []*Node) []*Node {
//		return []*Node{flow.LogProb(inputs[0])}
//	}
//	trainer := train.NewTrainer(backend, ctx, modelFn, flows.NegLogLikelihood,
//		optimizers.Adam().Done(), nil, nil)
func NegLogLikelihood(labels, predictions []*Node) *Node {
	_ = labels
	return Neg(ReduceAllMean(predictions[0]))
}
