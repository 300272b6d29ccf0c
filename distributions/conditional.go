// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package distributions

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/survae"
)

// ConditionalNormal is a diagonal normal p(y|x) whose mean and log-scale are
// produced by an opaque parameterized network: net(ctx, x) must return a node
// shaped [batch, 2·eventSize], the first half interpreted as the mean and the
// second half as the log-scale of y.
type ConditionalNormal struct {
	ctx       *context.Context
	net       survae.NetFn
	eventDims []int
	eventSize int
}

// NewConditionalNormal creates a conditional diagonal normal over events
// shaped eventDims, parameterized by net. The network owns its variables
// (created in ctx); the distribution never inspects them.
func NewConditionalNormal(ctx *context.Context, net survae.NetFn, eventDims ...int) *ConditionalNormal {
	return &ConditionalNormal{
		ctx:       ctx,
		net:       net,
		eventDims: eventDims,
		eventSize: survae.EventSize(eventDims),
	}
}

// params runs the network on x and splits its output into mean and log-scale,
// each reshaped to [batch, eventDims...].
func (d *ConditionalNormal) params(x *Node) (mean, logScale *Node) {
	// Checked(false) so the net's variables are created on the first call and
	// reused by later calls in the same graph.
	out := d.net(d.ctx.Checked(false), x)
	if out.Rank() != 2 || out.Shape().Dimensions[1] != 2*d.eventSize {
		survae.PanicShapef("ConditionalNormal: net must output [batch, %d], got %s",
			2*d.eventSize, out.Shape())
	}
	survae.CheckSameBatch("ConditionalNormal", out, x)
	batch := out.Shape().Dimensions[0]
	eventShape := append([]int{batch}, d.eventDims...)
	mean = Reshape(SliceAxis(out, -1, AxisRange(0, d.eventSize)), eventShape...)
	logScale = Reshape(SliceAxis(out, -1, AxisRange(d.eventSize, 2*d.eventSize)), eventShape...)
	return
}

// SampleAndLogProb implements Conditional.
func (d *ConditionalNormal) SampleAndLogProb(x *Node) (y, logProb *Node) {
	g := x.Graph()
	mean, logScale := d.params(x)
	eps := d.ctx.RandomNormal(g, mean.Shape())
	y = Add(Mul(eps, Exp(logScale)), mean)
	logProb = Sub(standardLogProb(eps), sumOverEvent(logScale))
	return
}

// LogProb implements Conditional.
func (d *ConditionalNormal) LogProb(y, x *Node) *Node {
	survae.CheckEventDims("ConditionalNormal.LogProb", y, d.eventDims)
	survae.CheckSameBatch("ConditionalNormal.LogProb", y, x)
	mean, logScale := d.params(x)
	eps := Mul(Sub(y, mean), Exp(Neg(logScale)))
	return Sub(standardLogProb(eps), sumOverEvent(logScale))
}

// EventDims implements Conditional.
func (d *ConditionalNormal) EventDims() []int { return d.eventDims }

// ConditionalBernoulli is an element-wise Bernoulli p(y|x) over binary (0/1
// valued, float dtype) events, parameterized by an opaque network producing
// logits: net(ctx, x) must return a node shaped [batch, eventSize]. It is the
// usual decoder for binarized data.
type ConditionalBernoulli struct {
	ctx       *context.Context
	net       survae.NetFn
	eventDims []int
	eventSize int
}

// NewConditionalBernoulli creates an element-wise Bernoulli conditional over
// events shaped eventDims, parameterized by net.
func NewConditionalBernoulli(ctx *context.Context, net survae.NetFn, eventDims ...int) *ConditionalBernoulli {
	return &ConditionalBernoulli{
		ctx:       ctx,
		net:       net,
		eventDims: eventDims,
		eventSize: survae.EventSize(eventDims),
	}
}

func (d *ConditionalBernoulli) logits(x *Node) *Node {
	out := d.net(d.ctx.Checked(false), x)
	if out.Rank() != 2 || out.Shape().Dimensions[1] != d.eventSize {
		survae.PanicShapef("ConditionalBernoulli: net must output [batch, %d], got %s",
			d.eventSize, out.Shape())
	}
	batch := out.Shape().Dimensions[0]
	return Reshape(out, append([]int{batch}, d.eventDims...)...)
}

// SampleAndLogProb implements Conditional.
func (d *ConditionalBernoulli) SampleAndLogProb(x *Node) (y, logProb *Node) {
	g := x.Graph()
	logits := d.logits(x)
	u := d.ctx.RandomUniform(g, logits.Shape())
	y = ConvertDType(LessThan(u, Sigmoid(logits)), logits.DType())
	logProb = d.logProbGivenLogits(y, logits)
	return
}

// LogProb implements Conditional.
func (d *ConditionalBernoulli) LogProb(y, x *Node) *Node {
	survae.CheckEventDims("ConditionalBernoulli.LogProb", y, d.eventDims)
	survae.CheckSameBatch("ConditionalBernoulli.LogProb", y, x)
	return d.logProbGivenLogits(y, d.logits(x))
}

// logProbGivenLogits is Σ y·log σ(l) + (1-y)·log(1-σ(l)), computed in the
// numerically stable softplus form.
func (d *ConditionalBernoulli) logProbGivenLogits(y, logits *Node) *Node {
	logP1 := Neg(Softplus(Neg(logits))) // log σ(l)
	logP0 := Neg(Softplus(logits))      // log(1-σ(l))
	elemwise := Add(Mul(y, logP1), Mul(OneMinus(y), logP0))
	return sumOverEvent(elemwise)
}

// EventDims implements Conditional.
func (d *ConditionalBernoulli) EventDims() []int { return d.eventDims }

// StandardNormalConditional is a Conditional that ignores its conditioning
// input: y ~ N(0, I) regardless of x. It is the simplest noise source for
// augmentation transforms.
type StandardNormalConditional struct {
	ctx       *context.Context
	dtype     dtypes.DType
	eventDims []int
}

// NewStandardNormalConditional creates a conditioning-independent N(0, I)
// Conditional over events shaped eventDims.
func NewStandardNormalConditional(ctx *context.Context, dtype dtypes.DType, eventDims ...int) *StandardNormalConditional {
	return &StandardNormalConditional{ctx: ctx, dtype: dtype, eventDims: eventDims}
}

// SampleAndLogProb implements Conditional. Only the batch dimension of x is
// used.
func (d *StandardNormalConditional) SampleAndLogProb(x *Node) (y, logProb *Node) {
	g := x.Graph()
	batch := x.Shape().Dimensions[0]
	dims := append([]int{batch}, d.eventDims...)
	y = d.ctx.RandomNormal(g, shapes.Make(d.dtype, dims...))
	logProb = standardLogProb(y)
	return
}

// LogProb implements Conditional.
func (d *StandardNormalConditional) LogProb(y, x *Node) *Node {
	survae.CheckEventDims("StandardNormalConditional.LogProb", y, d.eventDims)
	survae.CheckSameBatch("StandardNormalConditional.LogProb", y, x)
	return standardLogProb(y)
}

// EventDims implements Conditional.
func (d *StandardNormalConditional) EventDims() []int { return d.eventDims }

var (
	_ Distribution = (*StandardNormal)(nil)
	_ Distribution = (*Normal)(nil)
	_ Conditional  = (*ConditionalNormal)(nil)
	_ Conditional  = (*ConditionalBernoulli)(nil)
	_ Conditional  = (*StandardNormalConditional)(nil)
)
