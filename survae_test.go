// Copyright 2024-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package survae_test

import (
	"testing"

	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/survae"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/gomlx/gomlx/backends/default"
)

func TestEventSize(t *testing.T) {
	assert.Equal(t, 1, survae.EventSize(nil))
	assert.Equal(t, 7, survae.EventSize([]int{7}))
	assert.Equal(t, 24, survae.EventSize([]int{2, 3, 4}))
}

func TestCheckEventDims(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	g := NewGraph(backend, "shapecheck")
	x := Zeros(g, shapes.Make(dtypes.Float32, 4, 3, 2))

	require.NotPanics(t, func() { survae.CheckEventDims("test", x, []int{3, 2}) })

	exception := exceptions.Try(func() { survae.CheckEventDims("test", x, []int{2, 3}) })
	shapeErr, ok := exception.(*survae.ShapeError)
	require.Truef(t, ok, "want *survae.ShapeError, got %v", exception)
	assert.ErrorContains(t, shapeErr, "test")

	exception = exceptions.Try(func() { survae.CheckEventDims("test", x, []int{3}) })
	_, ok = exception.(*survae.ShapeError)
	require.True(t, ok, "rank mismatch must also throw *survae.ShapeError")
}

func TestCheckDims(t *testing.T) {
	require.NotPanics(t, func() { survae.CheckDims("test", []int{2, 3}, []int{2, 3}) })
	exception := exceptions.Try(func() { survae.CheckDims("test", []int{2}, []int{3}) })
	_, ok := exception.(*survae.ShapeError)
	require.True(t, ok)
}

func TestCheckSameBatch(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	g := NewGraph(backend, "samebatch")
	a := Zeros(g, shapes.Make(dtypes.Float32, 4, 2))
	b := Zeros(g, shapes.Make(dtypes.Float32, 5, 2))
	require.NotPanics(t, func() { survae.CheckSameBatch("test", a, a) })
	exception := exceptions.Try(func() { survae.CheckSameBatch("test", a, b) })
	_, ok := exception.(*survae.ShapeError)
	require.True(t, ok)
}
