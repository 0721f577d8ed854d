// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package terminal

import (
	"encoding/json"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyFrame_BinaryWrittenVerbatimWhenNotReadOnly(t *testing.T) {
	action := classifyFrame(websocket.BinaryMessage, []byte("keystrokes"), false)
	assert.Nil(t, action.resize)
	assert.Equal(t, []byte("keystrokes"), action.write)
}

func TestClassifyFrame_BinaryDroppedInSpectatorMode(t *testing.T) {
	action := classifyFrame(websocket.BinaryMessage, []byte("keystrokes"), true)
	assert.Nil(t, action.resize)
	assert.Nil(t, action.write)
}

func TestClassifyFrame_ResizeHonoredEvenInSpectatorMode(t *testing.T) {
	payload, err := json.Marshal(resizeControl{Type: "resize", Rows: 40, Cols: 100})
	require.NoError(t, err)

	action := classifyFrame(websocket.TextMessage, payload, true)
	require.NotNil(t, action.resize)
	assert.Equal(t, 40, action.resize.Rows)
	assert.Equal(t, 100, action.resize.Cols)
	assert.Nil(t, action.write)
}

func TestClassifyFrame_ResizeHonoredWhenNotReadOnly(t *testing.T) {
	payload, err := json.Marshal(resizeControl{Type: "resize", Rows: 24, Cols: 80})
	require.NoError(t, err)

	action := classifyFrame(websocket.TextMessage, payload, false)
	require.NotNil(t, action.resize)
	assert.Equal(t, 24, action.resize.Rows)
}

func TestClassifyFrame_UnparseableTextWrittenThroughWhenNotReadOnly(t *testing.T) {
	action := classifyFrame(websocket.TextMessage, []byte("not json"), false)
	assert.Nil(t, action.resize)
	assert.Equal(t, []byte("not json"), action.write)
}

func TestClassifyFrame_UnparseableTextDroppedInSpectatorMode(t *testing.T) {
	action := classifyFrame(websocket.TextMessage, []byte("not json"), true)
	assert.Nil(t, action.resize)
	assert.Nil(t, action.write)
}

func TestClassifyFrame_JSONWithoutResizeTypeWrittenThrough(t *testing.T) {
	payload := []byte(`{"type":"ping"}`)
	action := classifyFrame(websocket.TextMessage, payload, false)
	assert.Nil(t, action.resize)
	assert.Equal(t, payload, action.write)
}
