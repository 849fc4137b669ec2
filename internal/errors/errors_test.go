package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormat(t *testing.T) {
	err := PartialObject("Base Application", "Table Customer", io.ErrUnexpectedEOF)
	assert.Equal(t, "OBJ001: package Base Application: object Table Customer: object skipped: unexpected EOF", err.Error())

	err = InvalidRequest("limit must be between %d and %d", 1, 500)
	assert.Equal(t, "REQ001: limit must be between 1 and 500", err.Error())
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("loading: %w", DecodeArchive("App", io.EOF))

	assert.True(t, stderrors.Is(err, ErrDecodeFailure))
	assert.False(t, stderrors.Is(err, ErrNotFound))
	assert.True(t, stderrors.Is(err, io.EOF), "cause is reachable through Unwrap")
	assert.Equal(t, KindDecodeFailure, KindOf(err))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(io.EOF))
	assert.Equal(t, KindAmbiguous, KindOf(Ambiguous("two matches")))
	assert.True(t, IsInvalidRequest(fmt.Errorf("wrap: %w", InvalidRequest("bad"))))
	assert.False(t, IsInvalidRequest(NotFound("missing")))
}

func TestErrorJSON(t *testing.T) {
	data, err := json.Marshal(DecodeDocument("App", io.EOF))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "decode_failure", decoded["kind"])
	assert.Equal(t, "DEC002", decoded["code"])
	assert.Equal(t, "App", decoded["package"])
	assert.NotContains(t, decoded, "Err")
}
