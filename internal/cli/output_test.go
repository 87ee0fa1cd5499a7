package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestOutputFormatter_SuccessJSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}
	require.NoError(t, f.Success(map[string]string{"name": "gates"}))

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "gates", data["name"])
}

func TestOutputFormatter_SuccessYAML(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "yaml", Writer: &buf}
	require.NoError(t, f.Success(map[string]string{"name": "gates"}))

	var resp struct {
		Status string         `yaml:"status"`
		Data   map[string]any `yaml:"data"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "gates", resp.Data["name"])
}

func TestOutputFormatter_SuccessText(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}
	require.NoError(t, f.Success("created IP gates"))
	assert.Equal(t, "created IP gates\n", buf.String())
}

func TestOutputFormatter_ErrorFormats(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}
	require.NoError(t, f.Error("UNRESOLVED_DEPENDENCY", "no version of gates satisfies 2"))

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNRESOLVED_DEPENDENCY", resp.Error.Code)

	buf.Reset()
	f.Format = "text"
	require.NoError(t, f.Error("UNRESOLVED_DEPENDENCY", "no version of gates satisfies 2"))
	assert.Contains(t, buf.String(), "[UNRESOLVED_DEPENDENCY]")
	assert.Contains(t, buf.String(), "no version of gates satisfies 2")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	var out, errw bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &out, ErrWriter: &errw, Verbose: false}
	f.VerboseLog("resolving %s", "gates")
	assert.Empty(t, errw.String())

	f.Verbose = true
	f.VerboseLog("resolving %s", "gates")
	assert.Equal(t, "resolving gates\n", errw.String())
	// structured output stream stays clean
	assert.Empty(t, out.String())
}

func TestExitError_Codes(t *testing.T) {
	plain := NewExitError(ExitCommandError, "bad flag")
	assert.Equal(t, ExitCommandError, GetExitCode(plain))
	assert.Equal(t, "bad flag", plain.Error())

	wrapped := WrapExitError(ExitFailure, "resolving", errors.New("boom"))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
	assert.Equal(t, "resolving: boom", wrapped.Error())
	assert.Equal(t, "boom", errors.Unwrap(wrapped).Error())

	// wrapping preserves the code through an error chain
	chained := fmt.Errorf("outer: %w", plain)
	assert.Equal(t, ExitCommandError, GetExitCode(chained))

	// unknown errors default to operation failure
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("anything")))
}
