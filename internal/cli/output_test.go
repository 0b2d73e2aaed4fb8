package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_SuccessText(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Success("Signed out"))

	assert.Equal(t, "Signed out\n", buf.String())
}

func TestOutputFormatter_SuccessJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Success(map[string]string{"notice": "hello"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_ErrorText(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Error("INVALID_CREDENTIALS", "invalid email or password", nil))

	assert.Contains(t, buf.String(), "Error [INVALID_CREDENTIALS]: invalid email or password")
}

func TestOutputFormatter_ErrorJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Error("WEAK_PASSWORD", "too short", nil))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "WEAK_PASSWORD", resp.Error.Code)
	assert.Equal(t, "too short", resp.Error.Message)
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}
	f.VerboseLog("loaded %d tasks", 3)
	assert.Empty(t, out.String(), "diagnostics stay off the json stream")
	assert.Equal(t, "loaded 3 tasks\n", errOut.String())

	quiet := &OutputFormatter{Format: "text", Writer: out}
	quiet.VerboseLog("hidden")
	assert.Empty(t, out.String())
}

func TestExitError(t *testing.T) {
	base := errors.New("disk full")
	err := WrapExitError(ExitFailure, "add failed", base)

	assert.Equal(t, "add failed: disk full", err.Error())
	assert.ErrorIs(t, err, base)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain error")))
}
