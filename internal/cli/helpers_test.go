package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/ticker/internal/task"
)

const (
	testEmail    = "alice@example.com"
	testPassword = "correct horse battery"
)

// execCmd runs the CLI with the given args and returns stdout.
func execCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// signedInHome points TICKER_HOME at a fresh directory and signs in a
// test account there.
func signedInHome(t *testing.T) {
	t.Helper()
	t.Setenv(envHome, t.TempDir())

	_, err := execCmd(t, "signup", testEmail, "--password", testPassword)
	require.NoError(t, err)
	_, err = execCmd(t, "login", testEmail, "--password", testPassword)
	require.NoError(t, err)
}

// addTask creates a task through the CLI and returns the stored row.
func addTask(t *testing.T, title string) task.Task {
	t.Helper()
	out, err := execCmd(t, "add", "--format", "json", title)
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   task.Task `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	require.NotEmpty(t, resp.Data.ID)
	return resp.Data
}

// listTasks fetches the current list through the CLI.
func listTasks(t *testing.T, extra ...string) ([]task.Task, task.Counts) {
	t.Helper()
	args := append([]string{"list", "--format", "json"}, extra...)
	out, err := execCmd(t, args...)
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Tasks  []task.Task `json:"tasks"`
			Counts task.Counts `json:"counts"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	return resp.Data.Tasks, resp.Data.Counts
}
