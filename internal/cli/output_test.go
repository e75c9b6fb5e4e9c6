package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(map[string]string{"token": "04A3F2"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error(CodeUserExists, "user already exists", map[string]string{"token": "T1"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeUserExists, resp.Error.Code)
	assert.Equal(t, "user already exists", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	require.NoError(t, formatter.Success("user T1 added"))
	assert.Equal(t, "user T1 added\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	tests := []struct {
		name        string
		verbose     bool
		wantDetails bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			require.NoError(t, formatter.Error(CodeUserNotFound, "user not found", "T9"))
			assert.Contains(t, buf.String(), "Error [E002]: user not found")
			if tt.wantDetails {
				assert.Contains(t, buf.String(), "Details: T9")
			} else {
				assert.NotContains(t, buf.String(), "Details:")
			}
		})
	}
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:    "json",
		Writer:    out,
		ErrWriter: errOut,
		Verbose:   true,
	}

	formatter.VerboseLog("opening %s", "user.db")
	assert.Empty(t, out.String())
	assert.Equal(t, "opening user.db\n", errOut.String())
	assert.Equal(t, errOut, formatter.GetErrWriter())
}

func TestOutputFormatter_VerboseLogDisabled(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	formatter.VerboseLog("opening %s", "user.db")
	assert.Empty(t, buf.String())
	assert.Equal(t, buf, formatter.GetErrWriter())
}

func TestExitError(t *testing.T) {
	base := errors.New("disk full")

	wrapped := WrapExitError(ExitCommandError, "failed to open database", base)
	assert.Equal(t, "failed to open database: disk full", wrapped.Error())
	assert.ErrorIs(t, wrapped, base)

	plain := NewExitError(ExitRestart, "restart requested")
	assert.Equal(t, "restart requested", plain.Error())
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"exit error", NewExitError(ExitCommandError, "bad"), ExitCommandError},
		{"restart", NewExitError(ExitRestart, "restart requested"), ExitRestart},
		{"wrapped exit error", fmt.Errorf("outer: %w", NewExitError(ExitRestart, "r")), ExitRestart},
		{"plain error", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}
