package cmd

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm-playground/llm-playground/internal/exitcode"
	"github.com/llm-playground/llm-playground/internal/params"
	"github.com/llm-playground/llm-playground/internal/testutil"
)

func TestListParams(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, listParams(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, len(params.Table)+1)
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, buf.String(), "max_new_tokens")
	assert.Contains(t, buf.String(), "Maximum Output Tokens")
}

func TestSetParamClampsAndPosts(t *testing.T) {
	backend := testutil.NewBackend(t, nil)
	client := params.NewClient(backend.Server.URL)

	p, value, err := setParam(context.Background(), client, "Temperature", "7")
	require.NoError(t, err)
	assert.Equal(t, "temperature", p.Name)
	assert.Equal(t, 1.0, value)

	calls := backend.ParamCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/set-sampling-param", calls[0].Path)
	assert.Equal(t, map[string]any{"temperature": 1.0}, calls[0].Body)
}

func TestSetParamUnknownNameSuggests(t *testing.T) {
	client := params.NewClient("http://127.0.0.1:1")

	_, _, err := setParam(context.Background(), client, "temprature", "0.5")
	require.Error(t, err)
	assert.Equal(t, exitcode.Usage, exitcode.Code(err))
	assert.Contains(t, err.Error(), "did you mean temperature")
}

func TestSetParamInvalidValue(t *testing.T) {
	client := params.NewClient("http://127.0.0.1:1")

	_, _, err := setParam(context.Background(), client, "top_k", "lots")
	require.Error(t, err)
	assert.Equal(t, exitcode.Usage, exitcode.Code(err))
}

func TestSetParamBackendRejects(t *testing.T) {
	backend := testutil.NewBackend(t, nil)
	backend.SetParamStatus(http.StatusInternalServerError)
	client := params.NewClient(backend.Server.URL)

	_, _, err := setParam(context.Background(), client, "top_p", "0.5")
	require.Error(t, err)
	assert.Equal(t, exitcode.BackendUnavailable, exitcode.Code(err))
	assert.Contains(t, err.Error(), "Failed to set Top P parameter")
}

func TestParamNameCompletion(t *testing.T) {
	names, _ := ParamNameCompletion(paramSetCmd, nil, "top")
	require.Len(t, names, 2)
	assert.True(t, strings.HasPrefix(names[0], "top_p\t"))
	assert.True(t, strings.HasPrefix(names[1], "top_k\t"))

	names, _ = ParamNameCompletion(paramSetCmd, []string{"top_k"}, "")
	assert.Empty(t, names)
}

func TestVersionOutput(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "llm-playground version dev (commit: unknown, built: unknown)\n", buf.String())
}
