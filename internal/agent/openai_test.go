package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIDeciderNilWithoutKey(t *testing.T) {
	assert.Nil(t, NewOpenAIDecider("", "gpt-4o-mini"))
	assert.NotNil(t, NewOpenAIDecider("sk-test", ""))
}

func TestExtractArg(t *testing.T) {
	got, err := extractArg(`{"endpoint":"https://x.test"}`, "endpoint")
	require.NoError(t, err)
	assert.Equal(t, "https://x.test", got)

	// Renamed field falls back to the first string value.
	got, err = extractArg(`{"url":"https://y.test"}`, "endpoint")
	require.NoError(t, err)
	assert.Equal(t, "https://y.test", got)

	_, err = extractArg(`{"count":3}`, "endpoint")
	assert.Error(t, err)

	_, err = extractArg(`not json`, "endpoint")
	assert.Error(t, err)
}

func TestToOpenAIToolsCarriesSchema(t *testing.T) {
	specs := []ToolSpec{{
		Name:        "run_nmap_scan",
		Description: "Run Nmap on a given URL",
		ArgName:     "target",
		ArgHint:     "host to scan",
	}}

	tools := toOpenAITools(specs)
	require.Len(t, tools, 1)
	assert.Equal(t, "run_nmap_scan", tools[0].Function.Name)

	params, ok := tools[0].Function.Parameters.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []string{"target"}, params["required"])
}
