package calltrace

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTrace = `{
	"type": "CALL", "from": "0xa", "to": "0xb", "value": "0x0", "gas": "0x100", "gasUsed": "0x80",
	"calls": [
		{"type": "JUMP", "functionName": "dispatch", "from": "0xb", "to": "0xb", "calls": [
			{"type": "CALL", "functionName": "transfer", "from": "0xb", "to": "0xc"},
			{"type": "CALL", "functionName": "approve", "from": "0xb", "to": "0xd", "error": "execution reverted", "gasUsed": "0x10"}
		]},
		{"type": "STATICCALL", "functionName": "balanceOf", "from": "0xb", "to": "0xc", "revert": "insufficient", "calls": [
			{"type": "CALL", "from": "0xc", "to": "0xe", "error": ""}
		]}
	]
}`

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestCountCalls(t *testing.T) {
	assert.Equal(t, 0, CountCalls(nil))
	assert.Equal(t, 1, CountCalls(map[string]any{"type": "CALL"}))
	assert.Equal(t, 6, CountCalls(decode(t, sampleTrace)))
}

func TestTruncate(t *testing.T) {
	trace := decode(t, sampleTrace)

	assert.Equal(t, trace, Truncate(trace, 0))

	one := Truncate(trace, 1).(map[string]any)
	assert.Equal(t, []any{}, one["calls"])
	assert.Equal(t, 2, one["nestedCallsCount"])
	assert.Equal(t, true, one["nestedCallsOmitted"])

	two := Truncate(trace, 2).(map[string]any)
	children := two["calls"].([]any)
	require.Len(t, children, 2)
	dispatch := children[0].(map[string]any)
	assert.Equal(t, []any{}, dispatch["calls"])
	assert.Equal(t, 2, dispatch["nestedCallsCount"])
	assert.NotContains(t, two, "nestedCallsOmitted")

	// The input is left untouched.
	orig := trace.(map[string]any)["calls"].([]any)[0].(map[string]any)
	assert.Len(t, orig["calls"], 2)

	leaf := map[string]any{"type": "CALL"}
	assert.Equal(t, leaf, Truncate(leaf, 1))
}

func TestFailedCalls(t *testing.T) {
	failed := FailedCalls(decode(t, sampleTrace))
	require.Len(t, failed, 2)

	assert.Equal(t, "0.0.1", failed[0].Path)
	assert.Equal(t, "execution reverted", failed[0].Error)
	assert.Equal(t, "0xd", failed[0].To)
	assert.Equal(t, "0x10", failed[0].GasUsed)

	assert.Equal(t, "0.1", failed[1].Path)
	assert.Equal(t, "insufficient", failed[1].Error)

	assert.Empty(t, FailedCalls(nil))
}

func TestContracts(t *testing.T) {
	assert.Equal(t, []string{"0xa", "0xb", "0xc", "0xd", "0xe"}, Contracts(decode(t, sampleTrace)))
	assert.Empty(t, Contracts(nil))
}

func TestCallByPath(t *testing.T) {
	trace := decode(t, sampleTrace)

	tcs := []struct {
		path     string
		function string
		root     bool
		err      bool
	}{
		{path: "", root: true},
		{path: "root", root: true},
		{path: "0", root: true},
		{path: "0.0", function: "dispatch"},
		{path: "0.0.1", function: "approve"},
		{path: "0.1", function: "balanceOf"},
		{path: "root/dispatch_0", function: "dispatch"},
		{path: "root/dispatch_0/transfer_0", function: "transfer"},
		{path: "1.0", err: true},
		{path: "0.5", err: true},
		{path: "0.x", err: true},
		{path: "0.-1", err: true},
		{path: "root/invalid_path", err: true},
		{path: "invalid/transfer_0", err: true},
		{path: "root/transfer_0", err: true},
	}
	for _, tc := range tcs {
		t.Run(tc.path, func(t *testing.T) {
			got, err := CallByPath(trace, tc.path)
			if tc.err {
				assert.ErrorIs(t, err, ErrPathNotFound)
				return
			}
			require.NoError(t, err)
			if tc.root {
				assert.Equal(t, trace, got)
				return
			}
			assert.Equal(t, tc.function, got.(map[string]any)["functionName"])
		})
	}

	_, err := CallByPath(nil, "0")
	assert.ErrorIs(t, err, ErrPathNotFound)
}

func TestSummarize(t *testing.T) {
	s := Summarize(decode(t, sampleTrace))

	assert.Equal(t, "CALL", s.Transaction.Type)
	assert.Equal(t, "0x80", s.Transaction.GasUsed)
	assert.True(t, s.Transaction.Success)
	assert.Equal(t, Counts{
		TotalCalls:             6,
		TotalGasUsed:           "0x80",
		FailedCallsCount:       2,
		ContractsInvolvedCount: 5,
		HasInternalCalls:       true,
	}, s.Summary)
	assert.Len(t, s.FailedCalls, 2)
	assert.Len(t, s.ContractsInvolved, 5)

	raw, err := json.Marshal(Summarize(map[string]any{"type": "CALL", "from": "0xa"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"transaction": {"type": "CALL", "from": "0xa", "success": true},
		"summary": {"totalCalls": 1, "failedCallsCount": 0, "contractsInvolvedCount": 1, "hasInternalCalls": false},
		"contractsInvolved": ["0xa"]
	}`, string(raw))
}

func TestSummarize_LimitsContracts(t *testing.T) {
	root := map[string]any{"from": "0x0"}
	var children []any
	for i := 1; i <= 30; i++ {
		children = append(children, map[string]any{"to": string(rune('A'+i)) + "x"})
	}
	root["calls"] = children

	s := Summarize(root)
	assert.Equal(t, 31, s.Summary.ContractsInvolvedCount)
	assert.Len(t, s.ContractsInvolved, MaxContracts)
}

func TestCallDetails(t *testing.T) {
	trace := decode(t, sampleTrace)

	d, err := CallDetails(trace, "0.0", 1)
	require.NoError(t, err)
	assert.Equal(t, "0.0", d.Path)
	assert.Equal(t, DetailsMetadata{HasNestedCalls: true, NestedCallsCount: 2, MaxDepthApplied: 1, WasTruncated: true}, d.Metadata)
	assert.Equal(t, true, d.Call.(map[string]any)["nestedCallsOmitted"])

	d, err = CallDetails(trace, "0.0.0", 2)
	require.NoError(t, err)
	assert.False(t, d.Metadata.WasTruncated)

	_, err = CallDetails(trace, "0.9", 2)
	assert.ErrorIs(t, err, ErrPathNotFound)
}

func TestLimit(t *testing.T) {
	trace := decode(t, sampleTrace)

	l := Limit(trace, 3)
	assert.True(t, l.Metadata.WasTruncated)
	require.NotNil(t, l.Metadata.TotalCallsInOriginal)
	assert.Equal(t, 6, *l.Metadata.TotalCallsInOriginal)

	l = Limit(trace, 0)
	assert.False(t, l.Metadata.WasTruncated)
	assert.Nil(t, l.Metadata.TotalCallsInOriginal)
	assert.Equal(t, trace, l.Trace)
}
