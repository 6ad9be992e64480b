// Package calltrace shapes decoded transaction call traces so that large
// traces fit into a model's context. A trace is the JSON object returned by
// the Sentio call trace endpoint: a node with from/to/type/gas fields and a
// nested "calls" array.
package calltrace

import (
	"errors"
	"strconv"
	"strings"
)

// MaxContracts bounds the contract list in a Summary.
const MaxContracts = 20

var ErrPathNotFound = errors.New("call path not found")

func calls(node any) []any {
	m, ok := node.(map[string]any)
	if !ok {
		return nil
	}
	c, _ := m["calls"].([]any)
	return c
}

func field(node any, key string) any {
	m, ok := node.(map[string]any)
	if !ok {
		return nil
	}
	return m[key]
}

// truthy mirrors JSON-level truthiness: null, false, 0 and "" are false.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	default:
		return true
	}
}

// Truncate returns a copy of trace cut at maxDepth levels. Nodes at the last
// kept level get an empty "calls" list plus nestedCallsCount and
// nestedCallsOmitted. maxDepth <= 0 returns the trace unchanged.
func Truncate(trace any, maxDepth int) any {
	if maxDepth <= 0 {
		return trace
	}
	return truncate(trace, maxDepth, 0)
}

func truncate(node any, maxDepth, depth int) any {
	m, ok := node.(map[string]any)
	if !ok || depth >= maxDepth {
		return node
	}

	out := make(map[string]any, len(m)+2)
	for k, v := range m {
		out[k] = v
	}

	children := calls(m)
	if len(children) == 0 {
		return out
	}

	if depth+1 >= maxDepth {
		out["calls"] = []any{}
		out["nestedCallsCount"] = len(children)
		out["nestedCallsOmitted"] = true
		return out
	}

	next := make([]any, len(children))
	for i, c := range children {
		next[i] = truncate(c, maxDepth, depth+1)
	}
	out["calls"] = next
	return out
}

// CountCalls counts the node and all of its descendants.
func CountCalls(trace any) int {
	if trace == nil {
		return 0
	}
	n := 1
	for _, c := range calls(trace) {
		n += CountCalls(c)
	}
	return n
}

type FailedCall struct {
	Path    string `json:"path"`
	Type    any    `json:"type,omitempty"`
	From    any    `json:"from,omitempty"`
	To      any    `json:"to,omitempty"`
	Error   any    `json:"error"`
	GasUsed any    `json:"gasUsed,omitempty"`
}

// FailedCalls lists every node with an error or revert, depth first. The root
// has path "0" and the i-th child of path p has path "p.i".
func FailedCalls(trace any) []FailedCall {
	var out []FailedCall
	failedCalls(trace, "0", &out)
	return out
}

func failedCalls(node any, path string, out *[]FailedCall) {
	if node == nil {
		return
	}

	errVal := field(node, "error")
	if !truthy(errVal) {
		errVal = field(node, "revert")
	}
	if truthy(errVal) {
		*out = append(*out, FailedCall{
			Path:    path,
			Type:    field(node, "type"),
			From:    field(node, "from"),
			To:      field(node, "to"),
			Error:   errVal,
			GasUsed: field(node, "gasUsed"),
		})
	}

	for i, c := range calls(node) {
		failedCalls(c, path+"."+strconv.Itoa(i), out)
	}
}

// Contracts returns the distinct from/to addresses in first-seen order.
func Contracts(trace any) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(v any) {
		s, ok := v.(string)
		if !ok || s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	var walk func(node any)
	walk = func(node any) {
		if node == nil {
			return
		}
		add(field(node, "from"))
		add(field(node, "to"))
		for _, c := range calls(node) {
			walk(c)
		}
	}
	walk(trace)
	return out
}

// CallByPath resolves a path such as "0.2.1" (root, third call, second
// subcall). "root" and the empty path name the root. The slash form
// "root/dispatch_0/transfer_2" is also accepted, where each segment is the
// function name and the child index.
func CallByPath(trace any, path string) (any, error) {
	if trace == nil {
		return nil, ErrPathNotFound
	}

	path = strings.TrimSpace(path)
	if path == "" || path == "root" {
		return trace, nil
	}
	if strings.Contains(path, "/") {
		return callBySlashPath(trace, path)
	}

	parts := strings.Split(path, ".")
	if parts[0] != "0" {
		return nil, ErrPathNotFound
	}

	current := trace
	for _, p := range parts[1:] {
		idx, err := strconv.Atoi(p)
		if err != nil || idx < 0 {
			return nil, ErrPathNotFound
		}
		children := calls(current)
		if idx >= len(children) {
			return nil, ErrPathNotFound
		}
		current = children[idx]
	}
	return current, nil
}

func callBySlashPath(trace any, path string) (any, error) {
	parts := strings.Split(path, "/")
	if parts[0] != "root" {
		return nil, ErrPathNotFound
	}

	current := trace
	for _, p := range parts[1:] {
		i := strings.LastIndex(p, "_")
		if i < 0 {
			return nil, ErrPathNotFound
		}
		idx, err := strconv.Atoi(p[i+1:])
		if err != nil || idx < 0 {
			return nil, ErrPathNotFound
		}
		children := calls(current)
		if idx >= len(children) {
			return nil, ErrPathNotFound
		}
		name := p[:i]
		if fn, ok := field(children[idx], "functionName").(string); ok && fn != "" && name != "" && fn != name {
			return nil, ErrPathNotFound
		}
		current = children[idx]
	}
	return current, nil
}

type Transaction struct {
	Type    any  `json:"type,omitempty"`
	From    any  `json:"from,omitempty"`
	To      any  `json:"to,omitempty"`
	Value   any  `json:"value,omitempty"`
	Gas     any  `json:"gas,omitempty"`
	GasUsed any  `json:"gasUsed,omitempty"`
	Success bool `json:"success"`
}

type Counts struct {
	TotalCalls             int  `json:"totalCalls"`
	TotalGasUsed           any  `json:"totalGasUsed,omitempty"`
	FailedCallsCount       int  `json:"failedCallsCount"`
	ContractsInvolvedCount int  `json:"contractsInvolvedCount"`
	HasInternalCalls       bool `json:"hasInternalCalls"`
}

// Summary is a compact overview of a trace.
type Summary struct {
	Transaction       Transaction  `json:"transaction"`
	Summary           Counts       `json:"summary"`
	FailedCalls       []FailedCall `json:"failedCalls,omitempty"`
	ContractsInvolved []string     `json:"contractsInvolved"`
}

func Summarize(trace any) *Summary {
	total := CountCalls(trace)
	failed := FailedCalls(trace)
	contracts := Contracts(trace)

	involved := contracts
	if len(involved) > MaxContracts {
		involved = involved[:MaxContracts]
	}
	if involved == nil {
		involved = []string{}
	}

	return &Summary{
		Transaction: Transaction{
			Type:    field(trace, "type"),
			From:    field(trace, "from"),
			To:      field(trace, "to"),
			Value:   field(trace, "value"),
			Gas:     field(trace, "gas"),
			GasUsed: field(trace, "gasUsed"),
			Success: !truthy(field(trace, "error")) && !truthy(field(trace, "revert")),
		},
		Summary: Counts{
			TotalCalls:             total,
			TotalGasUsed:           field(trace, "gasUsed"),
			FailedCallsCount:       len(failed),
			ContractsInvolvedCount: len(contracts),
			HasInternalCalls:       total > 1,
		},
		FailedCalls:       failed,
		ContractsInvolved: involved,
	}
}

// Details is the view of a single call returned for a path lookup.
type Details struct {
	Path     string          `json:"path"`
	Call     any             `json:"call"`
	Metadata DetailsMetadata `json:"metadata"`
}

type DetailsMetadata struct {
	HasNestedCalls   bool `json:"hasNestedCalls"`
	NestedCallsCount int  `json:"nestedCallsCount"`
	MaxDepthApplied  int  `json:"maxDepthApplied"`
	WasTruncated     bool `json:"wasTruncated"`
}

// CallDetails looks up path and truncates the call to maxDepth levels.
func CallDetails(trace any, path string, maxDepth int) (*Details, error) {
	call, err := CallByPath(trace, path)
	if err != nil {
		return nil, err
	}
	nested := len(calls(call))
	return &Details{
		Path: path,
		Call: Truncate(call, maxDepth),
		Metadata: DetailsMetadata{
			HasNestedCalls:   nested > 0,
			NestedCallsCount: nested,
			MaxDepthApplied:  maxDepth,
			WasTruncated:     maxDepth > 0 && nested > 0,
		},
	}, nil
}

// Limited is a full trace with depth limiting applied.
type Limited struct {
	Metadata LimitedMetadata `json:"metadata"`
	Trace    any             `json:"trace"`
}

type LimitedMetadata struct {
	MaxDepthApplied      int  `json:"maxDepthApplied"`
	WasTruncated         bool `json:"wasTruncated"`
	TotalCallsInOriginal *int `json:"totalCallsInOriginal,omitempty"`
}

func Limit(trace any, maxDepth int) *Limited {
	out := &Limited{
		Metadata: LimitedMetadata{MaxDepthApplied: maxDepth, WasTruncated: maxDepth > 0},
		Trace:    Truncate(trace, maxDepth),
	}
	if maxDepth > 0 {
		n := CountCalls(trace)
		out.Metadata.TotalCallsInOriginal = &n
	}
	return out
}
