package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/tradeidea/internal/llm"
)

// ErrNoTools is returned when a selection is asked of an empty tool list.
var ErrNoTools = errors.New("no query engine tools to select from")

// Tool is an engine together with the description a selector chooses by.
type Tool struct {
	Name        string
	Description string
	Engine      Engine
}

// NewTool wraps engine as a tool. An empty name becomes "query_engine_tool".
func NewTool(engine Engine, name, description string) Tool {
	if name == "" {
		name = "query_engine_tool"
	}
	return Tool{Name: name, Description: description, Engine: engine}
}

// Selection is the tool a selector picked, by position, and why.
type Selection struct {
	Index  int
	Reason string
}

// Selector picks the tool best suited to a query.
type Selector interface {
	Select(ctx context.Context, tools []Tool, q string) (Selection, error)
}

// LLMSingleSelector asks the LLM to choose one tool by number.
type LLMSingleSelector struct {
	llm llm.LLM
}

// NewLLMSingleSelector returns a selector backed by model.
func NewLLMSingleSelector(model llm.LLM) *LLMSingleSelector {
	return &LLMSingleSelector{llm: model}
}

// Select returns the chosen tool. A single candidate is chosen without asking
// the LLM.
func (s *LLMSingleSelector) Select(ctx context.Context, tools []Tool, q string) (Selection, error) {
	switch len(tools) {
	case 0:
		return Selection{}, ErrNoTools
	case 1:
		return Selection{Index: 0, Reason: "only one tool available"}, nil
	}
	out, err := s.llm.Complete(ctx, selectPrompt(tools, q))
	if err != nil {
		return Selection{}, fmt.Errorf("select tool: %w", err)
	}
	return parseSelection(out, len(tools))
}

func selectPrompt(tools []Tool, q string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Some choices are given below. It is provided in a numbered list (1 to %d), ", len(tools))
	b.WriteString("where each item in the list corresponds to a summary.\n---------------------\n")
	for i, t := range tools {
		fmt.Fprintf(&b, "(%d) %s\n\n", i+1, t.Description)
	}
	b.WriteString("---------------------\n")
	fmt.Fprintf(&b, "Using only the choices above and not prior knowledge, return the choice that is most relevant to the question: '%s'\n\n", q)
	b.WriteString(`The output should be formatted as a JSON instance: [{"choice": <number>, "reason": "<text>"}]`)
	b.WriteString("\n")
	return b.String()
}

type choice struct {
	Choice int    `json:"choice"`
	Reason string `json:"reason"`
}

// parseSelection reads the first JSON array or object in out, tolerating
// surrounding prose and code fences.
func parseSelection(out string, n int) (Selection, error) {
	start := strings.IndexAny(out, "[{")
	if start < 0 {
		return Selection{}, fmt.Errorf("selector output has no JSON: %q", out)
	}
	dec := json.NewDecoder(strings.NewReader(out[start:]))
	var c choice
	if out[start] == '[' {
		var cs []choice
		if err := dec.Decode(&cs); err != nil {
			return Selection{}, fmt.Errorf("parse selector output: %w", err)
		}
		if len(cs) == 0 {
			return Selection{}, fmt.Errorf("selector returned no choices")
		}
		c = cs[0]
	} else if err := dec.Decode(&c); err != nil {
		return Selection{}, fmt.Errorf("parse selector output: %w", err)
	}
	if c.Choice < 1 || c.Choice > n {
		return Selection{}, fmt.Errorf("selector chose %d, want 1..%d", c.Choice, n)
	}
	return Selection{Index: c.Choice - 1, Reason: c.Reason}, nil
}

// RouterQueryEngine delegates each query to the tool its selector picks.
type RouterQueryEngine struct {
	selector Selector
	tools    []Tool
	logger   *zap.Logger
}

// NewRouterQueryEngine returns a router over tools.
func NewRouterQueryEngine(selector Selector, tools []Tool, logger *zap.Logger) *RouterQueryEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RouterQueryEngine{selector: selector, tools: tools, logger: logger}
}

// Query selects a tool and returns its answer, recording the selection in
// the response metadata.
func (r *RouterQueryEngine) Query(ctx context.Context, q string) (*Response, error) {
	sel, err := r.selector.Select(ctx, r.tools, q)
	if err != nil {
		return nil, err
	}
	tool := r.tools[sel.Index]
	r.logger.Info("selecting query engine",
		zap.Int("index", sel.Index),
		zap.String("tool", tool.Name),
		zap.String("reason", sel.Reason))

	resp, err := tool.Engine.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	if resp.Metadata == nil {
		resp.Metadata = map[string]string{}
	}
	resp.Metadata["selected_tool"] = tool.Name
	resp.Metadata["selector_reason"] = sel.Reason
	return resp, nil
}
