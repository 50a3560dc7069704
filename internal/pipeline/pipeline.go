// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package pipeline runs messages through pre- and post-processing stages
// around the LLM call: input filtering and enrichment on the way in,
// structured data extraction and safety checks on the way out.
package pipeline

import (
	"github.com/ManuGH/chatrelay/internal/provider"
	"github.com/ManuGH/chatrelay/internal/store"
)

// Context carries the per-turn data the processors read.
type Context struct {
	UserID        string
	SessionID     string
	SessionConfig provider.SessionConfig
	PresetKey     string
	History       []store.Message
	Preferences   Preferences
}

// Preferences are per-user processing preferences.
type Preferences struct {
	Tone             string `json:"tone"`
	DetailLevel      string `json:"detail_level"`
	CodeHighlighting bool   `json:"code_highlighting"`
	MarkdownRender   bool   `json:"markdown_rendering"`
}

// DefaultPreferences returns the preferences applied when a user has none.
func DefaultPreferences() Preferences {
	return Preferences{
		Tone:             "balanced",
		DetailLevel:      "medium",
		CodeHighlighting: true,
		MarkdownRender:   true,
	}
}

// Result is the output of a processing stage.
type Result struct {
	Content        string
	StructuredData map[string]any
	Enhancements   map[string]any
	Notes          []string
}

func newResult(content string) *Result {
	return &Result{
		Content:        content,
		StructuredData: map[string]any{},
		Enhancements:   map[string]any{},
	}
}

// merge folds a processor's output into the accumulated result.
func (r *Result) merge(other *Result) {
	r.Content = other.Content
	for k, v := range other.StructuredData {
		r.StructuredData[k] = v
	}
	for k, v := range other.Enhancements {
		r.Enhancements[k] = v
	}
	r.Notes = append(r.Notes, other.Notes...)
}

// processor transforms content within a stage.
type processor interface {
	name() string
	process(content string, pc Context) *Result
}

// Pipeline coordinates the pre and post stages.
type Pipeline struct {
	pre  []processor
	post []processor
}

// New builds the standard pipeline.
func New() *Pipeline {
	return &Pipeline{
		pre: []processor{
			contentFilter{},
			contextEnricher{},
			personalizer{},
			formatter{},
		},
		post: []processor{
			structuredExtractor{},
			codeInspector{},
			markdownInspector{},
			linkDetector{},
			safetyChecker{},
		},
	}
}

// PreProcess runs the user message through the input stage.
func (p *Pipeline) PreProcess(message string, pc Context) *Result {
	return runStage(p.pre, message, pc)
}

// PostProcess runs the model response through the output stage.
func (p *Pipeline) PostProcess(response string, pc Context) *Result {
	return runStage(p.post, response, pc)
}

func runStage(procs []processor, content string, pc Context) *Result {
	acc := newResult(content)
	for _, proc := range procs {
		out := proc.process(acc.Content, pc)
		acc.merge(out)
		acc.Notes = append(acc.Notes, "applied "+proc.name())
	}
	return acc
}
