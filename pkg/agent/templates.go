// Package agent implements C4 AgentRunners (spec.md §4.4): five
// stateless functions over a Session's inputs and the LLMGateway —
// questions, draft, outline, chapter, critique. Each loads a
// config-scoped prompt template and returns structured output plus
// token usage, grounded on original_source's per-runner modules
// (draft_generator.py, outline_generator.py, writer_generator.py,
// literary_critic.py) and the teacher's pkg/agent/prompt.PromptBuilder
// composition style.
package agent

import (
	"embed"
)

//go:embed prompts/*.md
var defaultPromptsFS embed.FS

// Templates holds the system-prompt text for every runner. Defaults
// are embedded at build time (mirroring original_source's
// load_*_agent_context() file-based loading); a deployment's config
// may override any of them (spec.md §6 configuration surface).
type Templates struct {
	Questions string
	Draft     string
	Outline   string
	Chapter   string
	Critique  string
}

// LoadDefaultTemplates reads the embedded prompt files.
func LoadDefaultTemplates() (Templates, error) {
	read := func(name string) (string, error) {
		data, err := defaultPromptsFS.ReadFile("prompts/" + name)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	var t Templates
	var err error
	if t.Questions, err = read("questions_system.md"); err != nil {
		return Templates{}, err
	}
	if t.Draft, err = read("draft_system.md"); err != nil {
		return Templates{}, err
	}
	if t.Outline, err = read("outline_system.md"); err != nil {
		return Templates{}, err
	}
	if t.Chapter, err = read("chapter_system.md"); err != nil {
		return Templates{}, err
	}
	if t.Critique, err = read("critique_system.md"); err != nil {
		return Templates{}, err
	}
	return t, nil
}

// WithOverrides returns a copy of t with any non-empty field in o
// substituted in, for config-driven customization of individual
// prompts without needing to override all five.
func (t Templates) WithOverrides(o Templates) Templates {
	if o.Questions != "" {
		t.Questions = o.Questions
	}
	if o.Draft != "" {
		t.Draft = o.Draft
	}
	if o.Outline != "" {
		t.Outline = o.Outline
	}
	if o.Chapter != "" {
		t.Chapter = o.Chapter
	}
	if o.Critique != "" {
		t.Critique = o.Critique
	}
	return t
}
