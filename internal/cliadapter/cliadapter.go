// Package cliadapter implements the CLI Adapter capability (§4.1): one
// variant per supported interactive CLI assistant, hidden behind a single
// interface so the Session Manager never branches on concrete kind. The
// variant shape is grounded on the teacher's per-CLI flag handling in
// internal/agents/spawner.go (buildLaunchArgs-style flag assembly) and its
// idle/output scanning in the same file.
package cliadapter

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/sessionforge/sessionforge/internal/types"
)

// Adapter is the capability set every CLI variant implements.
type Adapter interface {
	Kind() types.CLIKind

	// LaunchCommand builds the argv used to spawn the CLI against directory,
	// instructed to read its initial instructions from promptFile. dangerous
	// opts into the CLI's own auto-approve flag.
	LaunchCommand(directory, promptFile string, dangerous bool) []string

	// ParseContextRemaining inspects the latest output chunk and returns the
	// percentage of context remaining when a recognizable marker is present.
	// ok is false when no marker was found; callers MUST treat that as "no
	// new information", never as zero.
	ParseContextRemaining(outputChunk string) (percent int, ok bool)

	// IdleSignature reports whether the tail of output matches this CLI's
	// known idle prompt.
	IdleSignature(outputTail string) bool

	// ResumePrompt is the text injected when a session restarts mid-task.
	ResumePrompt(task *types.Task) string
}

// Registry resolves a CLIKind to its Adapter.
type Registry struct {
	adapters map[types.CLIKind]Adapter
}

// NewRegistry builds the closed set of supported adapters.
func NewRegistry() *Registry {
	r := &Registry{adapters: make(map[types.CLIKind]Adapter)}
	r.register(NewClaudeCode())
	r.register(NewCodex())
	r.register(NewGemini())
	return r
}

func (r *Registry) register(a Adapter) { r.adapters[a.Kind()] = a }

// Resolve returns the adapter for kind, falling back to def when kind is
// the zero value (per-task "use the system default").
func (r *Registry) Resolve(kind, def types.CLIKind) (Adapter, error) {
	effective := kind
	if effective == "" {
		effective = def
	}
	a, ok := r.adapters[effective]
	if !ok {
		return nil, fmt.Errorf("cliadapter: unknown CLI kind %q", effective)
	}
	return a, nil
}

// --- Claude Code ---------------------------------------------------------

type claudeCode struct {
	contextRe *regexp.Regexp
	idleRe    *regexp.Regexp
}

// NewClaudeCode returns the Claude Code CLI adapter.
func NewClaudeCode() Adapter {
	return &claudeCode{
		contextRe: regexp.MustCompile(`(\d{1,3})%\s+context\s+left`),
		idleRe:    regexp.MustCompile(`(?m)^>\s*$`),
	}
}

func (c *claudeCode) Kind() types.CLIKind { return types.CLIClaudeCode }

func (c *claudeCode) LaunchCommand(directory, promptFile string, dangerous bool) []string {
	args := []string{"claude", "--cwd", directory, "--prompt-file", promptFile}
	if dangerous {
		args = append(args, "--dangerously-skip-permissions")
	}
	return args
}

func (c *claudeCode) ParseContextRemaining(outputChunk string) (int, bool) {
	m := c.contextRe.FindStringSubmatch(outputChunk)
	if m == nil {
		return 0, false
	}
	pct, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return pct, true
}

func (c *claudeCode) IdleSignature(outputTail string) bool {
	return c.idleRe.MatchString(outputTail)
}

func (c *claudeCode) ResumePrompt(task *types.Task) string {
	return fmt.Sprintf(
		"Resume task %s. Read %s and continue from the first unchecked checkbox. Do not repeat completed work.",
		task.ID, task.DocPath,
	)
}

// --- Codex -----------------------------------------------------------------

type codex struct {
	contextRe *regexp.Regexp
	idleRe    *regexp.Regexp
}

// NewCodex returns the Codex CLI adapter.
func NewCodex() Adapter {
	return &codex{
		contextRe: regexp.MustCompile(`tokens remaining:\s*(\d{1,3})%`),
		idleRe:    regexp.MustCompile(`(?m)^codex>\s*$`),
	}
}

func (c *codex) Kind() types.CLIKind { return types.CLICodex }

func (c *codex) LaunchCommand(directory, promptFile string, dangerous bool) []string {
	args := []string{"codex", "--cd", directory, "--instructions-file", promptFile}
	if dangerous {
		args = append(args, "--full-auto")
	}
	return args
}

func (c *codex) ParseContextRemaining(outputChunk string) (int, bool) {
	m := c.contextRe.FindStringSubmatch(outputChunk)
	if m == nil {
		return 0, false
	}
	pct, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return pct, true
}

func (c *codex) IdleSignature(outputTail string) bool {
	return c.idleRe.MatchString(outputTail)
}

func (c *codex) ResumePrompt(task *types.Task) string {
	return fmt.Sprintf(
		"Continue task %s from %s. Pick up at the first unchecked checkbox; don't redo finished items.",
		task.ID, task.DocPath,
	)
}

// --- Gemini ------------------------------------------------------------

type gemini struct {
	contextRe *regexp.Regexp
	idleRe    *regexp.Regexp
}

// NewGemini returns the Gemini CLI adapter.
func NewGemini() Adapter {
	return &gemini{
		contextRe: regexp.MustCompile(`\[ctx:\s*(\d{1,3})%\]`),
		idleRe:    regexp.MustCompile(`(?m)^gemini\s*›\s*$`),
	}
}

func (g *gemini) Kind() types.CLIKind { return types.CLIGemini }

func (g *gemini) LaunchCommand(directory, promptFile string, dangerous bool) []string {
	args := []string{"gemini", "--directory", directory, "--prompt-file", promptFile}
	if dangerous {
		args = append(args, "--yolo")
	}
	return args
}

func (g *gemini) ParseContextRemaining(outputChunk string) (int, bool) {
	m := g.contextRe.FindStringSubmatch(outputChunk)
	if m == nil {
		return 0, false
	}
	pct, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return pct, true
}

func (g *gemini) IdleSignature(outputTail string) bool {
	return g.idleRe.MatchString(outputTail)
}

func (g *gemini) ResumePrompt(task *types.Task) string {
	return fmt.Sprintf(
		"Resume task %s. Open %s, skip checked boxes, continue from the first unchecked one.",
		task.ID, task.DocPath,
	)
}
