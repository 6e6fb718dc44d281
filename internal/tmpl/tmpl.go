// Package tmpl implements the Template renderer external collaborator
// (§6): render(template_kind, variables) → string, for the four kinds the
// core injects into (initial_task, resume_task, status_check, review).
//
// This is the one component built on the standard library's text/template
// rather than a third-party templating engine. No ecosystem templating
// library appears anywhere in the retrieved pack — the teacher renders its
// own prompts with plain string formatting, and no other example repo
// imports a templating package either — so there is nothing to adopt here;
// text/template is the carried idiom, not a shortfall. See DESIGN.md.
package tmpl

import (
	"bytes"
	"fmt"
	"sync"
	"text/template"
)

// Kind is one of the four template kinds the core renders.
type Kind string

const (
	KindInitialTask  Kind = "initial_task"
	KindResumeTask   Kind = "resume_task"
	KindStatusCheck  Kind = "status_check"
	KindReview       Kind = "review"
)

// Vars are the variable names the core injects (§6).
type Vars struct {
	ProjectName   string
	DocPath       string
	FullDocPath   string
	TaskID        string
	CLIType       string
	ReviewEnabled bool
	CallbackURL   string
}

const initialTaskSrc = `You are working on project "{{.ProjectName}}" ({{.FullDocPath}}).
Task id: {{.TaskID}}
Read {{.DocPath}} and complete every unchecked checkbox in order.
{{if .ReviewEnabled}}When finished, a second CLI will review your work.{{end}}
When you reach a checkpoint, POST to {{.CallbackURL}}/{{.TaskID}}/notify_status with your status.
`

const resumeTaskSrc = `Resuming task {{.TaskID}} on project "{{.ProjectName}}".
Read {{.DocPath}} again. Skip every checked box; continue from the first unchecked one.
Report status to {{.CallbackURL}}/{{.TaskID}}/notify_status as before.
`

const statusCheckSrc = `Checkpoint for task {{.TaskID}}: report your current status (in_progress, completed, or failed)
and an estimate of remaining context to {{.CallbackURL}}/{{.TaskID}}/notify_status.
`

const reviewSrc = `You are reviewing task {{.TaskID}} on project "{{.ProjectName}}", completed by another CLI.
Read {{.DocPath}} and verify every checkbox reflects the actual state of the work.
Report back to {{.CallbackURL}}/{{.TaskID}}/notify_status when the review is done.
`

// Renderer holds the parsed, read-copy-update template set (§9 "Templates
// and settings are read-copy-update").
type Renderer struct {
	mu   sync.RWMutex
	tmpl map[Kind]*template.Template
}

// New parses the built-in template set.
func New() (*Renderer, error) {
	r := &Renderer{tmpl: make(map[Kind]*template.Template)}
	sources := map[Kind]string{
		KindInitialTask: initialTaskSrc,
		KindResumeTask:  resumeTaskSrc,
		KindStatusCheck: statusCheckSrc,
		KindReview:      reviewSrc,
	}
	for kind, src := range sources {
		t, err := template.New(string(kind)).Parse(src)
		if err != nil {
			return nil, fmt.Errorf("tmpl: parse %s: %w", kind, err)
		}
		r.tmpl[kind] = t
	}
	return r, nil
}

// Render renders the named template kind with vars.
func (r *Renderer) Render(kind Kind, vars Vars) (string, error) {
	r.mu.RLock()
	t, ok := r.tmpl[kind]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("tmpl: unknown kind %q", kind)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("tmpl: render %s: %w", kind, err)
	}
	return buf.String(), nil
}

// Replace atomically swaps in a new template body for kind (operator
// customization), publishing a freshly parsed template without disturbing
// in-flight Render calls against the old one.
func (r *Renderer) Replace(kind Kind, src string) error {
	t, err := template.New(string(kind)).Parse(src)
	if err != nil {
		return fmt.Errorf("tmpl: parse replacement for %s: %w", kind, err)
	}

	r.mu.Lock()
	r.tmpl[kind] = t
	r.mu.Unlock()
	return nil
}
