// Package checklist implements the Markdown checkbox inspector external
// collaborator (§6): progress(doc_path) → {total, checked}, used by the
// Watchdog to disambiguate idle-lockup from completion (§4.5). It parses
// the task document's GFM task-list checkboxes with goldmark rather than
// hand-rolled line scanning; goldmark itself has no home in the teacher
// (a Windows CLI-monitor repo with no Markdown-authoring surface) but is a
// direct dependency of the joeycumines-go-utilpkg repo in the retrieved
// pack, so it is adopted from there for this component.
package checklist

import (
	"os"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New(goldmark.WithExtensions(extension.TaskList))

// Progress is the {total, checked} pair the watchdog consults.
type Progress struct {
	Total   int
	Checked int
}

// Complete reports whether every checkbox in the document is checked
// (true for a document with zero checkboxes too — nothing to finish).
func (p Progress) Complete() bool {
	return p.Checked == p.Total
}

// ReadProgress reads docPath from disk and counts its GFM task-list
// checkboxes.
func ReadProgress(docPath string) (Progress, error) {
	src, err := os.ReadFile(docPath)
	if err != nil {
		return Progress{}, err
	}
	return Parse(src), nil
}

// Parse counts checkboxes in already-read Markdown source.
func Parse(src []byte) Progress {
	doc := md.Parser().Parse(text.NewReader(src))

	var p Progress
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if box, ok := n.(*east.TaskCheckBox); ok {
			p.Total++
			if box.IsChecked {
				p.Checked++
			}
		}
		return ast.WalkContinue, nil
	})
	return p
}
