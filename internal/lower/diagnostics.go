package lower

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
)

// DiagnosticKind classifies why a Diagnostic was recorded.
type DiagnosticKind string

const (
	// DiagUnknownKind marks an IL node kind the lowering pass does not
	// recognize (spec.md §7): it degrades to a comment marker instead of
	// crashing.
	DiagUnknownKind DiagnosticKind = "unknown-kind"
	// DiagMissingOperand marks a required sub-expression that was absent.
	DiagMissingOperand DiagnosticKind = "missing-operand"
	// DiagUnresolvedLength marks an array-length companion that could not
	// be resolved and fell back to the 0U default (or the StrictLengths
	// sentinel; see SPEC_FULL.md §3).
	DiagUnresolvedLength DiagnosticKind = "unresolved-length"
	// DiagUnsupportedIdiom marks a recognized-but-not-implemented idiom
	// (e.g. an inline-closure higher-order callback) that lowered to a
	// TODO-marked stub (spec.md §4.4, §9 "Closures").
	DiagUnsupportedIdiom DiagnosticKind = "unsupported-idiom"
)

// Diagnostic is one instance of the transformer's single error mode,
// silent degradation (spec.md §7): emission still proceeds, but the
// defect is recorded here in addition to the comment marker left in the
// generated source.
type Diagnostic struct {
	Kind     DiagnosticKind
	Position int
	Message  string
}

func (d Diagnostic) String() string {
	if d.Position != 0 {
		return fmt.Sprintf("[%s] pos %d: %s", d.Kind, d.Position, d.Message)
	}
	return fmt.Sprintf("[%s] %s", d.Kind, d.Message)
}

// DiagnosticSink accumulates Diagnostics during one Transform call. It is
// part of the transformer's per-instance scratch state (spec.md §3).
type DiagnosticSink struct {
	items []Diagnostic
}

// Add records a diagnostic.
func (s *DiagnosticSink) Add(kind DiagnosticKind, pos int, format string, args ...any) {
	s.items = append(s.items, Diagnostic{Kind: kind, Position: pos, Message: fmt.Sprintf(format, args...)})
}

// Items returns the accumulated diagnostics in recording order.
func (s *DiagnosticSink) Items() []Diagnostic {
	return s.items
}

// Report renders the accumulated diagnostics as a Markdown document
// (optionally further rendered to HTML by the caller via goldmark),
// giving tooling built on top of the transformer a human-readable
// artifact instead of having to re-parse emitted C comments
// (SPEC_FULL.md §3 "Diagnostics ledger").
func (s *DiagnosticSink) Report() string {
	var b strings.Builder
	b.WriteString("# Lowering report\n\n")
	if len(s.items) == 0 {
		b.WriteString("No degradations recorded.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "%d degradation(s) recorded:\n\n", len(s.items))
	for _, d := range s.items {
		fmt.Fprintf(&b, "- **%s** (pos %d): %s\n", d.Kind, d.Position, d.Message)
	}
	return b.String()
}

// ReportHTML renders Report's Markdown through goldmark.
func (s *DiagnosticSink) ReportHTML() (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(s.Report()), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderReport renders a standalone []Diagnostic slice (e.g. the one
// Transform returns) as Markdown, for callers that only kept the
// returned slice rather than the Transformer that produced it.
func RenderReport(diags []Diagnostic) string {
	sink := DiagnosticSink{items: diags}
	return sink.Report()
}

// RenderReportHTML is RenderReport further converted to HTML via
// goldmark.
func RenderReportHTML(diags []Diagnostic) (string, error) {
	sink := DiagnosticSink{items: diags}
	return sink.ReportHTML()
}
