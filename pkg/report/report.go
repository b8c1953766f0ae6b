// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package report

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/wiz-lang/wiz/pkg/source"
)

// Annotation is a secondary location attached to a Diagnostic, used for
// "continued" messages such as every conflicting declaration in an
// Ambiguous error, or each frame of a let-recursion stack trace.
type Annotation struct {
	Location source.Location
	Message  string
}

// Diagnostic is a single reported problem, associated with exactly one
// Kind (§7) and a primary source location.
type Diagnostic struct {
	Kind        Kind
	Location    source.Location
	Message     string
	Annotations []Annotation
}

// Error implements the error interface so a Diagnostic can be returned
// directly from helper functions that use Go's usual error conventions.
func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Location.String(), d.Kind.String(), d.Message)
}

// Report accumulates diagnostics for a single compilation.  Every phase
// (C1-C5) writes into the same Report and calls Validate() at its end; a
// fatal diagnostic aborts immediately, while a non-fatal one lets the
// phase keep processing so later statements can surface further problems
// (§7 propagation policy).
type Report struct {
	diagnostics []Diagnostic
	fatal       bool
	// Verbose enables Debug-level logging of each recorded diagnostic.
	Verbose bool
}

// NewReport constructs an empty report.
func NewReport() *Report {
	return &Report{}
}

// Add records a new diagnostic.  If its kind is fatal, subsequent calls to
// Validate will return false immediately regardless of how many other
// diagnostics exist.
func (r *Report) Add(kind Kind, loc source.Location, msg string, annotations ...Annotation) *Diagnostic {
	d := Diagnostic{kind, loc, msg, annotations}
	r.diagnostics = append(r.diagnostics, d)
	//
	if kind.IsFatal() {
		r.fatal = true
	}
	//
	if r.Verbose {
		log.Debugf("%s: recorded %s", loc.String(), kind.String())
	}
	//
	return &r.diagnostics[len(r.diagnostics)-1]
}

// Errorf is a convenience wrapper around Add for the common case of a
// formatted message with no secondary annotations.
func (r *Report) Errorf(kind Kind, loc source.Location, format string, args ...any) *Diagnostic {
	return r.Add(kind, loc, fmt.Sprintf(format, args...))
}

// HasErrors reports whether any diagnostic at all has been recorded.
func (r *Report) HasErrors() bool {
	return len(r.diagnostics) > 0
}

// Diagnostics returns all diagnostics recorded so far, in recording order.
func (r *Report) Diagnostics() []Diagnostic {
	return r.diagnostics
}

// Validate is called at the end of every phase (§2).  It returns false
// (aborting the overall compile) if any error was recorded, fatal or not;
// the difference is only that a fatal diagnostic should be treated as
// unrecoverable even mid-phase, whereas a phase may otherwise keep
// processing subsequent statements purely to surface more diagnostics.
func (r *Report) Validate() bool {
	if len(r.diagnostics) == 0 {
		return true
	}
	//
	log.Warnf("compilation recorded %d diagnostic(s)", len(r.diagnostics))
	//
	return false
}

// IsFatal reports whether a fatal diagnostic has been recorded, in which
// case the caller should short-circuit immediately rather than waiting
// for the enclosing phase to finish (§7: "Fatal flags exist for
// catastrophic cases... and short-circuit immediately").
func (r *Report) IsFatal() bool {
	return r.fatal
}

// Format renders every diagnostic in the user-visible format described by
// §7: location, primary message, "continued" annotations, and a trailing
// footer if any error was fatal or the caller indicates compilation
// stopped. Terminal width (detected via golang.org/x/term when stdout is a
// tty) bounds how much of the offending source line is echoed back.
func (r *Report) Format() string {
	var b strings.Builder
	//
	width := terminalWidth()
	//
	for i := range r.diagnostics {
		d := &r.diagnostics[i]
		fmt.Fprintf(&b, "%s: %s: %s\n", d.Location.String(), d.Kind.String(), d.Message)
		writeSourceLine(&b, d.Location, width)
		//
		for _, a := range d.Annotations {
			fmt.Fprintf(&b, "  continued: %s: %s\n", a.Location.String(), a.Message)
		}
	}
	//
	if len(r.diagnostics) > 0 {
		b.WriteString("stopping compilation due to previous error\n")
	}
	//
	return b.String()
}

func writeSourceLine(b *strings.Builder, loc source.Location, width int) {
	if loc.File == nil {
		return
	}
	//
	line := loc.File.FindFirstEnclosingLine(loc.Span)
	text := line.String()
	//
	if width > 0 && len(text) > width {
		text = text[:width]
	}
	//
	fmt.Fprintf(b, "  %s\n", text)
}

// terminalWidth detects the width of stdout, returning 0 (meaning
// "unbounded") when stdout is not a terminal.
func terminalWidth() int {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return 0
	}
	//
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	//
	return w
}

// LetRecursionFrame renders a single frame of a let-recursion stack trace,
// per §7: "#i — <location> in expression `<name>`".
func LetRecursionFrame(i int, loc source.Location, name string) string {
	return fmt.Sprintf("#%d — %s in expression `%s`", i, loc.String(), name)
}
