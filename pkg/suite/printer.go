// sitecheck
// (C) 2024, Deutsche Telekom IT GmbH
//
// Deutsche Telekom IT GmbH and all other contributors /
// copyright owners license this file to you under the Apache
// License, Version 2.0 (the "License"); you may not use this
// file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package suite

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

const barWidth = 40

// Bar is one row of a histogram
type Bar struct {
	Label   string
	Count   int
	Percent float64
}

// Printer writes human readable pass/fail lines. Colours are only used when
// the writer is a terminal.
type Printer struct {
	mu     sync.Mutex
	w      io.Writer
	styled bool
	pass   lipgloss.Style
	fail   lipgloss.Style
	head   lipgloss.Style
	dim    lipgloss.Style
}

// NewPrinter creates a printer writing to w
func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:      w,
		styled: isTerminal(w),
		pass:   r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		fail:   r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		head:   r.NewStyle().Foreground(lipgloss.Color("4")).Bold(true).Underline(true),
		dim:    r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *Printer) render(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

// Observer returns the printer as a report observer
func (p *Printer) Observer() Observer {
	return p.Result
}

// Result prints a single result line
func (p *Printer) Result(r Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r.Passed {
		fmt.Fprintf(p.w, "%s %s\n", p.render(p.pass, "✔ PASS"), r.Name)
		return
	}
	if r.Message != "" {
		fmt.Fprintf(p.w, "%s %s: %s\n", p.render(p.fail, "✖ FAIL"), r.Name, r.Message)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", p.render(p.fail, "✖ FAIL"), r.Name)
}

// Section prints a heading
func (p *Printer) Section(title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "\n%s\n", p.render(p.head, title))
}

// Infof prints an informational line
func (p *Printer) Infof(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "%s\n", p.render(p.dim, fmt.Sprintf(format, args...)))
}

// Histogram prints one bar per row, scaled to the largest count
func (p *Printer) Histogram(title string, bars []Bar) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "\n%s\n", p.render(p.head, title))
	if len(bars) == 0 {
		fmt.Fprintln(p.w, "  (no responses)")
		return
	}

	most, labelWidth := 0, 0
	for _, b := range bars {
		most = max(most, b.Count)
		labelWidth = max(labelWidth, len(b.Label))
	}
	for _, b := range bars {
		n := 0
		if most > 0 {
			n = b.Count * barWidth / most
		}
		fmt.Fprintf(p.w, "  %-*s %s %d (%.1f%%)\n", labelWidth, b.Label, strings.Repeat("█", max(n, 1)), b.Count, b.Percent)
	}
}

// Summary prints the final counts of a report
func (p *Printer) Summary(s Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "\n%s\n", p.render(p.head, "Summary"))
	fmt.Fprintf(p.w, "  Total:  %d\n", s.Total)
	fmt.Fprintf(p.w, "  Passed: %s\n", p.render(p.pass, fmt.Sprintf("%d", s.Passed)))
	if s.Failed > 0 {
		fmt.Fprintf(p.w, "  Failed: %s\n", p.render(p.fail, fmt.Sprintf("%d", s.Failed)))
	} else {
		fmt.Fprintf(p.w, "  Failed: %d\n", s.Failed)
	}
	fmt.Fprintf(p.w, "  Success rate: %.1f%%\n", s.Rate())
}
