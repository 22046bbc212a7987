// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/adscout/internal/db"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRunSummary outputs a human-readable summary of a completed run.
func (p *Printer) PrintRunSummary(run *db.Run) {
	if run == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Run:      %s\n", run.ID))
	sb.WriteString(fmt.Sprintf("Market:   %s (%s)\n", run.TargetCountry, run.Language))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", run.Status))
	sb.WriteString("\n")

	if len(run.Keywords) > 0 {
		sb.WriteString("Keywords:\n")
		count := min(len(run.Keywords), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", run.Keywords[i]))
		}
		if len(run.Keywords) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(run.Keywords)-maxItemsToShow))
		}
		sb.WriteString("\n")
	}

	if run.Summary != "" {
		sb.WriteString(fmt.Sprintf("Summary:  %s\n", run.Summary))
	}

	p.printBox("RUN SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintTopCandidates outputs the top N candidates with scores and metrics.
func (p *Printer) PrintTopCandidates(candidates []db.Candidate) {
	if len(candidates) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total candidates: %d\n\n", len(candidates)))

	count := min(len(candidates), maxItemsToShow)
	for i := 0; i < count; i++ {
		c := candidates[i]
		name := c.AdvertiserName
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, name))
		sb.WriteString(fmt.Sprintf("    Score: %d", c.TotalScore))
		if c.ArAdsCount != nil {
			sb.WriteString(fmt.Sprintf(" (AR: %d)", *c.ArAdsCount))
		}
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("    Active: %d  Uniproduct: %.2f  Duplicates: %.2f\n",
			c.ActiveAdsCount, c.UniproductRatio, c.DuplicatesScore))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(candidates) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more candidates", len(candidates)-maxItemsToShow))
	}

	p.printBox("TOP CANDIDATES", sb.String())
}

// PrintReplication outputs reference-market results for the approved
// candidates. Candidates that were never cross-checked are skipped.
func (p *Printer) PrintReplication(candidates []db.Candidate) {
	checked := make([]db.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.ArAdsCount != nil {
			checked = append(checked, c)
		}
	}

	if len(checked) == 0 {
		//nolint:errcheck // writing to stdout; errors are not recoverable
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "NO CANDIDATES CROSS-CHECKED")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Cross-checked %d candidates:\n\n", len(checked)))

	count := min(len(checked), maxItemsToShow)
	for i := 0; i < count; i++ {
		c := checked[i]
		name := c.AdvertiserName
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		sb.WriteString(fmt.Sprintf("• %s\n", name))
		sb.WriteString(fmt.Sprintf("  %d ads [%s]\n", *c.ArAdsCount, db.ReplicationLevel(*c.ArAdsCount)))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(checked) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more", len(checked)-maxItemsToShow))
	}

	p.printBox("REFERENCE MARKET REPLICATION", sb.String())
}

// PrintValidationDetail outputs the per-gate reasons recorded for one
// candidate at validation time.
func (p *Printer) PrintValidationDetail(c *db.Candidate) {
	if c == nil || c.ValidationReason == "" {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Advertiser: %s\n", c.AdvertiserName))
	sb.WriteString(fmt.Sprintf("Product:    %s\n", c.ProductDetected))
	sb.WriteString("\n")

	for _, reason := range strings.Split(c.ValidationReason, " | ") {
		if len(reason) > 50 {
			reason = reason[:47] + "..."
		}
		sb.WriteString(fmt.Sprintf("  • %s\n", reason))
	}

	p.printBox("VALIDATION DETAIL", strings.TrimSuffix(sb.String(), "\n"))
}
