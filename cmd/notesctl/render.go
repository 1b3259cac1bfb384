package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"go-notes-workspace/internal/model"
	"go-notes-workspace/internal/store"
	"go-notes-workspace/internal/tokens"
	"go-notes-workspace/internal/upload"
)

const gridColumns = 4

func formatBreadcrumbs(crumbs []model.Folder) string {
	parts := []string{"Home"}
	for _, f := range crumbs {
		parts = append(parts, f.Name)
	}
	return strings.Join(parts, " / ")
}

func renderItems(w io.Writer, items []store.Item, mode store.ViewMode) {
	if len(items) == 0 {
		fmt.Fprintln(w, "(empty)")
		return
	}

	if mode == store.ViewGrid {
		tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
		for i, item := range items {
			name := item.Name
			if item.Key.Kind == store.KindFolder {
				name += "/"
			}
			sep := "\t"
			if (i+1)%gridColumns == 0 || i == len(items)-1 {
				sep = "\n"
			}
			fmt.Fprint(tw, name+sep)
		}
		tw.Flush()
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tNAME\tSIZE\tUPDATED\tID")
	for _, item := range items {
		size := formatSize(item.Size)
		if item.Key.Kind == store.KindFolder {
			size = fmt.Sprintf("%d items", item.Size)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", item.Type, item.Name, size, formatTime(item.UpdatedAt), item.Key.ID)
	}
	tw.Flush()
}

func renderShared(w io.Writer, docs []model.SharedDocument) {
	if len(docs) == 0 {
		fmt.Fprintln(w, "Nothing has been shared with you")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFROM\tPERMISSION\tSIZE\tID")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Name, d.SharedBy.Username, d.Permission, formatSize(d.Size), d.ID)
	}
	tw.Flush()
}

func renderTokens(w io.Writer, st tokens.State) {
	fmt.Fprintf(w, "Balance:      %d\n", st.Balance)
	fmt.Fprintf(w, "Used:         %d of %d (%.1f%%)\n", st.UsedTokens, st.TotalTokens, st.UsagePercentage())
	fmt.Fprintf(w, "Days left:    %s\n", st.EstimatedDaysLeft())
	if st.IsLowBalance() {
		fmt.Fprintln(w, "Warning: token balance is low")
	}

	if len(st.Breakdown) > 0 {
		fmt.Fprintf(w, "\nLast %d days by feature\n", st.HistoryDays)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, b := range st.Breakdown {
			fmt.Fprintf(tw, "  %s\t%d\t%.1f%%\n", b.Feature, b.Tokens, b.Percentage)
		}
		tw.Flush()
	}
}

// progressPrinter prints one line per task state change.
type progressPrinter struct {
	w    io.Writer
	mu   sync.Mutex
	last map[string]string
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w, last: map[string]string{}}
}

func (p *progressPrinter) update(t upload.Task) {
	line := fmt.Sprintf("%-10s %3d%%  %s", t.Status, t.Progress, t.Name)
	if t.Error != "" {
		line += "  (" + t.Error + ")"
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last[t.ID] == line {
		return
	}
	p.last[t.ID] = line
	fmt.Fprintln(p.w, line)
}

func formatSize(size int64) string {
	if size < 1024 {
		return fmt.Sprintf("%d B", size)
	}

	units := []string{"KB", "MB", "GB", "TB"}
	value := float64(size)
	for _, unit := range units {
		value = value / 1024
		if value < 1024 {
			return fmt.Sprintf("%.1f %s", value, unit)
		}
	}
	return fmt.Sprintf("%.1f PB", value/1024)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
