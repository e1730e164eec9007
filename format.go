package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/tonimelisma/blobfm/internal/config"
	"github.com/tonimelisma/blobfm/internal/notify"
	"github.com/tonimelisma/blobfm/internal/statedb"
	"github.com/tonimelisma/blobfm/internal/view"
)

// statusf prints a status message unless quiet mode is set.
func statusf(w io.Writer, format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(w, format, args...)
	}
}

// useFancyOutput decides whether to decorate output with emoji.
func useFancyOutput(mode string, out io.Writer) bool {
	switch mode {
	case config.EmojiAlways:
		return true
	case config.EmojiNever:
		return false
	}

	f, ok := out.(*os.File)

	return ok && isatty.IsTerminal(f.Fd())
}

var noteIcons = map[notify.Severity]string{
	notify.SeverityInfo:    "ℹ️ ",
	notify.SeveritySuccess: "✅",
	notify.SeverityError:   "❌",
}

// formatNote renders one notification line.
func formatNote(n notify.Notification, fancy bool) string {
	if fancy {
		return noteIcons[n.Severity] + " " + n.Message
	}

	return fmt.Sprintf("[%s] %s", n.Severity, n.Message)
}

func icon(fancy bool, emoji, plain string) string {
	if fancy {
		return emoji + " "
	}

	return plain
}

// renderFolders prints the root view.
func renderFolders(w io.Writer, s view.Snapshot, fancy bool) {
	for _, f := range s.Folders {
		fmt.Fprintf(w, "%s%s\n", icon(fancy, "📁", ""), f)
	}
}

// renderFiles prints the folder view.
func renderFiles(w io.Writer, s view.Snapshot, fancy bool) {
	fmt.Fprintf(w, "%s%s/\n", icon(fancy, "📂", ""), s.CurrentFolder)

	for _, f := range s.Files {
		fmt.Fprintf(w, "  %s%s\n", icon(fancy, "📄", ""), f)
	}
}

// renderView prints whichever view is current.
func renderView(w io.Writer, s view.Snapshot, fancy bool) {
	if s.Mode == view.ModeFolder {
		renderFiles(w, s, fancy)
		return
	}

	renderFolders(w, s, fancy)
}

// renderTree prints the folder tree with expanded folders' files.
func renderTree(w io.Writer, s view.Snapshot, fancy bool) {
	for _, node := range s.Tree {
		marker := "▸"
		if node.Expanded {
			marker = "▾"
		}

		fmt.Fprintf(w, "%s %s%s\n", marker, icon(fancy, "📁", ""), node.Folder)

		for _, f := range node.Files {
			fmt.Fprintf(w, "    %s%s\n", icon(fancy, "📄", ""), f)
		}
	}
}

// renderStatus prints the header: account, status line and view.
func renderStatus(w io.Writer, s view.Snapshot) {
	user := s.Username
	if user == "" {
		user = "(signed out)"
	}

	where := "folders"
	if s.Mode == view.ModeFolder {
		where = "folder " + s.CurrentFolder
	}

	fmt.Fprintf(w, "User:     %s\n", user)
	fmt.Fprintf(w, "Status:   %s\n", s.Status)
	fmt.Fprintf(w, "View:     %s\n", where)

	if s.SelectedFile != "" {
		fmt.Fprintf(w, "Selected: %s\n", s.SelectedFile)
	}
}

// renderMenu prints the open context menu and its actions.
func renderMenu(w io.Writer, m *view.Menu) {
	if m == nil {
		fmt.Fprintln(w, "No menu open.")
		return
	}

	fmt.Fprintf(w, "%s %s: %s\n", m.Kind, m.Name, strings.Join(view.Actions(m.Kind), ", "))
}

// renderHistory prints activity rows newest first.
func renderHistory(w io.Writer, rows []statedb.Activity) {
	headers := []string{"WHEN", "OP", "FOLDER", "FILE", "OUTCOME"}
	cells := make([][]string, 0, len(rows))

	for _, r := range rows {
		outcome := r.Outcome
		if r.Detail != "" {
			outcome += ": " + r.Detail
		}

		cells = append(cells, []string{formatTime(r.At), r.Op, r.Folder, r.File, outcome})
	}

	printTable(w, headers, cells)
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	return nil
}

// formatTime returns a compact timestamp for display.
func formatTime(t time.Time) string {
	now := time.Now()

	if t.Year() == now.Year() {
		return t.Format("Jan _2 15:04")
	}

	return t.Format("Jan _2  2006")
}

// printTable writes aligned columns to the given writer.
// headers and each row must have the same length.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow(w, headers, widths)

	for _, row := range rows {
		printRow(w, row, widths)
	}
}

// printRow writes a single padded row.
func printRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
	}

	fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
}
