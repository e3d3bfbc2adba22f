package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/lorrc/avisos-backend/internal/client"
)

// printJSON marshals v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatTime renders an RFC3339 timestamp as local day and minute.
func formatTime(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("02/01/2006 15:04")
}

// authorLabel renders "name: email", or just the name.
func authorLabel(c client.Comment) string {
	if c.Author == nil {
		return "unknown"
	}
	if c.Author.Email == "" {
		return c.Author.Name
	}
	return c.Author.Name + ": " + c.Author.Email
}

// printComment prints one comment in text format.
func printComment(w io.Writer, c client.Comment) {
	fmt.Fprintf(w, "#%d  %s  [%s]\n", c.ID, authorLabel(c), formatTime(c.CreatedAt))
	fmt.Fprintf(w, "    %s\n", c.Body)
}

// printCommentTable prints comments as a formatted table.
func printCommentTable(out io.Writer, comments []client.Comment) error {
	if len(comments) == 0 {
		fmt.Fprintln(out, "No comments found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tANNOUNCEMENT\tAUTHOR\tCREATED\tBODY"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, c := range comments {
		if _, err := fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n",
			c.ID, c.AnnouncementID, authorLabel(c), formatTime(c.CreatedAt), truncate(c.Body, 60)); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	return w.Flush()
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
