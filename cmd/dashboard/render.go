package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/lukasdemani/searcher-app/internal/dashboard"
	"github.com/lukasdemani/searcher-app/internal/model"
)

const (
	clearScreen  = "\033[H\033[2J"
	defaultWidth = 120
	minURLWidth  = 20
	// Width taken by every column except URL and title.
	fixedColumns = 70
)

type renderer struct {
	out      io.Writer
	fd       int
	terminal bool
}

func newRenderer(f *os.File) *renderer {
	fd := int(f.Fd())
	return &renderer{out: f, fd: fd, terminal: term.IsTerminal(fd)}
}

func (r *renderer) width() int {
	if !r.terminal {
		return defaultWidth
	}
	w, _, err := term.GetSize(r.fd)
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

func (r *renderer) render(s *dashboard.Session) {
	if r.terminal {
		fmt.Fprint(r.out, clearScreen)
	}
	writeFrame(r.out, s, r.width())
}

func writeFrame(out io.Writer, s *dashboard.Session, width int) {
	st := s.Status()
	res := s.View()

	conn := st.Connection.State.String()
	if st.Connection.Err != nil {
		conn += " (" + st.Connection.Err.Error() + ")"
	}
	fmt.Fprintf(out, "push: %s", conn)
	if st.Loading {
		fmt.Fprint(out, "  loading...")
	}
	fmt.Fprintln(out)
	if st.FetchErr != nil {
		fmt.Fprintf(out, "error: %v\n", st.FetchErr)
	}
	fmt.Fprintf(out, "total %d  queued %d  processing %d  completed %d  error %d  selected %d\n\n",
		st.Stats.Total, st.Stats.Queued, st.Stats.Processing, st.Stats.Completed, st.Stats.Error, st.Selected)

	textWidth := max((width-fixedColumns)/2, minURLWidth)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, " \tID\tSTATUS\tURL\tTITLE\tHTML\tINT\tEXT\tBROKEN\tLOGIN\tCREATED")
	for i := range res.Items {
		rec := &res.Items[i]
		mark := " "
		if s.IsSelected(rec.ID) {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			mark,
			rec.ID,
			rec.Status,
			truncate(rec.URL, textWidth),
			truncate(rec.Title, textWidth),
			rec.HTMLVersion,
			rec.InternalLinksCount,
			rec.ExternalLinksCount,
			rec.BrokenLinksCount,
			yesNo(rec.HasLoginForm),
			created(rec),
		)
	}
	_ = tw.Flush()

	if res.Matched == 0 {
		fmt.Fprintln(out, "\nno URLs match")
		return
	}
	first := res.Start + 1
	if len(res.Items) == 0 {
		first = res.Start
	}
	fmt.Fprintf(out, "\nshowing %d-%d of %d  page %d/%d\n", first, res.End, res.Matched, res.Page, res.TotalPages)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func created(rec *model.AnalysisRecord) string {
	if rec.CreatedAt.IsZero() {
		return "-"
	}
	return rec.CreatedAt.Local().Format("2006-01-02 15:04")
}
