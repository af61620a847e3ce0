package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/orgmark/internal/annotation"
	"github.com/dgallion1/orgmark/internal/config"
	"github.com/dgallion1/orgmark/internal/dirclient"
	"github.com/dgallion1/orgmark/internal/geometry"
	"github.com/dgallion1/orgmark/internal/hierarchy"
	"github.com/dgallion1/orgmark/internal/pagetext"
	"github.com/dgallion1/orgmark/internal/textmatch"
	"github.com/dgallion1/orgmark/internal/workspace"
)

// session bundles the configuration and remote client shared by the
// commands that talk to the service.
type session struct {
	cfg    config.Config
	client *dirclient.Client
	log    *slog.Logger
}

func openSession(log *slog.Logger) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}
	client, err := dirclient.New(dirclient.Config{BaseURL: cfg.APIURL, Timeout: cfg.RequestTimeout})
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, client: client, log: log}, nil
}

func (s *session) coordinator(pages pagetext.Source, expanded []string) *workspace.Coordinator {
	return workspace.New(s.client, pages, workspace.Options{
		Debounce:        s.cfg.SearchDebounce,
		RequestTimeout:  s.cfg.RequestTimeout,
		StatusTTL:       s.cfg.StatusTTL,
		DefaultExpanded: expanded,
	}, s.log)
}

func (s *session) Close() { s.client.Close() }

func runTree(ctx context.Context, args []string, out io.Writer, log *slog.Logger) error {
	fs := flag.NewFlagSet("tree", flag.ContinueOnError)
	query := fs.String("q", "", "Search term matched against employee and manager names")
	expand := fs.String("expand", "", "Comma-separated groups to expand (default from config)")
	all := fs.Bool("all", false, "Expand every group")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := openSession(log)
	if err != nil {
		return err
	}
	defer s.Close()

	expanded := s.cfg.DefaultExpandedGroups
	if *expand != "" {
		expanded = splitList(*expand)
	}
	c := s.coordinator(nil, expanded)
	defer c.Close()

	if err := c.Search(ctx, *query); err != nil {
		return err
	}
	if *all {
		for _, r := range c.Rows() {
			if r.IsGroupHeader && !slices.Contains(c.Expanded(), r.Group) {
				c.ToggleGroup(r.Group)
			}
		}
	}
	printRows(out, c.Rows(), c.Expanded())
	return nil
}

func runShow(ctx context.Context, args []string, out io.Writer, log *slog.Logger) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	id := fs.Int64("id", 0, "Employee id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return errors.New("-id is required")
	}

	s, err := openSession(log)
	if err != nil {
		return err
	}
	defer s.Close()
	c := s.coordinator(nil, nil)
	defer c.Close()

	rec, found, err := c.LoadAnnotation(ctx, *id)
	printStatus(out, c)
	if err != nil {
		return err
	}
	if found {
		printRecord(out, rec)
	}
	return nil
}

func runAnnotate(ctx context.Context, args []string, out io.Writer, log *slog.Logger) error {
	fs := flag.NewFlagSet("annotate", flag.ContinueOnError)
	id := fs.Int64("id", 0, "Employee id")
	page := fs.Int("page", 0, "Page index (0-based)")
	rect := fs.String("rect", "", "Rectangle corners as x0,y0,x1,y1")
	doc := fs.String("doc", "", "Document used for the snippet (default DOCUMENT_PATH)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return errors.New("-id is required")
	}
	corners, err := parseRect(*rect)
	if err != nil {
		return err
	}

	s, err := openSession(log)
	if err != nil {
		return err
	}
	defer s.Close()

	path := *doc
	if path == "" {
		path = s.cfg.DocumentPath
	}
	var pages pagetext.Source
	if path != "" {
		pages, err = pagetext.Open(path)
		if err != nil {
			return fmt.Errorf("open document: %w", err)
		}
		defer pages.Close()
	}

	c := s.coordinator(pages, nil)
	defer c.Close()
	if err := c.Search(ctx, ""); err != nil {
		return err
	}
	if err := c.Select(*id); err != nil {
		return err
	}
	c.Draw(*page, corners[0], corners[1], corners[2], corners[3])

	rec, err := c.SaveActiveRectangle(ctx)
	printStatus(out, c)
	if err != nil {
		return err
	}
	printRecord(out, rec)
	return nil
}

func runSnippet(ctx context.Context, args []string, out io.Writer, log *slog.Logger) error {
	fs := flag.NewFlagSet("snippet", flag.ContinueOnError)
	doc := fs.String("doc", "", "Path to a PDF or hOCR document")
	page := fs.Int("page", 0, "Page index (0-based)")
	rect := fs.String("rect", "", "Rectangle corners as x0,y0,x1,y1")
	words := fs.Bool("words", false, "Print the decision for every candidate word")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *doc == "" {
		return errors.New("-doc is required")
	}
	corners, err := parseRect(*rect)
	if err != nil {
		return err
	}

	pages, err := pagetext.Open(*doc)
	if err != nil {
		return fmt.Errorf("open document: %w", err)
	}
	defer pages.Close()

	lines, err := pages.TextLines(ctx, *page)
	if err != nil {
		return err
	}
	log.Debug("page text loaded", "doc", *doc, "page", *page, "lines", len(lines))

	res := textmatch.Match(lines, geometryOf(corners))
	fmt.Fprintln(out, res.Snippet)
	if *words {
		for _, w := range res.Words {
			mark := " "
			if w.Included {
				mark = "+"
			}
			fmt.Fprintf(out, "%s line %d %-20q overlap=%.2f center=%v\n", mark, w.Line, w.Text, w.Overlap, w.CenterInside)
		}
	}
	return nil
}

func runImport(ctx context.Context, args []string, out io.Writer, log *slog.Logger) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	file := fs.String("file", "", "CSV or JSON employee file")
	wait := fs.Bool("wait", false, "Poll until the import finishes")
	poll := fs.Duration("poll", time.Second, "Polling interval with -wait")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("-file is required")
	}

	s, err := openSession(log)
	if err != nil {
		return err
	}
	defer s.Close()

	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()

	jobID, err := s.client.Import(ctx, *file, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "queued import %s\n", jobID)
	if !*wait {
		return nil
	}

	ticker := time.NewTicker(*poll)
	defer ticker.Stop()
	for {
		snap, err := s.client.ImportStatus(ctx, jobID)
		if err != nil {
			return err
		}
		if snap.Status.Terminal() {
			p := snap.Progress
			fmt.Fprintf(out, "%s: %d/%d rows, %d employees added, %d managers resolved\n",
				snap.Status, p.RowsProcessed, p.TotalRows, p.EmployeesAdded, p.ManagersResolved)
			if snap.DuplicateOf != "" {
				fmt.Fprintf(out, "duplicate of %s\n", snap.DuplicateOf)
			}
			for _, e := range p.Errors {
				fmt.Fprintf(out, "  %s\n", e)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func runChart(ctx context.Context, args []string, out io.Writer, log *slog.Logger) error {
	fs := flag.NewFlagSet("chart", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := openSession(log)
	if err != nil {
		return err
	}
	defer s.Close()

	chart, err := s.client.OrgChart(ctx)
	if err != nil {
		return err
	}
	for _, e := range chart {
		fmt.Fprintf(out, "%d %s\n", e.ID, strings.Join(e.Path, " / "))
	}
	return nil
}

func runDelete(ctx context.Context, args []string, out io.Writer, log *slog.Logger) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	idList := fs.String("ids", "", "Comma-separated employee ids")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var ids []int64
	for _, p := range splitList(*idList) {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid id %q", p)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return errors.New("-ids is required")
	}

	s, err := openSession(log)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.client.BulkDelete(ctx, ids)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "deleted %d", len(res.Deleted))
	if len(res.NotFound) > 0 {
		fmt.Fprintf(out, ", not found: %v", res.NotFound)
	}
	fmt.Fprintln(out)
	return nil
}

func printRows(out io.Writer, rows []hierarchy.Row, expanded []string) {
	for _, r := range rows {
		if r.IsGroupHeader {
			marker := "+"
			if slices.Contains(expanded, r.Group) {
				marker = "-"
			}
			fmt.Fprintf(out, "%s %s (%d)\n", marker, r.Group, r.EmployeeCount)
			continue
		}
		line := fmt.Sprintf("    %d %s <%s> %s", r.ID, r.Name, r.Email, r.Role)
		if rec := r.Annotation(); annotation.HasAnnotation(rec) {
			line += fmt.Sprintf(" [page %d]", rec.PageOrZero())
		}
		fmt.Fprintln(out, line)
	}
}

func printRecord(out io.Writer, rec annotation.Record) {
	rect, ok := annotation.FromRecord(rec)
	if !ok {
		return
	}
	fmt.Fprintf(out, "page %d: (%.1f, %.1f) - (%.1f, %.1f)\n", rec.PageOrZero(), rect.Left, rect.Top, rect.Right(), rect.Bottom())
	if s := rec.SnippetOrEmpty(); s != "" {
		fmt.Fprintf(out, "snippet: %s\n", s)
	}
}

func printStatus(out io.Writer, c *workspace.Coordinator) {
	if st, ok := c.Status(); ok {
		fmt.Fprintln(out, st.String())
	}
}

// parseRect reads "x0,y0,x1,y1".
func parseRect(s string) ([4]float64, error) {
	var v [4]float64
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return v, fmt.Errorf("rect %q: want x0,y0,x1,y1", s)
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return v, fmt.Errorf("rect %q: %w", s, err)
		}
		v[i] = f
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// geometryOf normalizes corners read by parseRect.
func geometryOf(c [4]float64) geometry.Rect {
	return geometry.Normalize(c[0], c[2], c[1], c[3])
}
