// Command rowmap applies a mapping document to a CSV file: one output row
// per input row, columns in the document's field order. Failed cells carry
// their error message so broken data stays visible in the output.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/rowmap/rowmap/internal/logging"
	"github.com/rowmap/rowmap/internal/store"
	"github.com/rowmap/rowmap/internal/validation"
	"github.com/rowmap/rowmap/pkg/mapping"
	"github.com/rowmap/rowmap/pkg/schema"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "rowmap:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := loadConfig()

	mappingPath := flag.String("mapping", "", "path to a mapping document (JSON)")
	loadName := flag.String("load", "", "load a stored mapping document by name")
	saveName := flag.String("save", "", "store the mapping document under this name and exit")
	inPath := flag.String("in", "", "input CSV file")
	outPath := flag.String("out", "", "output CSV file (default: stdout)")
	preview := flag.Int("preview", 0, "render the first N output rows as a table instead of CSV")
	workers := flag.Int("workers", cfg.Workers, "rows evaluated concurrently (0 = number of CPUs)")
	flag.Parse()

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	ctx := context.Background()

	raw, err := loadDocumentBytes(ctx, cfg, *mappingPath, *loadName)
	if err != nil {
		return err
	}

	validator, err := validation.NewDocumentValidator()
	if err != nil {
		return err
	}
	if err := validator.ValidateDocument(raw); err != nil {
		return err
	}

	if *saveName != "" {
		return saveDocument(ctx, cfg, *saveName, raw)
	}

	set, err := mapping.ParseDocument(raw)
	if err != nil {
		return err
	}

	if *inPath == "" {
		return fmt.Errorf("no input file; use -in data.csv")
	}
	table, err := readCSV(*inPath)
	if err != nil {
		return err
	}

	var opts []mapping.TableOption
	if *workers > 0 {
		opts = append(opts, mapping.WithWorkers(*workers))
	}
	opts = append(opts, mapping.WithLogger(logger))

	// Configuration errors stop only the broken fields; the healthy cells
	// still come back and are worth emitting before reporting the errors.
	results, applyErr := set.ApplyTable(ctx, table.Rows, opts...)
	if results == nil {
		return applyErr
	}

	columns := set.Columns()
	if *preview > 0 {
		renderPreview(os.Stdout, columns, results, *preview)
		return applyErr
	}
	if err := writeCSV(*outPath, columns, results); err != nil {
		return err
	}
	return applyErr
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(logging.NewCorrelationHandler(handler))
}

// loadDocumentBytes reads the mapping document from a file or from the store.
func loadDocumentBytes(ctx context.Context, cfg Config, path, name string) ([]byte, error) {
	switch {
	case path != "":
		return os.ReadFile(path)
	case name != "":
		st, err := store.NewLibSQLStore("file:" + cfg.DBPath)
		if err != nil {
			return nil, err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return nil, err
		}
		doc, err := st.GetDocumentByName(ctx, name)
		if err != nil {
			return nil, err
		}
		return doc.Body, nil
	default:
		return nil, fmt.Errorf("no mapping document; use -mapping doc.json or -load name")
	}
}

func saveDocument(ctx context.Context, cfg Config, name string, body []byte) error {
	st, err := store.NewLibSQLStore("file:" + cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}
	doc := &store.Document{Name: name, Body: body}
	if err := st.CreateDocument(ctx, doc); err != nil {
		return err
	}
	fmt.Printf("stored mapping %q as %s\n", name, doc.ID)
	return nil
}

// readCSV loads a CSV file with a header line into a table; the header
// doubles as the source field manifest.
func readCSV(path string) (*schema.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	table := &schema.Table{Fields: make([]schema.Field, len(header))}
	for i, name := range header {
		table.Fields[i] = schema.Field{Name: name, Type: schema.TypeString}
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row: %w", err)
		}
		row := make(schema.Row, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func writeCSV(path string, columns []string, results []map[string]schema.TransformationResult) error {
	var out io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	w := csv.NewWriter(out)
	if err := w.Write(columns); err != nil {
		return err
	}
	for _, row := range results {
		record := make([]string, len(columns))
		for i, col := range columns {
			record[i] = cellText(row[col])
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func renderPreview(out io.Writer, columns []string, results []map[string]schema.TransformationResult, limit int) {
	table := tablewriter.NewWriter(out)
	table.SetHeader(columns)

	for i, row := range results {
		if i >= limit {
			break
		}
		record := make([]string, len(columns))
		for j, col := range columns {
			record[j] = cellText(row[col])
		}
		table.Append(record)
	}
	table.Render()
}

func cellText(res schema.TransformationResult) string {
	if res.Failed() {
		return "!" + res.ErrorMessage()
	}
	return res.String()
}
