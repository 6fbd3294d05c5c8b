package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// LoaderConfig describes where the raw records live and how to read them.
type LoaderConfig struct {
	// Source is an http(s) URL, a file:// URL or a local path.
	Source        string
	Columns       []string
	MissingValues []string
	// Encoding is a WHATWG encoding label, e.g. "utf-8" or "iso-8859-1".
	Encoding string
	Timeout  time.Duration
}

// Loader fetches headerless comma-separated records and drops incomplete rows.
type Loader struct {
	config LoaderConfig
	client *http.Client
	logger *zap.Logger
}

func NewLoader(config LoaderConfig, logger *zap.Logger) *Loader {
	if config.Encoding == "" {
		config.Encoding = "utf-8"
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}
}

// Load reads the source, removes rows with missing values and infers column kinds.
func (l *Loader) Load(ctx context.Context) (*Frame, CleaningStats, error) {
	if len(l.config.Columns) == 0 {
		return nil, CleaningStats{}, errors.New("no columns configured")
	}

	body, err := l.open(ctx)
	if err != nil {
		return nil, CleaningStats{}, err
	}
	defer body.Close()

	enc, err := htmlindex.Get(l.config.Encoding)
	if err != nil {
		return nil, CleaningStats{}, fmt.Errorf("unknown encoding %q: %w", l.config.Encoding, err)
	}
	rows, err := ParseRecords(transform.NewReader(body, enc.NewDecoder()), len(l.config.Columns))
	if err != nil {
		return nil, CleaningStats{}, fmt.Errorf("parse %s: %w", l.config.Source, err)
	}

	cleaner := NewCleaner(NewMissingValueRule(l.config.Columns, l.config.MissingValues))
	cleaned := cleaner.Clean(rows)
	stats := cleaner.Stats()

	frame, err := NewFrame(l.config.Columns, cleaned)
	if err != nil {
		return nil, stats, err
	}

	l.logger.Info("dataset loaded",
		zap.String("source", l.config.Source),
		zap.Int("raw_rows", len(rows)),
		zap.Int64("dropped", stats.Rejected),
		zap.Int("rows", frame.Len()),
	)
	return frame, stats, nil
}

func (l *Loader) open(ctx context.Context) (io.ReadCloser, error) {
	u, err := url.Parse(l.config.Source)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// plain path, including Windows drive letters
		return openFile(l.config.Source)
	}

	switch u.Scheme {
	case "file":
		return openFile(u.Path)
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported source scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.config.Source, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", l.config.Source, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %s", l.config.Source, resp.Status)
	}
	return resp.Body, nil
}

func openFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	return f, nil
}

// ParseRecords reads headerless comma-separated rows with exactly width
// fields. Leading spaces after a delimiter are skipped, cells are trimmed,
// stray quotes inside a field are kept and blank lines are ignored.
func ParseRecords(r io.Reader, width int) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = width
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) && errors.Is(parseErr.Err, csv.ErrFieldCount) {
				return nil, fmt.Errorf("line %d: %w", parseErr.Line, ErrSchemaMismatch)
			}
			return nil, err
		}
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		rows = append(rows, record)
	}
	return rows, nil
}
