package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-viewstate"
	"github.com/goliatone/go-viewstate/pkg/datasource"
	"github.com/goliatone/go-viewstate/pkg/sqlsource"
)

func (a *app) codec(w io.Writer) *viewstate.Codec {
	return a.cfg.State.NewCodec(viewstate.WithCodecLogger(stateLogger(a.stdLogger(w))))
}

func (a *app) pipeline(provider datasource.Provider, w io.Writer) (*datasource.Pipeline, error) {
	opts, err := a.cfg.PipelineOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		datasource.WithLogger(selectLogger(a.stdLogger(w))),
		datasource.WithMeterProvider(a.telemetry.MeterProvider()),
	)
	return datasource.NewPipeline(provider, opts...)
}

// dbFlags are shared by the commands that read from SQL.
type dbFlags struct {
	driver string
	dsn    string
}

func (f *dbFlags) open(ctx context.Context) (*sql.DB, sqlsource.Dialect, error) {
	switch f.driver {
	case "sqlite":
		db, err := sqlsource.OpenSQLite(f.dsn)
		return db, sqlsource.DialectQuestion, err
	case "postgres", "pgx":
		db, err := sqlsource.OpenPostgres(ctx, f.dsn)
		return db, sqlsource.DialectDollar, err
	default:
		return nil, 0, fmt.Errorf("unknown driver %q (valid: sqlite, postgres)", f.driver)
	}
}

// readBlob returns arg, or stdin when arg is "-".
func readBlob(arg string, stdin io.Reader) (string, error) {
	if arg != "-" {
		return strings.TrimSpace(arg), nil
	}
	raw, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// snapshotView is the printable form of a snapshot.
type snapshotView struct {
	Version int             `json:"version,omitempty"`
	Entries []entryView     `json:"entries,omitempty"`
	Slots   []*snapshotView `json:"slots,omitempty"`
}

type entryView struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

func viewOf(s *viewstate.Snapshot) *snapshotView {
	if s == nil {
		return nil
	}
	out := &snapshotView{Version: s.Version}
	for _, entry := range s.Entries {
		value := entry.Value
		if nested, ok := value.(*viewstate.Snapshot); ok {
			value = viewOf(nested)
		}
		out.Entries = append(out.Entries, entryView{Key: entry.Key, Type: fmt.Sprintf("%T", entry.Value), Value: value})
	}
	for _, slot := range s.Slots {
		out.Slots = append(out.Slots, viewOf(slot))
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}
