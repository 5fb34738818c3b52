package main

import (
	"io"
	"log"

	"github.com/goliatone/go-viewstate"
	"github.com/goliatone/go-viewstate/pkg/datasource"
)

func (a *app) stdLogger(w io.Writer) *log.Logger {
	if !a.verbose {
		return nil
	}
	return log.New(w, "viewstate ", log.LstdFlags|log.Lmicroseconds)
}

// stateLogger adapts state events to a stdlib logger.
func stateLogger(l *log.Logger) viewstate.Logger {
	if l == nil {
		return nil
	}
	return viewstate.LoggerFunc(func(e viewstate.LogEvent) {
		if e.Err != nil {
			l.Printf("state %s store=%s err=%v", e.Op, e.Store, e.Err)
			return
		}
		l.Printf("state %s store=%s entries=%d slots=%d bytes=%d took=%s", e.Op, e.Store, e.Entries, e.Slots, e.Bytes, e.Duration)
	})
}

// selectLogger adapts pipeline events to a stdlib logger.
func selectLogger(l *log.Logger) datasource.Logger {
	if l == nil {
		return nil
	}
	return datasource.LoggerFunc(func(e datasource.LogEvent) {
		if e.Err != nil {
			l.Printf("select view=%s err=%v", e.View, e.Err)
			return
		}
		l.Printf("select view=%s start=%d max=%d sort=%q cached=%t rows=%d total=%d took=%s",
			e.View, e.Args.StartRowIndex, e.Args.MaximumRows, e.Args.SortExpression, e.Cached, e.Rows, e.Args.TotalRowCount, e.Duration)
	})
}
