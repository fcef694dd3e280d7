package sink

import (
	"errors"
	"io"

	"uav-testgen/internal/ledger"
)

// MultiWriter fans records and events out to multiple writers.
type MultiWriter struct {
	recWriters   []FitnessWriter
	eventWriters []EventWriter
}

// NewMultiWriter creates a new MultiWriter. Writers in fws that also implement
// EventWriter receive events without being listed in ews.
func NewMultiWriter(fws []FitnessWriter, ews []EventWriter) *MultiWriter {
	mw := &MultiWriter{recWriters: fws, eventWriters: ews}
	for _, w := range fws {
		ew, ok := w.(EventWriter)
		if !ok || containsEventWriter(ews, ew) {
			continue
		}
		mw.eventWriters = append(mw.eventWriters, ew)
	}
	return mw
}

func containsEventWriter(ews []EventWriter, w EventWriter) bool {
	for _, e := range ews {
		if e == w {
			return true
		}
	}
	return false
}

// Write sends a record to all writers. A failing writer does not stop the others; the
// errors are joined.
func (mw *MultiWriter) Write(rec ledger.Record) error {
	var errs []error
	for _, w := range mw.recWriters {
		if err := w.Write(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteBatch sends multiple records to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(recs []ledger.Record) error {
	var errs []error
	for _, w := range mw.recWriters {
		if bw, ok := w.(batchWriter); ok {
			if err := bw.WriteBatch(recs); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		for _, r := range recs {
			if err := w.Write(r); err != nil {
				errs = append(errs, err)
				break
			}
		}
	}
	return errors.Join(errs...)
}

// WriteEvent sends an event to all event writers.
func (mw *MultiWriter) WriteEvent(e Event) error {
	var errs []error
	for _, w := range mw.eventWriters {
		if err := w.WriteEvent(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every writer that implements io.Closer.
func (mw *MultiWriter) Close() error {
	var errs []error
	seen := make(map[any]bool)
	closeOne := func(w any) {
		c, ok := w.(io.Closer)
		if !ok || seen[w] {
			return
		}
		seen[w] = true
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, w := range mw.recWriters {
		closeOne(w)
	}
	for _, w := range mw.eventWriters {
		closeOne(w)
	}
	return errors.Join(errs...)
}
