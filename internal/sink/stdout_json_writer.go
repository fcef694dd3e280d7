package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"uav-testgen/internal/ledger"
)

// JSONStdoutWriter prints records and events as JSON to STDOUT.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

// Write outputs a record in JSON format.
func (w *JSONStdoutWriter) Write(rec ledger.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	fmt.Fprintln(w.out, string(data))
	return nil
}

// WriteBatch outputs multiple records in JSON format.
func (w *JSONStdoutWriter) WriteBatch(recs []ledger.Record) error {
	for _, r := range recs {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvent outputs a search event in JSON format.
func (w *JSONStdoutWriter) WriteEvent(e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	fmt.Fprintln(w.out, string(data))
	return nil
}
