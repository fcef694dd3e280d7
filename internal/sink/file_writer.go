package sink

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"uav-testgen/internal/ledger"
)

// FileWriter writes fitness records and search events to JSONL files.
type FileWriter struct {
	mu       sync.Mutex
	recFile  *os.File
	evtFile  *os.File
	recEnc   *json.Encoder
	eventEnc *json.Encoder
}

// NewFileWriter creates a FileWriter. eventsPath may be empty to skip the event log.
func NewFileWriter(recordsPath, eventsPath string) (*FileWriter, error) {
	if err := os.MkdirAll(filepath.Dir(recordsPath), 0o755); err != nil {
		return nil, err
	}
	rf, err := os.Create(recordsPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{recFile: rf, recEnc: json.NewEncoder(rf)}
	if eventsPath != "" {
		ef, err := os.Create(eventsPath)
		if err != nil {
			rf.Close()
			return nil, err
		}
		fw.evtFile = ef
		fw.eventEnc = json.NewEncoder(ef)
	}
	return fw, nil
}

// Write logs a single record.
func (f *FileWriter) Write(rec ledger.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recEnc.Encode(rec)
}

// WriteBatch logs multiple records.
func (f *FileWriter) WriteBatch(recs []ledger.Record) error {
	for _, r := range recs {
		if err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvent logs a search event, if enabled.
func (f *FileWriter) WriteEvent(e Event) error {
	if f.eventEnc == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.eventEnc.Encode(e)
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	if f.recFile != nil {
		if e := f.recFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.evtFile != nil {
		if e := f.evtFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
