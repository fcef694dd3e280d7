package sink

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"uav-testgen/internal/ledger"
)

// ReplayRecords re-sends fitness records from a FileWriter JSONL stream to writer. A speed > 0
// reproduces the original spacing divided by speed; speed <= 0 sends without delay.
func ReplayRecords(ctx context.Context, r io.Reader, writer FitnessWriter, speed float64) (int, error) {
	dec := json.NewDecoder(r)
	var prev time.Time
	n := 0
	for {
		var rec ledger.Record
		if err := dec.Decode(&rec); err != nil {
			if err == io.EOF {
				return n, nil
			}
			return n, err
		}
		if !prev.IsZero() && speed > 0 {
			diff := rec.Timestamp.Sub(prev)
			if speed != 1 {
				diff = time.Duration(float64(diff) / speed)
			}
			if diff > 0 {
				select {
				case <-ctx.Done():
					return n, ctx.Err()
				case <-time.After(diff):
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := writer.Write(rec); err != nil {
			return n, err
		}
		n++
		prev = rec.Timestamp
	}
}

// ReplayRecordsFile opens path and replays its records.
func ReplayRecordsFile(ctx context.Context, path string, writer FitnessWriter, speed float64) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return ReplayRecords(ctx, f, writer, speed)
}
