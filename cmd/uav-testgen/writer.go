package main

import (
	"io"
	"os"

	"golang.org/x/term"

	"uav-testgen/internal/config"
	"uav-testgen/internal/search"
	"uav-testgen/internal/sink"
	"uav-testgen/internal/store"
)

// writerOptions selects the sinks a command feeds.
type writerOptions struct {
	PrintOnly   bool   // JSON lines on STDOUT, no GreptimeDB
	Terminal    bool   // STDOUT is a terminal
	NoTUI       bool   // colored lines instead of the TUI on a terminal
	RecordsPath string // JSONL fitness records, disabled when empty
	EventsPath  string // JSONL search events, disabled when empty
	Store       store.Store
	CampaignID  string
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// newWriters sets up the campaign sink based on flags and config. It returns the sink, the
// TUI writer when one was started and a cleanup function that closes every resource.
func newWriters(cfg *config.Campaign, opts writerOptions) (search.Sink, *sink.TUIWriter, func(), error) {
	var closers []io.Closer
	cleanup := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	console, tui := consoleWriter(cfg, opts)
	if tui != nil {
		closers = append(closers, tui)
	}
	fws := []sink.FitnessWriter{console}
	ews := []sink.EventWriter{console}

	// Local sinks come before the remote one.
	if opts.RecordsPath != "" {
		fw, err := sink.NewFileWriter(opts.RecordsPath, opts.EventsPath)
		if err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		closers = append(closers, fw)
		fws = append(fws, fw)
	}
	if opts.Store != nil {
		fws = append(fws, store.NewRecordWriter(opts.Store, opts.CampaignID))
	}
	if !opts.PrintOnly && cfg.Greptime.Endpoint != "" {
		gw, err := sink.NewGreptimeDBWriter(cfg.Greptime.Endpoint, cfg.Greptime.Database, opts.CampaignID,
			cfg.Greptime.Table, cfg.Greptime.EventTable)
		if err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		fws = append(fws, gw)
	}

	if len(fws) == 1 {
		return console, tui, cleanup, nil
	}
	return sink.NewMultiWriter(fws, ews), tui, cleanup, nil
}

// consoleWriter picks the STDOUT rendering: JSON lines when printing only or when STDOUT is
// not a terminal, otherwise the TUI or colored lines.
func consoleWriter(cfg *config.Campaign, opts writerOptions) (search.Sink, *sink.TUIWriter) {
	switch {
	case opts.PrintOnly || !opts.Terminal:
		return sink.NewJSONStdoutWriter(), nil
	case opts.NoTUI:
		return sink.NewStdoutWriter(cfg, true), nil
	default:
		tui := sink.NewTUIWriter(cfg)
		return tui, tui
	}
}
