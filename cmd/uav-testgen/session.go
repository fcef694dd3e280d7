package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"uav-testgen/internal/config"
	"uav-testgen/internal/generator"
	"uav-testgen/internal/logging"
	"uav-testgen/internal/search"
	"uav-testgen/internal/simulator"
	"uav-testgen/internal/sink"
	"uav-testgen/internal/store"
)

// sessionFlags are the flags shared by the campaign and seeds commands.
type sessionFlags struct {
	printOnly  bool
	noTUI      bool
	campaignID string
	mission    string
	outputDir  string
	storeKind  string
	budget     int
}

// session holds everything one generation run needs. close releases it in reverse order.
type session struct {
	cfg      *config.Campaign
	dir      string
	log      *slog.Logger
	gen      generator.Generator
	sim      simulator.Simulator
	store    store.Store
	sink     search.Sink
	tui      *sink.TUIWriter
	closers  []func()
	started  time.Time
	campaign *search.Campaign
}

func (f *sessionFlags) apply(cfg *config.Campaign) error {
	if f.campaignID != "" {
		cfg.CampaignID = f.campaignID
	}
	if cfg.CampaignID == "" {
		cfg.CampaignID = uuid.NewString()[:8]
	}
	if f.mission != "" {
		m, err := lookupMission(f.mission)
		if err != nil {
			return err
		}
		cfg.Mission = m
	}
	if f.outputDir != "" {
		cfg.Output.Dir = f.outputDir
	}
	if f.storeKind != "" {
		cfg.Output.Store = f.storeKind
	}
	if f.budget > 0 {
		cfg.Search.Budget = f.budget
	}
	return nil
}

func newSession(ctx context.Context, cfg *config.Campaign, flags sessionFlags) (*session, error) {
	if err := flags.apply(cfg); err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, dir: filepath.Join(cfg.Output.Dir, cfg.CampaignID), started: time.Now()}
	if err := s.open(ctx, flags); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *session) open(ctx context.Context, flags sessionFlags) error {
	cfg := s.cfg
	terminal := stdoutIsTerminal()
	useTUI := terminal && !flags.printOnly && !flags.noTUI

	runLog, err := logging.OpenRunLog(s.dir, "campaign", s.started)
	if err != nil {
		return err
	}
	s.closers = append(s.closers, func() { runLog.Close() })
	var logOut io.Writer = io.MultiWriter(os.Stderr, runLog)
	if useTUI {
		// The TUI owns the terminal.
		logOut = runLog
	}
	s.log = newLogger(cfg, logOut).With("campaign", cfg.CampaignID)

	if cfg.Output.Store == "sqlite" && cfg.Output.SQLitePath == "" {
		cfg.Output.SQLitePath = filepath.Join(cfg.Output.Dir, "campaigns.db")
	}
	st, err := store.NewStore(cfg.Output.Store, cfg.Output.SQLitePath)
	if err != nil {
		return err
	}
	if err := st.Init(ctx); err != nil {
		return fmt.Errorf("init %s store: %w", cfg.Output.Store, err)
	}
	s.store = st
	s.closers = append(s.closers, func() { _ = store.CloseIfSupported(st) })

	out, tui, cleanup, err := newWriters(cfg, writerOptions{
		PrintOnly:   flags.printOnly,
		Terminal:    terminal,
		NoTUI:       flags.noTUI,
		RecordsPath: filepath.Join(s.dir, "records.jsonl"),
		EventsPath:  filepath.Join(s.dir, "events.jsonl"),
		Store:       st,
		CampaignID:  cfg.CampaignID,
	})
	if err != nil {
		return err
	}
	s.sink, s.tui = out, tui
	s.closers = append(s.closers, cleanup)

	tokenPath := cfg.Generator.TokenLog
	if tokenPath == "" {
		tokenPath = filepath.Join(s.dir, "tokens.csv")
	}
	tokens, err := generator.OpenTokenLedger(tokenPath)
	if err != nil {
		return err
	}
	s.gen = generator.NewRetrying(generator.NewClient(cfg.Generator, tokens), cfg.Generator.MaxRetries, cfg.Generator.BackoffFactor)

	if s.sim, err = simulator.New(cfg.Simulator, s.dir, cfg.Output.Plots); err != nil {
		return err
	}
	s.campaign = search.NewCampaign(cfg, s.gen, s.sim, s.store, s.sink, s.dir)
	s.log.Info("session ready", "dir", s.dir, "mission", cfg.Mission.Name, "store", cfg.Output.Store,
		"simulator", cfg.Simulator.Kind, "model", cfg.Generator.Model)
	return nil
}

func (s *session) withLogger(ctx context.Context) context.Context {
	return logging.NewContext(ctx, s.log)
}

func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
