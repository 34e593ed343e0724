package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/powerflow-sync/powerflow/internal/config"
	"github.com/powerflow-sync/powerflow/internal/ledger"
	"github.com/powerflow-sync/powerflow/internal/logging"
	"github.com/powerflow-sync/powerflow/internal/notion"
	"github.com/powerflow-sync/powerflow/internal/pocket"
	"github.com/powerflow-sync/powerflow/internal/sync"
)

// services bundles the clients a pass needs.
type services struct {
	cfg    *config.Config
	pocket *pocket.Client
	notion *notion.Client
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// logOutput is where component loggers write for interactive commands.
func logOutput() io.Writer {
	if verbose {
		return os.Stderr
	}
	return io.Discard
}

func newPocketClient(cfg *config.Config, w io.Writer) (*pocket.Client, error) {
	key := cfg.PocketAPIKey()
	if key == "" {
		return nil, fmt.Errorf("no Pocket API key: set %s or run `powerflow setup`", config.PocketKeyEnv)
	}
	pc := pocket.DefaultConfig(key)
	if cfg.Pocket.BaseURL != "" {
		pc.BaseURL = cfg.Pocket.BaseURL
	}
	pc.Logger = logging.New(w, "pocket")
	return pocket.New(pc)
}

func newNotionClient(cfg *config.Config, w io.Writer) (*notion.Client, error) {
	key := cfg.NotionAPIKey()
	if key == "" {
		return nil, fmt.Errorf("no Notion API key: set %s or run `powerflow setup`", config.NotionKeyEnv)
	}
	nc := notion.DefaultConfig(key)
	if cfg.Notion.BaseURL != "" {
		nc.BaseURL = cfg.Notion.BaseURL
	}
	nc.Logger = logging.New(w, "notion")
	return notion.New(nc)
}

func newServices(cfg *config.Config, w io.Writer) (*services, error) {
	pc, err := newPocketClient(cfg, w)
	if err != nil {
		return nil, err
	}
	nc, err := newNotionClient(cfg, w)
	if err != nil {
		return nil, err
	}
	return &services{cfg: cfg, pocket: pc, notion: nc}, nil
}

func (s *services) engine(recorder sync.Recorder, logger *log.Logger) (*sync.Engine, error) {
	ec := sync.DefaultEngineConfig()
	ec.Recorder = recorder
	ec.Logger = logger
	return sync.NewEngineWithConfig(s.cfg, s.pocket, s.notion, ec)
}

// openLedger opens the history database. Failure is reported and yields
// nil: history is informational and never blocks a sync.
func openLedger() *ledger.Ledger {
	l, err := ledger.Open(config.LedgerPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: sync history unavailable: %v\n", err)
		return nil
	}
	return l
}

// recorderFor avoids handing the engine a typed nil.
func recorderFor(l *ledger.Ledger) sync.Recorder {
	if l == nil {
		return nil
	}
	return l
}
