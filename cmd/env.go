package main

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/connections-cli/internal/archive"
	"github.com/sells-group/connections-cli/internal/contacts"
	"github.com/sells-group/connections-cli/internal/ledger"
	"github.com/sells-group/connections-cli/internal/model"
	"github.com/sells-group/connections-cli/internal/poller"
	"github.com/sells-group/connections-cli/pkg/openai"
)

// env bundles the store and the lifecycle client for commands that need both.
type env struct {
	Store  ledger.Store
	Client openai.Client
}

func (e *env) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv opens the ledger store per config and builds the API client.
func initEnv(ctx context.Context) (*env, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	if cfg.OpenAI.Key == "" {
		_ = st.Close()
		return nil, eris.New("missing API key: set CONNECTIONS_OPENAI_KEY or openai.key in config.yaml")
	}

	client := openai.NewClient(cfg.OpenAI.Key,
		openai.WithBaseURL(cfg.OpenAI.BaseURL),
		openai.WithRateLimit(cfg.OpenAI.RateLimitRPS, 5),
	)
	return &env{Store: st, Client: client}, nil
}

// openStore opens just the ledger store (for commands that stay local).
func openStore(ctx context.Context) (ledger.Store, error) {
	var (
		st  ledger.Store
		err error
	)
	switch cfg.Store.Driver {
	case "", "sqlite":
		st, err = ledger.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		st, err = ledger.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// newScheduler builds a poll scheduler from config.
func newScheduler(e *env, extra ...poller.Option) *poller.Scheduler {
	opts := []poller.Option{
		poller.WithInterval(time.Duration(cfg.Poll.IntervalSecs) * time.Second),
		poller.WithConcurrency(cfg.Poll.Concurrency),
	}
	opts = append(opts, extra...)
	return poller.New(e.Store, e.Client, opts...)
}

// loadContacts reads contacts from a ZIP export or a bare CSV file. Exactly
// one of zipPath/csvPath must be set.
func loadContacts(zipPath, csvPath string) ([]model.Contact, error) {
	switch {
	case zipPath != "" && csvPath != "":
		return nil, eris.New("pass --zip or --csv, not both")
	case zipPath != "":
		text, err := archive.ExtractConnectionsCSV(zipPath)
		if err != nil {
			return nil, err
		}
		return contacts.ParseConnections(text)
	case csvPath != "":
		raw, err := os.ReadFile(csvPath)
		if err != nil {
			return nil, eris.Wrap(err, "read csv")
		}
		return contacts.ParseConnections(string(raw))
	default:
		return nil, eris.New("pass --zip or --csv")
	}
}

// shortID trims a job id for log-friendly display.
func shortID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:16] + "…"
}
