package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"flowscrape/internal/artifacts"
	"flowscrape/internal/config"
	"flowscrape/internal/journal"
	"flowscrape/internal/pipeline"
	"flowscrape/internal/report"
	"flowscrape/internal/scrapers/flowagility"
	"flowscrape/lib/browser"
	"flowscrape/lib/configutil"
	"flowscrape/lib/restyutil"
	"flowscrape/lib/retryutil"
)

type stage string

const (
	stageEvents       stage = "events"
	stageInfo         stage = "info"
	stageParticipants stage = "participants"
	stageCSV          stage = "csv"
	stageAll          stage = "all"
)

// the csv stage only reshuffles artifacts already on disk
func (s stage) needsBrowser() bool {
	return s != stageCSV
}

type runner struct {
	cfg     config.Config
	store   *artifacts.Store
	journal *journal.Journal
	run     *journal.Run
	orch    *pipeline.Orchestrator
}

func runStage(ctx context.Context, st stage) error {
	cfg := config.FromEnv()
	if limit > 0 {
		cfg.LimitEvents = limit
	}
	if outDir != "" {
		cfg.OutDir = outDir
	}

	store, err := artifacts.NewStore(cfg.OutDir)
	if err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	r := &runner{cfg: cfg, store: store}

	if st.needsBrowser() {
		if j, err := journal.Open(ctx, cfg.JournalDB); err != nil {
			slog.WarnContext(ctx, "run journal unavailable", "error", err)
		} else {
			defer j.Close()
			r.journal = j
			if run, err := j.StartRun(ctx, string(st)); err != nil {
				slog.WarnContext(ctx, "could not start journal run", "error", err)
			} else {
				r.run = run
			}
		}

		closeSession, err := r.openScraper(ctx)
		if err != nil {
			return err
		}
		defer closeSession()
	}

	return r.execute(ctx, st)
}

// openScraper probes the platform, starts Chrome and signs in. The
// returned func tears the browser down.
func (r *runner) openScraper(ctx context.Context) (func(), error) {
	heuristics, err := configutil.LoadWithDefaults("flowagility.json5", flowagility.DefaultHeuristics())
	if err != nil {
		return nil, fmt.Errorf("read heuristics config: %w", err)
	}

	if verbose {
		if out, err := restyutil.NewFilesystemOutput(".dev/resty/flowagility"); err != nil {
			slog.Warn("could not prepare http capture directory", "error", err)
		} else {
			flowagility.SetRestyInstrumentOutput(out)
		}
	}

	probe, err := flowagility.NewProbe(flowagility.DefaultBaseURL, r.cfg.UserAgent)
	if err != nil {
		return nil, err
	}
	if err := probe.Check(ctx); err != nil {
		return nil, err
	}

	session, err := browser.NewSession(ctx, browser.Options{
		Headless:  r.cfg.Headless,
		Incognito: r.cfg.Incognito,
		UserAgent: r.cfg.UserAgent,
		ExecPath:  r.cfg.ChromeBin,
	})
	if err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}

	scraper := flowagility.NewScraper(flowagility.Options{
		Session:    session,
		Email:      r.cfg.Email,
		Password:   r.cfg.Password,
		Heuristics: &heuristics,
		MaxScrolls: r.cfg.MaxScrolls,
		ScrollWait: r.cfg.ScrollWait,
	})

	err = retryutil.Do(ctx, 2, 2*time.Second, func() error {
		return scraper.Login(ctx)
	})
	if err != nil {
		session.Close()
		return nil, err
	}

	opts := pipeline.Options{
		Scraper:  scraper,
		Config:   r.cfg,
		Recorder: r.recorder(),
	}
	if r.cfg.DebugDumpHTML {
		opts.DumpUnresolved = func(eventID, pageHTML string) {
			if err := r.store.DumpDebugHTML(eventID, pageHTML); err != nil {
				slog.Warn("could not dump participants page", "event", eventID, "error", err)
			}
		}
	}
	r.orch = pipeline.New(opts)

	return func() {
		if err := session.Close(); err != nil {
			slog.Warn("browser shutdown", "error", err)
		}
	}, nil
}

func (r *runner) execute(ctx context.Context, st stage) error {
	switch st {
	case stageEvents:
		if err := r.store.Clean(); err != nil {
			slog.WarnContext(ctx, "could not clean the output directory", "error", err)
		}
		events, err := r.orch.Discover(ctx)
		if err != nil {
			return err
		}
		if _, err := r.store.WriteEvents(events); err != nil {
			return err
		}
		r.finishRun(ctx, len(events), 0)
		return nil

	case stageInfo:
		events, err := r.store.ReadNewestEvents()
		if err != nil {
			return err
		}
		detailed, err := r.enrich(ctx, limited(events, r.cfg.LimitEvents))
		if err != nil {
			return err
		}
		summary := report.Summarize(detailed)
		r.finishRun(ctx, len(detailed), summary.TotalParticipants)
		report.Render(os.Stdout, summary, r.history(ctx))
		return nil

	case stageParticipants:
		detailed, err := r.store.ReadNewestDetailed()
		if err != nil {
			return err
		}
		capped := limited(detailed, r.cfg.LimitEvents)
		participants, err := r.collect(ctx, capped)
		if err != nil {
			return err
		}
		r.finishRun(ctx, len(capped), len(participants))
		return nil

	case stageCSV:
		return r.export()

	case stageAll:
		if err := r.store.Clean(); err != nil {
			slog.WarnContext(ctx, "could not clean the output directory", "error", err)
		}
		events, err := r.orch.Discover(ctx)
		if err != nil {
			return err
		}
		if _, err := r.store.WriteEvents(events); err != nil {
			return err
		}
		detailed, err := r.enrich(ctx, events)
		if err != nil {
			return err
		}
		participants, err := r.collect(ctx, detailed)
		if err != nil {
			return err
		}
		if err := r.export(); err != nil {
			return err
		}
		summary := report.Summarize(detailed)
		r.finishRun(ctx, len(detailed), len(participants))
		report.Render(os.Stdout, summary, r.history(ctx))
		r.mail(ctx, summary)
		return nil
	}
	return fmt.Errorf("unknown stage %q", st)
}

func limited[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

func (r *runner) enrich(ctx context.Context, events []flowagility.Event) ([]flowagility.DetailedEvent, error) {
	detailed := r.orch.EnrichEvents(ctx, events)
	if _, err := r.store.WriteDetailed(detailed); err != nil {
		return nil, err
	}
	return detailed, nil
}

func (r *runner) collect(ctx context.Context, detailed []flowagility.DetailedEvent) ([]flowagility.Participant, error) {
	participants := r.orch.CollectRosters(ctx, detailed)
	if _, err := r.store.WriteParticipants(participants); err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *runner) export() error {
	csvPath, err := r.store.WriteCSV()
	if err != nil {
		return err
	}
	bundlePath, err := r.store.WriteFinalBundle()
	if err != nil {
		return err
	}
	slog.Info("export complete", "csv", csvPath, "bundle", bundlePath)
	return nil
}

func (r *runner) recorder() pipeline.Recorder {
	recs := multiRecorder{processedFile{r.store}}
	if r.run != nil {
		recs = append(recs, r.run)
	}
	return recs
}

// multiRecorder fans one outcome out to the journal and the
// processed-events side file.
type multiRecorder []pipeline.Recorder

func (m multiRecorder) RecordEvent(ctx context.Context, ev flowagility.DetailedEvent, took time.Duration) {
	for _, rec := range m {
		rec.RecordEvent(ctx, ev, took)
	}
}

type processedFile struct {
	store *artifacts.Store
}

func (p processedFile) RecordEvent(ctx context.Context, ev flowagility.DetailedEvent, took time.Duration) {
	if err := p.store.AppendProcessed(ev); err != nil {
		slog.WarnContext(ctx, "could not update processed-events file", "error", err)
	}
}

func (r *runner) finishRun(ctx context.Context, events, participants int) {
	if r.run == nil {
		return
	}
	if err := r.run.Finish(ctx, events, participants); err != nil {
		slog.WarnContext(ctx, "could not finish journal run", "error", err)
	}
}

func (r *runner) history(ctx context.Context) []journal.RunInfo {
	if r.journal == nil {
		return nil
	}
	history, err := r.journal.History(ctx, 5)
	if err != nil {
		slog.WarnContext(ctx, "could not read run history", "error", err)
		return nil
	}
	return history
}

func (r *runner) mail(ctx context.Context, summary report.Summary) {
	if !r.cfg.Report.Enabled() {
		return
	}
	if err := report.Send(r.cfg.Report, summary); err != nil {
		slog.WarnContext(ctx, "could not send the summary mail", "error", err)
		return
	}
	slog.InfoContext(ctx, "summary mail sent", "recipients", len(r.cfg.Report.To))
}
