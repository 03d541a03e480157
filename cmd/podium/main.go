package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/podiumlabs/podium/internal/config"
	"github.com/podiumlabs/podium/internal/core"
	"github.com/podiumlabs/podium/internal/debate"
	"github.com/podiumlabs/podium/internal/export"
	"github.com/podiumlabs/podium/internal/llm"
	"github.com/podiumlabs/podium/internal/storage"
	"github.com/podiumlabs/podium/internal/topic"
	"github.com/podiumlabs/podium/web/handlers"
)

var (
	configPath string
	dbPath     string
	debugFlag  bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "podium",
	Short: "LLM debate orchestration",
	Long: `podium orchestrates debates between LLM-backed pro and con agents,
moderated and fact-checked by additional LLM calls, with the outcome
scored by an impartial judge.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: ~/.podium/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: ~/.podium/podium.db)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(topicCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
}

func setupLogging(json bool) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debugFlag {
		opts.Level = slog.LevelDebug
	}
	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = storage.DefaultDBPath()
	}
	return cfg, nil
}

// buildEngine wires the full stack: topic chain, retrying completion
// client, sqlite sink and the debate engine.
func buildEngine(cfg *config.Config) (*debate.Engine, storage.Sink, topic.Source, error) {
	client := llm.NewClient(cfg.ClientConfig())
	if err := client.Validate(); err != nil {
		return nil, nil, nil, err
	}
	completer := llm.WithRetry(client, cfg.RetryPolicy())

	cache := &topic.Cache{Path: cfg.Topics.CachePath}
	topics := topic.NewChain(
		cache,
		&topic.Kialo{URL: cfg.Topics.KialoURL, Cache: cache},
		&topic.Static{},
	)

	sink, err := storage.NewSQLiteSink(cfg.Storage.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}
	if err := sink.Initialize(); err != nil {
		sink.Close()
		return nil, nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	eng := debate.New(topics, completer, sink, &topic.Wikipedia{}, cfg.EngineConfig())
	if err := eng.Restore(); err != nil {
		slog.Warn("Failed to restore persisted debates", "error", err)
	}

	return eng, sink, topics, nil
}

var topicHintFlag string

func init() {
	newCmd.Flags().StringVarP(&topicHintFlag, "hint", "H", "", "Topic hint (e.g. \"climate\")")
}

// new command - start a debate and stream its turns
var newCmd = &cobra.Command{
	Use:   "new [topic hint]",
	Short: "Start a new debate",
	Long: `Start a new debate and follow it from the terminal.

Examples:
  podium new
  podium new climate
  podium new --hint "social media"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(false)

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		eng, sink, _, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer sink.Close()

		hint := topicHintFlag
		if len(args) > 0 {
			hint = strings.Join(args, " ")
		}

		id, err := eng.StartDebate(cmd.Context(), hint)
		if err != nil {
			return fmt.Errorf("failed to start debate: %w", err)
		}

		d, err := eng.GetStatus(id)
		if err != nil {
			return err
		}
		if d.Status == core.StatusFailed {
			return fmt.Errorf("debate failed: %s", d.FailureReason)
		}

		fmt.Printf("\nStarting debate: %s\n", d.Topic)
		fmt.Printf("   Pro: %s | Con: %s\n", d.ProName, d.ConName)
		fmt.Printf("   ID: %s\n\n", d.ID)
		fmt.Println(strings.Repeat("-", 60))

		// Cancel cleanly on interrupt; the engine stops at the next
		// turn boundary.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			fmt.Println("\n\nInterrupted. Requesting cancellation...")
			eng.Cancel(id)
		}()

		return followDebate(cmd.Context(), eng, id)
	},
}

// followDebate polls the engine and prints turns as they appear.
func followDebate(ctx context.Context, eng *debate.Engine, id string) error {
	printed := 0
	for {
		d, err := eng.GetStatus(id)
		if err != nil {
			return err
		}

		for _, t := range d.Transcript[printed:] {
			fmt.Printf("\nTurn %d - %s\n", t.Seq, turnSpeaker(d, t.Role))
			fmt.Println(strings.Repeat("-", 40))
			fmt.Println(t.Content)
		}
		printed = len(d.Transcript)

		if d.Status.Terminal() {
			printOutcome(d)
			return nil
		}

		select {
		case <-time.After(500 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func turnSpeaker(d *core.Debate, role core.Role) string {
	switch role {
	case core.RolePro:
		return d.ProName
	case core.RoleCon:
		return d.ConName
	case core.RoleModerator:
		return "Moderator"
	case core.RoleFactChecker:
		return "Fact Checker"
	}
	return string(role)
}

func printOutcome(d *core.Debate) {
	fmt.Println(strings.Repeat("=", 60))
	if d.Status == core.StatusFailed {
		fmt.Printf("Debate failed: %s\n", d.FailureReason)
		return
	}
	fmt.Println("VERDICT")
	fmt.Println(strings.Repeat("=", 60))
	if d.Verdict == nil {
		fmt.Printf("No verdict: %s\n", d.VerdictNote)
		return
	}
	fmt.Printf("Winner: %s (pro %d / con %d)\n\n",
		d.Verdict.Winner,
		d.Verdict.Scores[core.RolePro],
		d.Verdict.Scores[core.RoleCon],
	)
	fmt.Println(d.Verdict.Rationale)
	if d.StorageWarning != "" {
		fmt.Printf("\nWarning: %s\n", d.StorageWarning)
	}
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all debates",
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(false)
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sink, err := storage.NewSQLiteSink(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer sink.Close()
		if err := sink.Initialize(); err != nil {
			return err
		}

		debates, err := sink.List(50, 0)
		if err != nil {
			return err
		}
		if len(debates) == 0 {
			fmt.Println("No debates found. Start one with: podium new")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTOPIC\tSTATUS\tTURNS\tCREATED")
		for _, d := range debates {
			shortTopic := d.Topic
			if len(shortTopic) > 40 {
				shortTopic = shortTopic[:37] + "..."
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				d.ID[:8],
				shortTopic,
				d.Status,
				d.TurnCount,
				d.CreatedAt.Format("2006-01-02 15:04"),
			)
		}
		return w.Flush()
	},
}

// show command
var showCmd = &cobra.Command{
	Use:   "show <debate-id>",
	Short: "Show a debate transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(false)
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sink, err := storage.NewSQLiteSink(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer sink.Close()
		if err := sink.Initialize(); err != nil {
			return err
		}

		d, err := sink.Get(args[0])
		if err != nil {
			return err
		}
		if d == nil {
			return core.ErrNotFound
		}

		fmt.Printf("Topic: %s\n", d.Topic)
		fmt.Printf("Status: %s\n", d.Status)
		fmt.Printf("Pro: %s | Con: %s\n", d.ProName, d.ConName)
		for _, t := range d.Transcript {
			fmt.Printf("\nTurn %d - %s\n", t.Seq, turnSpeaker(d, t.Role))
			fmt.Println(strings.Repeat("-", 40))
			fmt.Println(t.Content)
		}
		printOutcome(d)
		return nil
	},
}

// cancel command
var cancelCmd = &cobra.Command{
	Use:   "cancel <debate-id>",
	Short: "Cancel a running debate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		url := fmt.Sprintf("http://localhost:%d/api/debates/%s/cancel", cfg.Server.Port, args[0])
		resp, err := http.Post(url, "application/json", nil)
		if err != nil {
			return fmt.Errorf("cannot reach server: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return core.ErrNotFound
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("cancel failed with status %d", resp.StatusCode)
		}
		fmt.Println("Cancellation requested.")
		return nil
	},
}

// topic command
var topicCmd = &cobra.Command{
	Use:   "topics [hint]",
	Short: "Suggest a debate topic",
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(false)
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cache := &topic.Cache{Path: cfg.Topics.CachePath}
		topics := topic.NewChain(
			cache,
			&topic.Kialo{URL: cfg.Topics.KialoURL, Cache: cache},
			&topic.Static{},
		)
		hint := strings.Join(args, " ")
		t, err := topics.Topic(cmd.Context(), hint)
		if err != nil {
			return err
		}
		fmt.Println(t)
		return nil
	},
}

var exportFormatFlag string

func init() {
	exportCmd.Flags().StringVarP(&exportFormatFlag, "format", "f", "markdown", "Export format (markdown, json, pdf)")
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export <debate-id>",
	Short: "Export a debate transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(false)
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sink, err := storage.NewSQLiteSink(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer sink.Close()
		if err := sink.Initialize(); err != nil {
			return err
		}

		d, err := sink.Get(args[0])
		if err != nil {
			return err
		}
		if d == nil {
			return core.ErrNotFound
		}

		exporter, err := export.GetExporter(export.Format(exportFormatFlag))
		if err != nil {
			return err
		}

		filename := export.GenerateFilename(d, exporter.FileExtension())
		f, err := os.Create(filename)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := exporter.Export(d, f); err != nil {
			return err
		}
		fmt.Printf("Exported to %s\n", filename)
		return nil
	},
}

var portFlag int

func init() {
	serveCmd.Flags().IntVarP(&portFlag, "port", "p", 0, "Server port (default from config)")
}

// serve command - run the HTTP API server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the debate API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(true)

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if portFlag > 0 {
			cfg.Server.Port = portFlag
		}

		eng, sink, topics, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer sink.Close()

		h := handlers.New(eng, topics)
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		server := &http.Server{
			Addr:    addr,
			Handler: h.Router(),
		}

		go func() {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			<-sigCh
			slog.Info("Shutting down...")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(ctx)
		}()

		slog.Info("Starting podium server", "url", fmt.Sprintf("http://localhost%s", addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}
