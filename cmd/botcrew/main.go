package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Kartavya-AI/ai-bot/internal/app"
	"github.com/Kartavya-AI/ai-bot/internal/config"
	"github.com/Kartavya-AI/ai-bot/internal/logging"
	"github.com/Kartavya-AI/ai-bot/internal/tools"
)

var (
	configFile string
	verbose    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "botcrew",
		Short: "BotCrew - multi-agent question answering over documents, web search and memory",
		Long: `BotCrew answers questions with a crew of LLM agents that recall user memory,
search an indexed document collection and the web, and compose a final reply.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "configuration file path (JSON or YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	ingestCmd := &cobra.Command{
		Use:   "ingest [path]",
		Short: "Chunk documents and upsert them into the vector index",
		Long:  `Extract text from a file or every supported file under a directory, split it into chunks and upsert the chunks into the configured vector index.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}

	askCmd := &cobra.Command{
		Use:   "ask [query]",
		Short: "Answer a query with the agent crew",
		Args:  cobra.ExactArgs(1),
		RunE:  runAsk,
	}
	askCmd.Flags().StringP("sender", "s", "", "sender id used for memory (defaults to memory.default_user_id)")

	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the document index",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}
	searchCmd.Flags().IntP("top-k", "k", 0, "number of hits (defaults to vector.top_k)")

	memoryCmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect and add long-term memories",
	}
	memorySearchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search a user's memories",
		Args:  cobra.ExactArgs(1),
		RunE:  runMemorySearch,
	}
	memoryAddCmd := &cobra.Command{
		Use:   "add [text]",
		Short: "Store a message in a user's memory",
		Args:  cobra.ExactArgs(1),
		RunE:  runMemoryAdd,
	}
	for _, c := range []*cobra.Command{memorySearchCmd, memoryAddCmd} {
		c.Flags().StringP("user", "u", "", "user id (defaults to memory.default_user_id)")
	}
	memoryAddCmd.Flags().String("role", "user", "message role")
	memoryCmd.AddCommand(memorySearchCmd, memoryAddCmd)

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	configInitCmd := &cobra.Command{
		Use:   "init [filename]",
		Short: "Create a default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConfigInit,
	}
	configValidateCmd := &cobra.Command{
		Use:   "validate [filename]",
		Short: "Validate a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfigValidate,
	}
	configShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
	configCmd.AddCommand(configInitCmd, configValidateCmd, configShowCmd)

	rootCmd.AddCommand(serveCmd, ingestCmd, askCmd, searchCmd, memoryCmd, configCmd)
	return rootCmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// setup loads the configuration and builds the application. The returned
// cleanup closes the stores and the log file.
func setup(ctx context.Context) (*app.App, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	a := app.New(ctx, cfg, logger)
	return a, func() {
		_ = a.Close()
		_ = closer.Close()
	}, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	return a.Server().Run(ctx)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	pipeline, err := a.Pipeline()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if verbose {
		fmt.Fprintf(out, "Starting ingest of: %s\n", args[0])
	}
	stats, err := pipeline.Run(ctx, args[0])
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	fmt.Fprintf(out, "Ingest completed in %v\n", stats.ProcessingTime)
	fmt.Fprintf(out, "Files: %d (processed %d, failed %d)\n", stats.TotalFiles, stats.ProcessedFiles, stats.FailedFiles)
	fmt.Fprintf(out, "Chunks: %d\n", stats.TotalChunks)
	fmt.Fprintf(out, "Upserted: %d\n", stats.Upserted)
	fmt.Fprintf(out, "Failed records: %d\n", stats.FailedRecords)
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if a.Crew == nil {
		return fmt.Errorf("BotCrew not initialized: %w", a.Err(app.ComponentCrew))
	}

	sender, _ := cmd.Flags().GetString("sender")
	if sender == "" {
		sender = a.Config.Memory.DefaultUserID
	}
	query := strings.TrimSpace(args[0])

	if a.Config.Server.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Config.Server.QueryTimeout)
		defer cancel()
	}

	output, err := a.Crew.Kickoff(ctx, map[string]string{"query": query, "user_id": sender})
	if err != nil {
		return fmt.Errorf("Error processing query: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, output.String())
	if verbose {
		for _, t := range output.Tasks {
			fmt.Fprintf(out, "\n[%s] %s\n%s\n", t.Name, t.Agent, t.Raw)
		}
		fmt.Fprintf(out, "\nTokens: %d, duration: %v\n", output.Usage.TotalTokens, output.Duration)
	}

	if a.History != nil {
		if _, err := a.History.AddToHistory(ctx, []map[string]string{
			{"role": "user", "content": query},
			{"role": "assistant", "content": output.String()},
		}, sender); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to store conversation")
		}
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if a.Vector == nil {
		return fmt.Errorf("vector store unavailable: %w", a.Err(app.ComponentVector))
	}
	topK, _ := cmd.Flags().GetInt("top-k")
	if topK <= 0 {
		topK = a.Config.Vector.TopK
	}

	return runTool(ctx, cmd.OutOrStdout(), a.Tools, "search_documents", map[string]interface{}{
		"query": args[0],
		"top_k": topK,
	})
}

func runMemorySearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if a.Memory == nil {
		return fmt.Errorf("memory store unavailable: %w", a.Err(app.ComponentMemory))
	}
	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		user = a.Config.Memory.DefaultUserID
	}

	return runTool(ctx, cmd.OutOrStdout(), a.Tools, "get_from_memory", map[string]interface{}{
		"request_body": map[string]interface{}{"query": args[0], "user_id": user},
	})
}

func runMemoryAdd(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if a.History == nil {
		return fmt.Errorf("memory store unavailable: %w", a.Err(app.ComponentMemory))
	}
	user, _ := cmd.Flags().GetString("user")
	role, _ := cmd.Flags().GetString("role")

	msg, err := a.History.AddToHistory(ctx, map[string]string{"role": role, "content": args[0]}, user)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}

// runTool executes a registered tool and prints its result
func runTool(ctx context.Context, out io.Writer, registry *tools.Registry, name string, data map[string]interface{}) error {
	result, err := registry.Execute(ctx, &tools.ToolInput{Name: name, Data: data})
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("%s", result.Error)
	}
	if result.Data == nil {
		fmt.Fprintln(out, result.Content())
		return nil
	}
	formatted, err := json.MarshalIndent(result.Data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format result: %w", err)
	}
	fmt.Fprintln(out, string(formatted))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	filename := "botcrew-config.json"
	if len(args) > 0 {
		filename = args[0]
	}

	if err := config.DefaultConfig().SaveToFile(filename); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Default configuration saved to: %s\n", filename)
	fmt.Fprintf(cmd.OutOrStdout(), "API keys are read from the environment (GEMINI_API_KEY, PINECONE_API_KEY, SERPER_API_KEY, MEMORY_API_KEY).\n")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration file '%s' is valid!\n", args[0])
	if verbose {
		fmt.Fprintf(cmd.OutOrStdout(), "\nConfiguration details:\n%s\n", cfg.String())
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cfg.String())
	return nil
}
