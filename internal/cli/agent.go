package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/amparo-saude/amparo/internal/config"
	"github.com/amparo-saude/amparo/internal/logger"
	"github.com/amparo-saude/amparo/internal/tracing"
	"github.com/amparo-saude/amparo/pkg/agent"
	"github.com/amparo-saude/amparo/pkg/gateway"
	"github.com/amparo-saude/amparo/pkg/llm"
	"github.com/amparo-saude/amparo/pkg/schema"
	"github.com/amparo-saude/amparo/pkg/store"
	"github.com/spf13/cobra"
)

// defaultPorts assigns each domain its gateway port.
var defaultPorts = map[string]int{
	agent.DomainScheduling:   3001,
	agent.DomainCancellation: 3002,
	agent.DomainExam:         3003,
	agent.DomainPayment:      3004,
}

var (
	agentDomain string
	agentPort   int
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run one domain agent gateway",
	Long: `Run a single domain agent as an HTTP gateway. The domain selects
the tool set, system prompt, and default port (scheduling 3001,
cancellation 3002, exam 3003, payment 3004).`,
	RunE: runAgent,
}

func init() {
	agentCmd.Flags().StringVar(&agentDomain, "domain", "", "agent domain: scheduling, cancellation, payment or exam")
	agentCmd.Flags().IntVar(&agentPort, "port", 0, "listen port (default depends on domain)")
	_ = agentCmd.MarkFlagRequired("domain")

	rootCmd.AddCommand(agentCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	domain := strings.ToLower(strings.TrimSpace(agentDomain))
	port, ok := defaultPorts[domain]
	if !ok {
		return fmt.Errorf("unknown domain: %s", agentDomain)
	}
	if agentPort > 0 {
		port = agentPort
	}

	conf, err := config.Load()
	if err != nil {
		return err
	}
	if err := conf.Validate(); err != nil {
		return err
	}

	log, err := newLogger(conf)
	if err != nil {
		return err
	}
	defer log.Close()
	zlog := log.GetZerolog().With().Str("service", domain).Logger()

	if err := tracing.InitOpenTelemetry("amparo-" + domain); err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracing.ShutdownOpenTelemetry(ctx)
	}()

	st, err := store.New(store.Config{DataDir: conf.DataDir, Logger: zlog})
	if err != nil {
		return err
	}

	provider, err := llm.NewProvider(llm.Credentials{
		Provider:        conf.Provider,
		AzureEndpoint:   conf.AzureOpenAIEndpoint,
		AzureAPIKey:     conf.AzureOpenAIKey,
		AzureDeployment: conf.AzureDeployment,
		AnthropicAPIKey: conf.AnthropicAPIKey,
		AnthropicModel:  conf.AnthropicModel,
	})
	if err != nil {
		return err
	}

	promptPath := filepath.Join(conf.ConfigDir, "prompts", domain+".txt")
	prompt, err := readPrompt(promptPath)
	if err != nil {
		return err
	}

	tools, err := schema.LoadAgentTools(filepath.Join(conf.ConfigDir, "schemas", domain+".json"))
	if err != nil {
		return err
	}

	ag, err := agent.NewDomain(domain, agent.DomainDeps{
		Store:        st,
		Provider:     provider,
		SystemPrompt: prompt,
		Tools:        tools,
		Logger:       zlog,
	})
	if err != nil {
		return err
	}

	reloader, err := agent.NewPromptReloader(ag, promptPath, zlog)
	if err != nil {
		return err
	}
	if err := reloader.Start(); err != nil {
		return err
	}
	defer reloader.Stop()

	if conf.BackupSchedule != "" {
		backup, err := store.NewBackup(store.BackupConfig{
			Store:    st,
			Dir:      conf.BackupDir,
			Schedule: conf.BackupSchedule,
			Logger:   zlog,
		})
		if err != nil {
			return err
		}
		backup.Start()
		defer backup.Stop()
	}

	server, err := gateway.NewServer(gateway.Config{
		Port:   port,
		Agent:  ag,
		Logger: zlog,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		zlog.Info().Str("signal", sig.String()).Msg("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
}

func newLogger(conf *config.Config) (*logger.Logger, error) {
	level := conf.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	return logger.New(logger.Config{
		Level:   level,
		File:    conf.LogFile,
		Console: true,
		Pretty:  conf.LogPretty,
	})
}

func readPrompt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt %s: %w", path, err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("prompt file %s is empty", path)
	}
	return prompt, nil
}
