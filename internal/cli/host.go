package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/amparo-saude/amparo/internal/config"
	"github.com/amparo-saude/amparo/internal/tracing"
	"github.com/amparo-saude/amparo/pkg/agent"
	"github.com/amparo-saude/amparo/pkg/host"
	"github.com/amparo-saude/amparo/pkg/llm"
	"github.com/amparo-saude/amparo/pkg/schema"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Run the host orchestrator REPL",
	Long: `Run the patient-facing orchestrator as an interactive console. It
routes each message to the right domain agent gateway. The four agent
gateways must already be listening on their ports.`,
	RunE: runHost,
}

func init() {
	rootCmd.AddCommand(hostCmd)
}

func runHost(cmd *cobra.Command, args []string) error {
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
	zlog := log.GetZerolog().With().Str("service", "host").Logger()

	if err := tracing.InitOpenTelemetry("amparo-host"); err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracing.ShutdownOpenTelemetry(ctx)
	}()

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

	prompt, err := readPrompt(filepath.Join(conf.ConfigDir, "prompts", "host.txt"))
	if err != nil {
		return err
	}

	tools, err := schema.LoadHostTools(filepath.Join(conf.ConfigDir, "schemas", "tools_definitions.json"))
	if err != nil {
		return err
	}

	dispatcher := host.NewDispatcher(nil, 0)
	probeGateways(cmd.Context(), dispatcher, zlog)

	orchestrator, err := host.New(host.Config{
		Provider:     provider,
		Dispatcher:   dispatcher,
		SystemPrompt: prompt,
		Tools:        tools,
		Logger:       zlog,
	})
	if err != nil {
		return err
	}

	return repl(cmd.Context(), orchestrator)
}

// probeGateways checks each domain gateway's health endpoint at startup.
// An unreachable gateway is only a warning; its domain degrades at dispatch
// time.
func probeGateways(ctx context.Context, dispatcher *host.Dispatcher, zlog zerolog.Logger) {
	domains := []string{
		agent.DomainScheduling,
		agent.DomainCancellation,
		agent.DomainExam,
		agent.DomainPayment,
	}
	for _, domain := range domains {
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := dispatcher.Health(probeCtx, domain)
		cancel()
		if err != nil {
			zlog.Warn().Str("domain", domain).Err(err).Msg("Agent gateway not responding")
			continue
		}
		zlog.Info().Str("domain", domain).Msg("Agent gateway healthy")
	}
}

// repl reads patient messages from stdin until EOF or "sair".
func repl(ctx context.Context, orchestrator *host.Orchestrator) error {
	out := os.Stdout
	fmt.Fprintln(out, "Assistente virtual de saúde. Digite 'sair' para encerrar.")
	fmt.Fprintln(out)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(out, "Você: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "sair") {
			fmt.Fprintln(out, "Até logo!")
			return nil
		}

		fmt.Fprintln(out, "[*] Processando...")

		reply, err := orchestrator.ProcessTurn(ctx, input)
		if err != nil {
			fmt.Fprintf(out, "Erro: %v\n\n", err)
			continue
		}

		fmt.Fprintf(out, "Assistente: %s\n\n", reply.Text)
	}
}
