// Command migrator is the single entry point for the AKS migration
// pipeline (spec.md §6: "one entry point: execute(process_id, user_id,
// migration_request)"). It builds the collaborator adapters from
// configuration, runs the four-phase pipeline exactly once, persists the
// result, and exits — no HTTP server, no long-running process.
//
// Grounded on the teacher's cmd/tarsy/main.go for the overall shape
// (flag parsing, godotenv loading, structured startup logging), with the
// gin HTTP server it wires replaced by a direct, single-shot call into
// pkg/driver (see DESIGN.md).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/codeready-toolchain/aks-migrator/pkg/clock"
	"github.com/codeready-toolchain/aks-migrator/pkg/config"
	"github.com/codeready-toolchain/aks-migrator/pkg/docslookup"
	"github.com/codeready-toolchain/aks-migrator/pkg/driver"
	"github.com/codeready-toolchain/aks-migrator/pkg/expert"
	"github.com/codeready-toolchain/aks-migrator/pkg/groupchat"
	"github.com/codeready-toolchain/aks-migrator/pkg/llmsvc"
	"github.com/codeready-toolchain/aks-migrator/pkg/masking"
	"github.com/codeready-toolchain/aks-migrator/pkg/migration"
	"github.com/codeready-toolchain/aks-migrator/pkg/phase"
	"github.com/codeready-toolchain/aks-migrator/pkg/runner"
	"github.com/codeready-toolchain/aks-migrator/pkg/storage"
	"github.com/codeready-toolchain/aks-migrator/pkg/telemetry"
	"github.com/codeready-toolchain/aks-migrator/pkg/tools"
	"github.com/codeready-toolchain/aks-migrator/pkg/verdict"
	"github.com/codeready-toolchain/aks-migrator/pkg/version"
	"github.com/codeready-toolchain/aks-migrator/pkg/workspace"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	configPath := flag.String("config", getEnv("PIPELINE_CONFIG", "./deploy/config/pipeline.yaml"), "path to pipeline.yaml")
	workspaceRoot := flag.String("workspace-root", getEnv("WORKSPACE_ROOT", "./workspace"), "local directory backing the blob workspace")
	container := flag.String("container", getEnv("MIGRATION_CONTAINER", "migration-inputs"), "blob container name")
	sourceFolder := flag.String("source-folder", "source", "source manifest folder within the container")
	workFolder := flag.String("workspace-folder", "workspace", "scratch folder within the container")
	outputFolder := flag.String("output-folder", "output", "output artifact folder within the container")
	userID := flag.String("user-id", getEnv("MIGRATION_USER_ID", "cli-user"), "requesting user id")
	processID := flag.String("process-id", "", "process id (generated if empty)")
	databaseURL := flag.String("database-url", os.Getenv("DATABASE_URL"), "audit-trail Postgres DSN; skipped if empty")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded", "error", err)
	}

	if *processID == "" {
		*processID = uuid.NewString()
	}

	logger := slog.With("process_id", *processID)
	logger.Info("starting migrator", "version", version.Full(), "config", *configPath, "container", *container)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load pipeline config", "error", err)
		os.Exit(1)
	}

	expertLLM, err := buildLLMClient(cfg.LLMProviders[cfg.Defaults.LLMProvider])
	if err != nil {
		logger.Error("failed to build expert llm client", "error", err)
		os.Exit(1)
	}
	managerLLM, err := buildLLMClient(cfg.LLMProviders[cfg.Defaults.ManagerProvider])
	if err != nil {
		logger.Error("failed to build manager llm client", "error", err)
		os.Exit(1)
	}

	blobs := workspace.NewLocalFS(*workspaceRoot)
	docs := docslookup.Static{Results: nil}
	sysClock := clock.NewSystem("")
	executor := &tools.Executor{Blobs: blobs, Docs: docs, Clock: sysClock, Container: *container, Masking: masking.NewService()}

	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	sink := telemetry.NewMemorySink()

	build := func(ctx context.Context, descriptor phase.Descriptor, processCtx *migration.ProcessContext) runner.Inputs {
		experts := make(map[phase.Role]*expert.Expert, len(descriptor.Roster))
		for _, role := range descriptor.Roster {
			experts[role] = expert.New(role, systemPromptFor(descriptor, role), expertLLM, tools.Definitions(), executor)
		}
		manager := groupchat.New(descriptor, experts, managerLLM, groupchat.PlatformState{})
		return runner.Inputs{
			Experts:    experts,
			Manager:    manager,
			Validator:  verdict.NewValidator(blobs, *container, *outputFolder),
			Governor:   cfg.TruncationPolicy(),
			Metrics:    metrics,
			SystemTask: systemTaskFor(descriptor),
		}
	}

	d := driver.New(build, cfg.Defaults.PipelineTimeout.AsDuration(), sysClock, sink)

	req := migration.MigrationRequest{
		ProcessID:           *processID,
		ContainerName:       *container,
		SourceFileFolder:    *sourceFolder,
		WorkspaceFileFolder: *workFolder,
		OutputFileFolder:    *outputFolder,
	}

	start := time.Now()
	result := d.Execute(context.Background(), *userID, req)
	logger.Info("pipeline finished", "status", result.Status, "success", result.Success, "elapsed", time.Since(start))

	if *databaseURL != "" {
		store, err := storage.Open(context.Background(), storage.Config{DSN: *databaseURL})
		if err != nil {
			logger.Error("failed to open audit-trail store", "error", err)
		} else {
			defer store.Close()
			if err := store.SaveResult(context.Background(), *userID, req, result); err != nil {
				logger.Error("failed to persist pipeline result", "error", err)
			}
		}
	}

	manifest, dashboard := telemetry.Project(result)
	summary, _ := json.MarshalIndent(map[string]any{
		"manifest":  manifest,
		"dashboard": dashboard,
	}, "", "  ")
	fmt.Println(string(summary))

	if !result.Success {
		os.Exit(1)
	}
}

func systemTaskFor(d phase.Descriptor) string {
	return fmt.Sprintf("Collaborate as the %s roster to complete the %s phase of the EKS/GKE-to-AKS migration and emit a validated phase verdict.", d.Name, d.Name)
}

func systemPromptFor(d phase.Descriptor, role phase.Role) string {
	return fmt.Sprintf("You are the %s on the %s phase roster for an EKS/GKE-to-AKS Kubernetes migration. Use the available tools to read source manifests, write artifacts, and consult Azure documentation as needed.", role, d.Name)
}

// buildLLMClient adapts one configured provider to llmsvc.Client, wrapped
// in a circuit breaker (spec.md §6; pkg/llmsvc.BreakerClient).
func buildLLMClient(p config.LLMProviderConfig) (llmsvc.Client, error) {
	apiKey := os.Getenv(p.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("migrator: %s is not set", p.APIKeyEnv)
	}

	var inner llmsvc.Client
	switch p.Kind {
	case "anthropic":
		inner = llmsvc.NewAnthropicClient(apiKey, anthropic.Model(p.Model))
	case "langchain":
		model, err := googleai.New(context.Background(), googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(p.Model))
		if err != nil {
			return nil, fmt.Errorf("migrator: building langchain model %s: %w", p.Name, err)
		}
		inner = llmsvc.NewLangChainClient(model)
	default:
		return nil, fmt.Errorf("migrator: unknown llm provider kind %q", p.Kind)
	}

	return llmsvc.NewBreakerClient(p.Name, inner), nil
}
