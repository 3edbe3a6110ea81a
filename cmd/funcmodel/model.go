package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"

	"github.com/funcmodel/funcmodel/pkg/config"
	"github.com/funcmodel/funcmodel/pkg/eventbus"
	"github.com/funcmodel/funcmodel/pkg/execution"
	"github.com/funcmodel/funcmodel/pkg/log"
	"github.com/funcmodel/funcmodel/pkg/models"
	"github.com/funcmodel/funcmodel/pkg/persistence"
	"github.com/funcmodel/funcmodel/pkg/persistence/file"
	"github.com/funcmodel/funcmodel/pkg/services"
	"github.com/funcmodel/funcmodel/pkg/tracer"
)

// resolveConfig merges the optional config file with command-line flags;
// flags win when set explicitly.
func resolveConfig(command *cli.Command) (config.Config, error) {
	cfg := config.Default()

	if path := command.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}

		cfg = loaded
	}

	if command.IsSet("data-dir") {
		cfg.DataDir = command.String("data-dir")
	}

	if command.IsSet("log-level") {
		cfg.LogLevel = command.String("log-level")
	}

	return cfg, nil
}

func loadModel(ctx context.Context, command *cli.Command) (*models.FunctionModel, config.Config, error) {
	cfg, err := resolveConfig(command)
	if err != nil {
		return nil, cfg, err
	}

	log.Setup(cfg.LogLevel)

	modelID := command.Args().First()
	if modelID == "" {
		return nil, cfg, fmt.Errorf("a model id argument is required")
	}

	store := file.NewPersistence(cfg.DataDir)

	snapshot, err := store.ModelByID(ctx, modelID)
	if err != nil {
		return nil, cfg, err
	}

	rehydrated := models.ModelFromSnapshot(snapshot)
	if rehydrated.IsFailure() {
		return nil, cfg, rehydrated.Error()
	}

	return rehydrated.Value(), cfg, nil
}

func newModelService(command *cli.Command) (*services.Model, func(), error) {
	cfg, err := resolveConfig(command)
	if err != nil {
		return nil, nil, err
	}

	log.Setup(cfg.LogLevel)

	bus := eventbus.NewGoChannelEventBus(log.WithModule("eventbus"))
	svc := services.NewModel(file.NewPersistence(cfg.DataDir), services.WithEventBus(bus))

	closeBus := func() {
		if err := bus.Close(); err != nil {
			log.WithModule("funcmodel").Warn("failed to close event bus", "error", err)
		}
	}

	return svc, closeBus, nil
}

func createModel(ctx context.Context, command *cli.Command) error {
	name := command.Args().First()
	if name == "" {
		return fmt.Errorf("a model name argument is required")
	}

	svc, closeBus, err := newModelService(command)
	if err != nil {
		return err
	}
	defer closeBus()

	m, err := svc.Create(ctx, services.CreateRequest{
		Name:        name,
		Description: command.String("description"),
		Owner:       command.String("owner"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("created model %s (%s)\n", m.ID(), m.Name())

	return nil
}

func publishModel(ctx context.Context, command *cli.Command) error {
	modelID := command.Args().First()
	if modelID == "" {
		return fmt.Errorf("a model id argument is required")
	}

	svc, closeBus, err := newModelService(command)
	if err != nil {
		return err
	}
	defer closeBus()

	m, err := svc.Publish(ctx, modelID)
	if err != nil {
		return err
	}

	fmt.Printf("published model %s at version %s\n", m.ID(), m.Version())

	return nil
}

func archiveModel(ctx context.Context, command *cli.Command) error {
	modelID := command.Args().First()
	if modelID == "" {
		return fmt.Errorf("a model id argument is required")
	}

	svc, closeBus, err := newModelService(command)
	if err != nil {
		return err
	}
	defer closeBus()

	m, err := svc.Archive(ctx, modelID)
	if err != nil {
		return err
	}

	fmt.Printf("archived model %s\n", m.ID())

	return nil
}

func newEngine(ctx context.Context, cfg config.Config) *execution.Engine {
	opts := []execution.EngineOption{execution.WithLogger(log.WithModule("engine"))}

	if cfg.Tracing.Enabled {
		var exporterOpts []otlptracehttp.Option
		if cfg.Tracing.Endpoint != "" {
			exporterOpts = append(exporterOpts, otlptracehttp.WithEndpoint(cfg.Tracing.Endpoint), otlptracehttp.WithInsecure())
		}

		t, err := tracer.NewTracer(ctx, "funcmodel", exporterOpts...)
		if err != nil {
			log.WithModule("funcmodel").Warn("tracing disabled", "error", err)
		} else {
			opts = append(opts, execution.WithTracer(t))
		}
	}

	return execution.NewEngine(opts...)
}

func validateModel(ctx context.Context, command *cli.Command) error {
	m, _, err := loadModel(ctx, command)
	if err != nil {
		return err
	}

	violations := 0

	for _, node := range m.Nodes() {
		io, ok := node.(*models.IONode)
		if !ok {
			continue
		}

		if err := models.ValidateIODefault(io.IOData); err != nil {
			violations++

			fmt.Fprintf(os.Stderr, "io node %s: %v\n", io.NodeID(), err)
		}
	}

	for _, action := range m.Actions() {
		base := action.Base()

		if err := models.ValidateActionData(action.ActionType(), base.ActionData); err != nil {
			violations++

			fmt.Fprintf(os.Stderr, "action %s: %v\n", base.ID, err)
		}
	}

	if violations > 0 {
		return fmt.Errorf("model has %d schema violation(s)", violations)
	}

	fmt.Printf("model %s is valid (%d nodes, %d actions, %d edges)\n",
		m.ID(), len(m.Nodes()), len(m.Actions()), len(m.Edges()))

	return nil
}

func inspectModel(ctx context.Context, command *cli.Command) error {
	m, _, err := loadModel(ctx, command)
	if err != nil {
		return err
	}

	return printJSON(m.Snapshot())
}

func planModel(ctx context.Context, command *cli.Command) error {
	m, cfg, err := loadModel(ctx, command)
	if err != nil {
		return err
	}

	engine := newEngine(ctx, cfg)

	planned := engine.Plan(ctx, m, execution.WithDryRun(), execution.WithVariables(cfg.Engine.Variables))
	if planned.IsFailure() {
		return planned.Error()
	}

	plan := planned.Value()

	for _, container := range plan.Containers {
		fmt.Printf("%s (parallel=%t)\n", container.Name, container.Parallel)

		for _, step := range container.Steps {
			fmt.Printf("  %s  %s [%s]\n", step.ActionID, step.Name, step.State)
		}
	}

	return nil
}

func simulateModel(ctx context.Context, command *cli.Command) error {
	m, cfg, err := loadModel(ctx, command)
	if err != nil {
		return err
	}

	engine := newEngine(ctx, cfg)

	planned := engine.Plan(ctx, m, execution.WithDryRun(), execution.WithVariables(cfg.Engine.Variables))
	if planned.IsFailure() {
		return planned.Error()
	}

	plan := planned.Value()

	for !plan.State.IsTerminal() {
		ready := plan.NextActions()
		if len(ready) == 0 {
			break
		}

		for _, actionID := range ready {
			advanced := engine.Advance(ctx, plan, actionID, execution.OutcomeSuccess)
			if advanced.IsFailure() {
				return advanced.Error()
			}
		}
	}

	return printJSON(plan.Summary())
}

func listModels(ctx context.Context, command *cli.Command) error {
	cfg, err := resolveConfig(command)
	if err != nil {
		return err
	}

	log.Setup(cfg.LogLevel)

	store := file.NewPersistence(cfg.DataDir)

	result, err := store.Models(ctx, persistence.ListModelsOptions{Limit: 100})
	if err != nil {
		return err
	}

	for _, snapshot := range result.Models {
		fmt.Printf("%s  %-9s  v%-8s  %s\n", snapshot.ID, snapshot.Status, snapshot.Version, snapshot.Name)
	}

	fmt.Printf("%d model(s)\n", result.TotalCount)

	return nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(data))

	return nil
}
