package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"deskpilot/internal/automation"
	"deskpilot/internal/command"
	"deskpilot/internal/history"
	"deskpilot/internal/llm"
	"deskpilot/internal/perception"
	"deskpilot/internal/pipeline"
	"deskpilot/internal/plan"
	"deskpilot/internal/resolve"
	"deskpilot/internal/screenshot"
	"deskpilot/internal/stability"
)

func newRunCmd() *cobra.Command {
	var (
		noScreens bool
		noWait    bool
	)
	cmd := &cobra.Command{
		Use:   `run "<instruction>"`,
		Short: "Execute one natural-language instruction",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instruction := strings.Join(args, " ")

			orch, cleanup, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := pipeline.DefaultOptions()
			opts.CaptureScreenshots = !noScreens
			opts.EnableStabilityWait = !noWait

			out, err := orch.Run(ctx, instruction, opts)
			if err != nil && out == nil {
				return err
			}
			printOutcome(out)
			if err != nil {
				return err
			}
			if !out.Success {
				return fmt.Errorf("run did not fully succeed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noScreens, "no-screenshots", false, "skip before/after screenshots")
	cmd.Flags().BoolVar(&noWait, "no-stability-wait", false, "skip the screen stability wait")
	return cmd
}

func printOutcome(out *pipeline.RunOutcome) {
	for i, s := range out.Steps {
		console.Infow("step", "index", i, "step", s.Step, "outcome", string(s.Outcome))
		for _, r := range s.Reasons {
			console.Infof("  %s", r)
		}
		if s.Error != "" {
			console.Warnf("  error: %s", s.Error)
		}
	}
	if out.ScreenSummary != "" {
		console.Infow("screen change", "summary", out.ScreenSummary)
	}
	fmt.Println(out.ActionProgram)
}

// buildOrchestrator wires the pipeline from the loaded config. The cleanup
// closes the browser and waits out detached sweeps.
func buildOrchestrator() (*pipeline.Orchestrator, func(), error) {
	driver, err := automation.NewRodDriver(automation.RodConfig{
		Headless:       cfg.Automation.Headless,
		StartURL:       cfg.Automation.StartURL,
		ViewportWidth:  cfg.Automation.ViewportWidth,
		ViewportHeight: cfg.Automation.ViewportHeight,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("starting automation surface: %w", err)
	}

	screens, err := screenshot.NewStore(cfg.Screenshot.Dir, screenshot.Retention{
		MaxAge:   cfg.Screenshot.MaxAge,
		MaxCount: cfg.Screenshot.MaxCount,
	})
	if err != nil {
		driver.Close()
		return nil, nil, err
	}

	var model llm.Client
	if cfg.LLM.APIKey != "" {
		client, err := llm.NewGenAIClient(llm.GenAIConfig{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.RequestTimeout,
		})
		if err != nil {
			driver.Close()
			return nil, nil, err
		}
		model = client
	} else {
		console.Warn("no API key configured; running with heuristic extraction only")
	}

	gate := &perception.Gate{
		OCR: perception.NewHTTPOCR(perception.HTTPConfig{
			BaseURL: cfg.Perception.OCRBaseURL,
			Timeout: cfg.Perception.RequestTimeout,
		}),
		Detector: perception.NewHTTPDetector(perception.HTTPConfig{
			BaseURL: cfg.Perception.DetectorBaseURL,
			Timeout: cfg.Perception.RequestTimeout,
		}),
		Screenshot: func(ctx context.Context) (automation.Shot, error) {
			return driver.Screenshot(ctx, nil, screens.Path(screenshot.PrefixRun))
		},
		Config: perception.GateConfig{
			OCRMinConfidence: cfg.Perception.OCRMinConfidence,
			CaptionEnabled:   cfg.Perception.CaptionEnabled,
		},
	}
	if cfg.Perception.CaptionEnabled && cfg.LLM.APIKey != "" {
		captioner, err := perception.NewGenAICaptioner(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.RequestTimeout)
		if err != nil {
			console.Warnf("captioner disabled: %v", err)
		} else {
			gate.Captioner = captioner
		}
	}

	annotator := &command.Annotator{}
	if model != nil {
		annotator.Extractor = model
	}

	orch := &pipeline.Orchestrator{
		Annotator: annotator,
		Gate:      gate,
		Planner: &plan.Planner{
			Resolver: &resolve.Resolver{
				MinThreshold:   cfg.Resolver.MinThreshold,
				RunnerUpMargin: cfg.Resolver.RunnerUpMargin,
			},
			LLM: model,
		},
		Driver: driver,
		Waiter: &stability.Waiter{
			Frame: driver.Frame,
			Config: stability.Config{
				Interval:    cfg.Stability.Interval,
				Consecutive: cfg.Stability.Consecutive,
				Threshold:   cfg.Stability.Threshold,
				Timeout:     cfg.Stability.Timeout,
			},
		},
		History: history.NewStore(cfg.History.Path, history.Retention{
			MaxAgeDays: cfg.History.MaxAgeDays,
			MaxCount:   cfg.History.MaxCount,
		}),
		Screens: screens,
		LLM:     model,
	}
	cleanup := func() {
		orch.AwaitSweeps()
		driver.Close()
	}
	return orch, cleanup, nil
}
