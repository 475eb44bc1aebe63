package main

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/kidandcat/homepagetests/pkg/fixture"
	"github.com/kidandcat/homepagetests/pkg/homepage"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the chapter title, home page link and linked title checks for every fixture row",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().Int("parallel", 1, "Test cases to run at once, each in its own browser")
	checkCmd.Flags().Bool("fail-on-console-error", false, "Fail a test case when the page logs a console error")
	checkCmd.Flags().String("screenshot-dir", "", "Directory for screenshots of failed test cases")
}

func runCheck(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if flags.Changed("parallel") {
		cfg.Parallel, _ = flags.GetInt("parallel")
	}
	if flags.Changed("fail-on-console-error") {
		cfg.FailOnConsoleError, _ = flags.GetBool("fail-on-console-error")
	}
	if flags.Changed("screenshot-dir") {
		cfg.ScreenshotDir, _ = flags.GetString("screenshot-dir")
	}

	rows, err := fixture.Load(cfg.Fixture)
	if err != nil {
		return fmt.Errorf("load fixture: %w", err)
	}

	provider, err := newProvider()
	if err != nil {
		return err
	}

	runner := homepage.NewRunner(provider, &homepage.Config{
		BaseURL:            cfg.BaseURL,
		Timeouts:           timeouts(),
		Parallel:           cfg.Parallel,
		FailOnConsoleError: cfg.FailOnConsoleError,
		ScreenshotDir:      cfg.ScreenshotDir,
	}, logger)
	runner.AddRows(rows)

	ctx, stop := signalContext()
	defer stop()

	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	yellow.Printf("Running %d tests from %s...\n\n", len(runner.Tests()), cfg.Fixture)

	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond)
	s.Start()

	resultsChan := make(chan homepage.TestResult)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for result := range resultsChan {
			s.Stop()
			if result.Passed {
				fmt.Printf("%s %s (%s)\n", green.Sprint("✓ PASS"), result.Name, result.Duration.Round(time.Millisecond))
			} else {
				fmt.Printf("%s %s (%s)\n", red.Sprint("✗ FAIL"), result.Name, result.Duration.Round(time.Millisecond))
				if result.Error != nil {
					red.Printf("  Error: %v\n", result.Error)
				}
				for _, msg := range result.Console {
					if msg.IsError() {
						red.Printf("  Console %s: %s\n", msg.Type, msg.Text)
					}
				}
				if result.Screenshot != "" {
					fmt.Printf("  Screenshot: %s\n", result.Screenshot)
				}
			}
			s.Start()
		}
	}()

	results := runner.RunWithProgress(ctx, resultsChan)
	<-done
	s.Stop()

	failed := 0
	for _, result := range results {
		if !result.Passed {
			failed++
		}
	}

	fmt.Println()
	if failed > 0 {
		red.Printf("%d of %d tests failed\n", failed, len(results))
		return fmt.Errorf("%d tests failed", failed)
	}
	green.Printf("All %d tests passed\n", len(results))
	return nil
}
