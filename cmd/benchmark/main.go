// ABOUTME: Command-line benchmark runner for retrieval quality
// ABOUTME: Executes benchmark scenarios and outputs JSON results
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/harper/docqa/benchmarks/ragas"
	"github.com/harper/docqa/internal/config"
	"github.com/harper/docqa/internal/logger"
	"github.com/joho/godotenv"
)

func main() {
	// Command-line flags
	testID := flag.String("test", "", "Run specific test (key_lookup, venue_lookup, forecast_lookup). If empty, runs all tests.")
	outputPath := flag.String("output", "benchmark_results.json", "Output path for JSON results")
	online := flag.Bool("online", false, "Use the OpenAI embedding and chat models (requires OPENAI_API_KEY)")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	flag.Parse()

	logger.SetVerbose(*verbose)

	// Load .env file
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found", "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger.SetJSON(cfg.LogJSON)

	fmt.Println("========================================")
	fmt.Println("docqa Retrieval Benchmarks")
	fmt.Println("========================================")
	fmt.Println()

	runner, err := ragas.NewBenchmarkRunner(ragas.RunnerOptions{Config: cfg, Online: *online, Verbose: *verbose})
	if err != nil {
		logger.Error("failed to create benchmark runner", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	var results []ragas.TestResult

	if *testID == "" {
		fmt.Println("Running all benchmark scenarios...")
		results, err = runner.RunAllTests(ctx)
		if err != nil {
			logger.Error("benchmark failed", "err", err)
			os.Exit(1)
		}
	} else {
		scenario, ok := ragas.GetTest(*testID)
		if !ok {
			logger.Error("unknown test id", "test", *testID)
			os.Exit(1)
		}

		fmt.Printf("Running test: %s\n", scenario.Name)
		result, err := runner.RunTest(ctx, scenario)
		if err != nil {
			logger.Error("test failed", "test", *testID, "err", err)
			os.Exit(1)
		}
		results = []ragas.TestResult{result}
	}

	summary := runner.Summarize(results)

	fmt.Println("\n========================================")
	fmt.Println("BENCHMARK SUMMARY")
	fmt.Println("========================================")

	for _, result := range results {
		fmt.Printf("\n%s: %s\n", result.TestID, result.TestName)
		if result.ErrorMessage != "" {
			fmt.Printf("  Error: %s\n", result.ErrorMessage)
		}
		fmt.Printf("  Faithfulness: %.2f\n", result.FaithfulnessScore)
		fmt.Printf("  Context Recall: %.2f\n", result.ContextRecallScore)
		fmt.Printf("  Source Recall: %.2f\n", result.SourceRecallScore)
		fmt.Printf("  Overall: %.2f\n", result.OverallScore)
		fmt.Printf("  Status: %s\n", result.Status)
	}

	fmt.Println("\n========================================")
	fmt.Printf("Mode: %s\n", summary.Mode)
	fmt.Printf("Total Tests: %d\n", summary.TotalTests)
	fmt.Printf("Passed: %d\n", summary.Passed)
	fmt.Printf("Failed: %d\n", summary.Failed)
	fmt.Println("========================================")

	if err := runner.ExportResults(results, *outputPath); err != nil {
		logger.Error("failed to export results", "err", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Results exported to: %s\n", *outputPath)

	// Exit with error code if any tests failed
	if summary.Failed > 0 {
		os.Exit(1)
	}
}
