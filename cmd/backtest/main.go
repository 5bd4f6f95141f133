package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/theMLtrader/statistical-arbitrage-18-19/pkg/backtest"
)

const (
	appName    = "PairsBacktest"
	appVersion = "1.0.0"
)

var (
	// Command line flags
	configFile = flag.String("config", "./config/backtest.yaml", "Configuration file path")
	dataPath   = flag.String("data", "", "Data directory (overrides config)")
	outputDir  = flag.String("output", "", "Output directory (overrides config)")
	version    = flag.Bool("version", false, "Print version and exit")
	help       = flag.Bool("help", false, "Print help and exit")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("%s version %s\n", appName, appVersion)
		os.Exit(0)
	}

	if *help {
		printHelp()
		os.Exit(0)
	}

	printBanner()

	// Load configuration
	log.Printf("[Main] Loading configuration from: %s", *configFile)
	config, err := backtest.LoadBacktestConfig(*configFile)
	if err != nil {
		log.Fatalf("[Main] Failed to load config: %v", err)
	}
	log.Println("[Main] ✓ Configuration loaded successfully")

	// Override with command line flags
	if *dataPath != "" {
		config.Backtest.Data.DataPath = *dataPath
		log.Printf("[Main] Data path overridden: %s", *dataPath)
	}
	if *outputDir != "" {
		config.Backtest.Output.ResultDir = *outputDir
		log.Printf("[Main] Output directory overridden: %s", *outputDir)
	}

	printConfigSummary(config)

	runner, err := backtest.NewBacktestRunner(config)
	if err != nil {
		log.Fatalf("[Main] Failed to create runner: %v", err)
	}

	result, err := runner.Run()
	if err != nil {
		log.Fatalf("[Main] Backtest failed: %v", err)
	}

	// Save results
	if config.Backtest.Output.GenerateReport {
		log.Println("[Main] Generating report...")
		reportGen := backtest.NewReportGenerator(config, result)

		switch config.GetReportFormat() {
		case "json":
			if err := reportGen.GenerateJSON(); err != nil {
				log.Printf("[Main] Failed to generate JSON report: %v", err)
			}
		default:
			if err := reportGen.GenerateMarkdown(); err != nil {
				log.Printf("[Main] Failed to generate markdown report: %v", err)
			}
		}

		if err := reportGen.SaveTrades(); err != nil {
			log.Printf("[Main] Failed to save fills: %v", err)
		}

		log.Printf("[Main] Report saved to: %s", config.Backtest.Output.ResultDir)
	}

	log.Println("[Main] Backtest completed successfully!")
}

func printBanner() {
	fmt.Println("========================================")
	fmt.Printf("%s v%s\n", appName, appVersion)
	fmt.Println("Pairs trading distance-method backtester")
	fmt.Println("========================================")
}

func printHelp() {
	fmt.Printf("Usage: %s [options]\n\n", os.Args[0])
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println("\nExamples:")
	fmt.Println("  # Run a backtest")
	fmt.Println("  ./backtest -config config/backtest.yaml")
	fmt.Println()
	fmt.Println("  # Point at a different data directory")
	fmt.Println("  ./backtest -config config/backtest.yaml -data /data/pairs/gld_gdx")
	fmt.Println()
}

func printConfigSummary(config *backtest.BacktestConfig) {
	fmt.Println("\n========================================")
	fmt.Println("Configuration Summary")
	fmt.Println("========================================")
	fmt.Printf("Backtest Name:     %s\n", config.Backtest.Name)
	fmt.Printf("Symbols:           %v\n", config.Backtest.Data.Symbols)
	fmt.Printf("Data Path:         %s\n", config.Backtest.Data.DataPath)
	fmt.Printf("Initial Capital:   %.2f\n", config.Backtest.Initial.Capital)
	fmt.Printf("Strategy:          %s\n", config.Strategy.Type)
	fmt.Printf("Lookback:          %d\n", config.GetLookback())
	fmt.Printf("Output Directory:  %s\n", config.Backtest.Output.ResultDir)
	fmt.Println("========================================")
	fmt.Println()
}
