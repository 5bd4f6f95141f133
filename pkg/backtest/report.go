package backtest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ReportGenerator generates backtest reports in various formats
type ReportGenerator struct {
	config *BacktestConfig
	result *BacktestResult
}

// NewReportGenerator creates a new report generator
func NewReportGenerator(config *BacktestConfig, result *BacktestResult) *ReportGenerator {
	return &ReportGenerator{
		config: config,
		result: result,
	}
}

// GenerateMarkdown generates a markdown report
func (g *ReportGenerator) GenerateMarkdown() error {
	outputDir := g.config.Backtest.Output.ResultDir
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(outputDir, fmt.Sprintf("backtest_report_%s.md", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	g.writeMarkdownReport(file)

	fmt.Printf("[Report] Markdown report saved: %s\n", filename)
	return nil
}

// writeMarkdownReport writes the markdown content
func (g *ReportGenerator) writeMarkdownReport(file *os.File) {
	fmt.Fprintf(file, "# Backtest Report\n\n")
	fmt.Fprintf(file, "**Backtest**: %s\n", g.result.Name)
	fmt.Fprintf(file, "**Strategy**: %s\n", g.config.Strategy.Type)
	fmt.Fprintf(file, "**Pair**: %v\n", g.config.Backtest.Data.Symbols)
	fmt.Fprintf(file, "**Initial Capital**: %.2f\n", g.result.InitialCash)
	fmt.Fprintf(file, "**Final Value**: %.2f\n\n", g.result.FinalValue)
	fmt.Fprintf(file, "---\n\n")

	// Performance Summary
	fmt.Fprintf(file, "## Performance Summary\n\n")
	fmt.Fprintf(file, "| Metric | Value |\n")
	fmt.Fprintf(file, "|--------|-------|\n")
	fmt.Fprintf(file, "| **Total PNL** | %.2f |\n", g.result.TotalPNL)
	fmt.Fprintf(file, "| **Total Return** | %.2f%% |\n", g.result.TotalReturn*100)
	fmt.Fprintf(file, "| **Returns Std** | %.4f |\n", g.result.ReturnsStd)
	fmt.Fprintf(file, "| **Total Commission** | %.2f |\n", g.result.TotalCommission)
	fmt.Fprintf(file, "| **Bars Processed** | %d |\n\n", g.result.Bars)

	// Trade Statistics
	fmt.Fprintf(file, "## Trade Statistics\n\n")
	fmt.Fprintf(file, "| Metric | Value |\n")
	fmt.Fprintf(file, "|--------|-------|\n")
	fmt.Fprintf(file, "| **Resolved Trades** | %d |\n", g.result.TradeStats.NResolvedTrades)
	fmt.Fprintf(file, "| **Unresolved Trades** | %d |\n", g.result.TradeStats.NUnresolvedTrades)
	fmt.Fprintf(file, "| **Total Trades** | %d |\n", g.result.TradeStats.NTrades)
	if g.result.TradeStats.AvgHoldingPeriod >= 0 {
		fmt.Fprintf(file, "| **Avg Holding Period** | %.2f bars |\n", g.result.TradeStats.AvgHoldingPeriod)
	} else {
		fmt.Fprintf(file, "| **Avg Holding Period** | n/a |\n")
	}
	if g.result.TradeStats.LenUnresolvedTrade >= 0 {
		fmt.Fprintf(file, "| **Unresolved Length** | %d bars |\n", g.result.TradeStats.LenUnresolvedTrade)
	}
	fmt.Fprintf(file, "| **Total Fills** | %d |\n\n", len(g.result.Fills))

	// Configuration
	fmt.Fprintf(file, "## Configuration\n\n")
	fmt.Fprintf(file, "- **Data Path**: %s\n", g.config.Backtest.Data.DataPath)
	fmt.Fprintf(file, "- **Symbols**: %v\n", g.config.Backtest.Data.Symbols)
	fmt.Fprintf(file, "- **Lookback**: %d\n\n", g.config.GetLookback())

	// Footer
	fmt.Fprintf(file, "---\n\n")
	fmt.Fprintf(file, "**Generated**: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(file, "**Elapsed**: %v\n", g.result.Duration)
}

// GenerateJSON generates a JSON report
func (g *ReportGenerator) GenerateJSON() error {
	outputDir := g.config.Backtest.Output.ResultDir
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(outputDir, fmt.Sprintf("backtest_result_%s.json", timestamp))

	data, err := json.MarshalIndent(g.result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}

	fmt.Printf("[Report] JSON result saved: %s\n", filename)
	return nil
}

// SaveTrades saves the fill history to CSV
func (g *ReportGenerator) SaveTrades() error {
	if !g.config.Backtest.Output.SaveTrades {
		return nil
	}

	outputDir := g.config.Backtest.Output.ResultDir
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(outputDir, fmt.Sprintf("fills_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create fills file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	writer.Write([]string{
		"OrderID", "Symbol", "Side", "Price", "Size", "Timestamp",
	})

	for _, fill := range g.result.Fills {
		writer.Write([]string{
			fill.OrderID,
			fill.Symbol,
			fill.Side.String(),
			fmt.Sprintf("%.4f", fill.Price),
			fmt.Sprintf("%d", fill.Size),
			fill.Timestamp.Format("2006-01-02 15:04:05"),
		})
	}

	fmt.Printf("[Report] Fills saved: %s\n", filename)
	return nil
}
