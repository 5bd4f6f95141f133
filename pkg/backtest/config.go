package backtest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BacktestConfig represents the backtest configuration
type BacktestConfig struct {
	Backtest BacktestSettings `yaml:"backtest"`
	Strategy StrategySettings `yaml:"strategy"`
	Engine   EngineSettings   `yaml:"engine"`
}

// BacktestSettings contains backtest-specific settings
type BacktestSettings struct {
	Name    string          `yaml:"name"`
	Data    DataSettings    `yaml:"data"`
	Initial InitialSettings `yaml:"initial"`
	Output  OutputSettings  `yaml:"output"`
}

// DataSettings contains data source settings
type DataSettings struct {
	DataPath string   `yaml:"data_path"`
	Symbols  []string `yaml:"symbols"` // exactly two, leg order matters
}

// InitialSettings contains initial capital settings
type InitialSettings struct {
	Capital float64 `yaml:"capital"`
}

// OutputSettings contains output settings
type OutputSettings struct {
	ResultDir      string `yaml:"result_dir"`
	SaveTrades     bool   `yaml:"save_trades"`
	GenerateReport bool   `yaml:"generate_report"`
	ReportFormat   string `yaml:"report_format"` // markdown, json
}

// StrategySettings contains strategy configuration
type StrategySettings struct {
	Type       string                 `yaml:"type"`
	Parameters map[string]interface{} `yaml:"parameters"`
}

// EngineSettings contains engine configuration
type EngineSettings struct {
	NATSAddr      string `yaml:"nats_addr"`
	PublishEvents bool   `yaml:"publish_events"`
}

// LoadBacktestConfig loads backtest configuration from YAML file
func LoadBacktestConfig(configFile string) (*BacktestConfig, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config BacktestConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *BacktestConfig) Validate() error {
	if c.Backtest.Name == "" {
		return fmt.Errorf("backtest name is required")
	}

	if c.Backtest.Data.DataPath == "" {
		return fmt.Errorf("data_path is required")
	}
	if len(c.Backtest.Data.Symbols) != 2 {
		return fmt.Errorf("exactly two symbols are required, got %d", len(c.Backtest.Data.Symbols))
	}
	if c.Backtest.Data.Symbols[0] == c.Backtest.Data.Symbols[1] {
		return fmt.Errorf("the two symbols must differ")
	}

	if c.Backtest.Initial.Capital <= 0 {
		return fmt.Errorf("initial capital must be positive")
	}

	if c.Strategy.Type == "" {
		return fmt.Errorf("strategy type is required")
	}

	if c.Engine.PublishEvents && c.Engine.NATSAddr == "" {
		return fmt.Errorf("NATS address is required when publish_events is enabled")
	}

	return nil
}

// GetLookback returns the strategy lookback parameter (default 84). The
// metrics collector gates its recording on the same window the strategy uses.
func (c *BacktestConfig) GetLookback() int {
	if val, ok := c.Strategy.Parameters["lookback"].(int); ok && val > 0 {
		return val
	}
	if val, ok := c.Strategy.Parameters["lookback"].(float64); ok && val > 0 {
		return int(val)
	}
	return 84
}

// GetReportFormat returns the report format (default markdown).
func (c *BacktestConfig) GetReportFormat() string {
	switch c.Backtest.Output.ReportFormat {
	case "markdown", "json":
		return c.Backtest.Output.ReportFormat
	default:
		return "markdown"
	}
}
