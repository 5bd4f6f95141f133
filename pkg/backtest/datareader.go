package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// HistoricalDataReader loads aligned close-price bars for the pair from CSV
// files, one file per symbol: data_path/<symbol>.csv with columns
// timestamp_ns,symbol,close.
type HistoricalDataReader struct {
	config *BacktestConfig
	bars   map[string][]*Bar
}

// NewHistoricalDataReader creates a new data reader
func NewHistoricalDataReader(config *BacktestConfig) *HistoricalDataReader {
	return &HistoricalDataReader{
		config: config,
		bars:   make(map[string][]*Bar),
	}
}

// LoadData loads and aligns bars for both symbols.
func (r *HistoricalDataReader) LoadData() error {
	log.Println("[DataReader] Loading historical data...")

	for _, symbol := range r.config.Backtest.Data.Symbols {
		filePath := filepath.Join(r.config.Backtest.Data.DataPath, symbol+".csv")

		bars, err := r.loadBarsFromCSV(filePath, symbol)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", filePath, err)
		}
		if len(bars) == 0 {
			return fmt.Errorf("no bars loaded from %s", filePath)
		}

		sort.Slice(bars, func(i, j int) bool {
			return bars[i].TimestampNs < bars[j].TimestampNs
		})

		r.bars[symbol] = bars
		log.Printf("[DataReader] Loaded %d bars from %s", len(bars), filePath)
	}

	return r.validateAlignment()
}

// loadBarsFromCSV loads bars from a single CSV file
func (r *HistoricalDataReader) loadBarsFromCSV(filePath, symbol string) ([]*Bar, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) < 3 {
		return nil, fmt.Errorf("invalid CSV format: expected at least 3 columns, got %d", len(header))
	}

	bars := make([]*Bar, 0, 1024)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		bar, err := parseCSVRecord(record)
		if err != nil {
			// Skip invalid rows
			continue
		}
		if bar.Symbol != symbol {
			continue
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

// parseCSVRecord parses a single CSV record into a Bar
func parseCSVRecord(record []string) (*Bar, error) {
	if len(record) < 3 {
		return nil, fmt.Errorf("invalid CSV record: expected at least 3 fields, got %d", len(record))
	}

	timestampNs, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp: %w", err)
	}

	closePrice, err := strconv.ParseFloat(record[2], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid close: %w", err)
	}
	if closePrice <= 0 {
		return nil, fmt.Errorf("non-positive close: %v", closePrice)
	}

	return &Bar{
		TimestampNs: timestampNs,
		Symbol:      record[1],
		Close:       closePrice,
	}, nil
}

// validateAlignment checks that both legs have the same timestamps, bar for
// bar. The spread only makes sense over aligned series.
func (r *HistoricalDataReader) validateAlignment() error {
	symbols := r.config.Backtest.Data.Symbols
	bars0 := r.bars[symbols[0]]
	bars1 := r.bars[symbols[1]]

	if len(bars0) != len(bars1) {
		return fmt.Errorf("unaligned series: %s has %d bars, %s has %d",
			symbols[0], len(bars0), symbols[1], len(bars1))
	}

	for i := range bars0 {
		if bars0[i].TimestampNs != bars1[i].TimestampNs {
			return fmt.Errorf("timestamp mismatch at bar %d: %d vs %d",
				i, bars0[i].TimestampNs, bars1[i].TimestampNs)
		}
	}

	return nil
}

// Bars returns the loaded bars for a symbol.
func (r *HistoricalDataReader) Bars(symbol string) []*Bar {
	return r.bars[symbol]
}

// GetBarCount returns the number of aligned bars per leg.
func (r *HistoricalDataReader) GetBarCount() int {
	return len(r.bars[r.config.Backtest.Data.Symbols[0]])
}
