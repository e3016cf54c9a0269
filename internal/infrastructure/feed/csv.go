package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/andrv/crypto_score_bot/internal/domain"
)

// CSV candle format, one row per candle, oldest-first:
//
//	market,unit,timestamp,open,high,low,close,volume,value
//
// timestamp is RFC3339. A header row is detected and skipped. Parse
// failures are hard errors: a broken data file must abort the run, not
// degrade it.

const csvFieldCount = 9

// LoadCandlesCSV reads a full candle series from a delimited file.
func LoadCandlesCSV(path string) ([]domain.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCandles(f)
}

// ReadCandles parses a candle series from a reader.
func ReadCandles(r io.Reader) ([]domain.Candle, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = csvFieldCount

	var candles []domain.Candle
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read candle csv line %d: %w", line+1, err)
		}
		line++

		if line == 1 && record[0] == "market" {
			continue
		}

		candle, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("candle csv line %d: %w", line, err)
		}
		candles = append(candles, candle)
	}

	for i := 1; i < len(candles); i++ {
		if candles[i].Timestamp.Before(candles[i-1].Timestamp) {
			return nil, fmt.Errorf("candle csv: timestamps out of order at line %d", i+1)
		}
	}
	return candles, nil
}

func parseRecord(record []string) (domain.Candle, error) {
	unit, err := strconv.Atoi(record[1])
	if err != nil {
		return domain.Candle{}, fmt.Errorf("bad unit %q: %w", record[1], err)
	}
	ts, err := time.Parse(time.RFC3339, record[2])
	if err != nil {
		return domain.Candle{}, fmt.Errorf("bad timestamp %q: %w", record[2], err)
	}

	floats := make([]float64, 6)
	for i, field := range record[3:] {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return domain.Candle{}, fmt.Errorf("bad number %q: %w", field, err)
		}
		floats[i] = v
	}

	return domain.Candle{
		Market:         record[0],
		Unit:           unit,
		Timestamp:      ts,
		Open:           floats[0],
		High:           floats[1],
		Low:            floats[2],
		Close:          floats[3],
		AccTradeVolume: floats[4],
		AccTradePrice:  floats[5],
	}, nil
}
