package sim

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/Lamikins/branch-prediction/internal/storage"
)

// BranchRecord is one conditional branch in a trace: its position in the
// stream, the branch site it belongs to, and whether it was taken. An empty
// tag is an untagged branch that only advances the global history.
type BranchRecord struct {
	Seq     uint64 `json:"seq"`
	Tag     string `json:"tag"`
	Outcome bool   `json:"outcome"`
}

// TraceLoader loads a branch trace from CSV, JSON, a BoltDB event store or a
// remote URL and serves it in sequence order.
type TraceLoader struct {
	records []BranchRecord
	index   int
}

// NewTraceLoader creates an empty loader.
func NewTraceLoader() *TraceLoader {
	return &TraceLoader{records: make([]BranchRecord, 0)}
}

// Append adds records directly, e.g. from a generator.
func (tl *TraceLoader) Append(records ...BranchRecord) {
	tl.records = append(tl.records, records...)
}

// LoadFromCSV reads a trace from a CSV file with a seq,tag,outcome header.
func (tl *TraceLoader) LoadFromCSV(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	if err := tl.readCSV(file); err != nil {
		return err
	}

	tl.finish()
	log.Info().Str("file", filePath).Int("records", len(tl.records)).Msg("CSV trace loaded")
	return nil
}

func (tl *TraceLoader) readCSV(r io.Reader) error {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	indices := make(map[string]int)
	for i, col := range header {
		indices[col] = i
	}
	for _, col := range []string{"seq", "tag", "outcome"} {
		if _, ok := indices[col]; !ok {
			return fmt.Errorf("CSV header missing %q column", col)
		}
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn().Err(err).Msg("Skipping malformed trace row")
			continue
		}

		seq, err := strconv.ParseUint(record[indices["seq"]], 10, 64)
		if err != nil {
			continue
		}
		outcome, err := strconv.ParseBool(record[indices["outcome"]])
		if err != nil {
			continue
		}

		tl.records = append(tl.records, BranchRecord{
			Seq:     seq,
			Tag:     record[indices["tag"]],
			Outcome: outcome,
		})
	}
	return nil
}

// LoadFromJSON reads a trace from a file of concatenated JSON records.
func (tl *TraceLoader) LoadFromJSON(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open JSON file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	for decoder.More() {
		var record BranchRecord
		if err := decoder.Decode(&record); err != nil {
			continue
		}
		tl.records = append(tl.records, record)
	}

	tl.finish()
	log.Info().Str("file", filePath).Int("records", len(tl.records)).Msg("JSON trace loaded")
	return nil
}

// LoadFromStore reads a previously recorded run back from the event store,
// replaying its outcomes as a trace.
func (tl *TraceLoader) LoadFromStore(store *storage.Store) error {
	events, err := store.AllEvents()
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}

	for _, ev := range events {
		tl.records = append(tl.records, BranchRecord{
			Seq:     ev.Seq,
			Tag:     ev.Tag,
			Outcome: ev.Outcome,
		})
	}

	tl.finish()
	log.Info().Int("records", len(tl.records)).Msg("Trace loaded from event store")
	return nil
}

// LoadFromURL fetches a CSV trace over HTTP.
func (tl *TraceLoader) LoadFromURL(url string) error {
	resp, err := resty.New().R().Get(url)
	if err != nil {
		return fmt.Errorf("failed to fetch trace: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("failed to fetch trace: status %s", resp.Status())
	}

	if err := tl.readCSV(bytes.NewReader(resp.Body())); err != nil {
		return err
	}

	tl.finish()
	log.Info().Str("url", url).Int("records", len(tl.records)).Msg("Remote trace loaded")
	return nil
}

// finish sorts records into sequence order.
func (tl *TraceLoader) finish() {
	sort.Slice(tl.records, func(i, j int) bool {
		return tl.records[i].Seq < tl.records[j].Seq
	})
}

// Reset rewinds the loader to the first record.
func (tl *TraceLoader) Reset() { tl.index = 0 }

// HasNext reports whether more records remain.
func (tl *TraceLoader) HasNext() bool { return tl.index < len(tl.records) }

// Next returns the next record in sequence order.
func (tl *TraceLoader) Next() BranchRecord {
	if tl.index >= len(tl.records) {
		return BranchRecord{}
	}
	record := tl.records[tl.index]
	tl.index++
	return record
}

// Count returns the total number of loaded records.
func (tl *TraceLoader) Count() int { return len(tl.records) }

// Progress returns replay progress as a percentage.
func (tl *TraceLoader) Progress() float64 {
	if len(tl.records) == 0 {
		return 100.0
	}
	return float64(tl.index) / float64(len(tl.records)) * 100.0
}

// WriteCSV writes the loaded records as a CSV trace.
func (tl *TraceLoader) WriteCSV(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"seq", "tag", "outcome"}); err != nil {
		return err
	}
	for _, r := range tl.records {
		row := []string{
			strconv.FormatUint(r.Seq, 10),
			r.Tag,
			strconv.FormatBool(r.Outcome),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON writes the loaded records as concatenated JSON objects.
func (tl *TraceLoader) WriteJSON(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	for _, r := range tl.records {
		if err := encoder.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
