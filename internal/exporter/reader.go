package exporter

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"pricingcli/pkg/contracts/domain"
)

// ErrTableMissing is returned when an exported table has not been written yet
var ErrTableMissing = errors.New("exported table not found")

// Tables is a reloaded pair of exported tables
type Tables struct {
	Items   []domain.PricedItem
	Details []domain.CompositionDetail
}

// ReadTables reloads both tables without recomputing anything
func ReadTables(servicesPath, detailsPath string) (*Tables, error) {
	items, err := ReadPricedItems(servicesPath)
	if err != nil {
		return nil, err
	}
	details, err := ReadDetails(detailsPath)
	if err != nil {
		return nil, err
	}
	return &Tables{Items: items, Details: details}, nil
}

// ReadPricedItems loads a services table written by the exporter
func ReadPricedItems(path string) ([]domain.PricedItem, error) {
	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}
	items := make([]domain.PricedItem, 0, len(records))
	for i, rec := range records {
		it, err := pricedItemFromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+2, err)
		}
		items = append(items, it)
	}
	return items, nil
}

// ReadDetails loads a composition detail table written by the exporter
func ReadDetails(path string) ([]domain.CompositionDetail, error) {
	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}
	details := make([]domain.CompositionDetail, 0, len(records))
	for i, rec := range records {
		d, err := detailFromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+2, err)
		}
		details = append(details, d)
	}
	return details, nil
}

// readRecords returns every data row, skipping the BOM and the header line
func readRecords(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTableMissing, path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	br := bufio.NewReader(file)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return records, nil
}
