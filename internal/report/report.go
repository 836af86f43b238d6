// Package report writes harvest output: the JSON record feed consumed by
// downstream tooling and a markdown digest for humans.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/karlseb/ttpharvest/internal/advisory"
)

// WriteRecords writes records to path as indented JSON. A nil slice is
// written as an empty array so consumers always see a list.
func WriteRecords(path string, records []advisory.Record) error {
	if records == nil {
		records = []advisory.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	return nil
}
