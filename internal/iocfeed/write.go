package iocfeed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteReports writes reports to path as indented JSON. A nil slice is
// written as an empty array.
func WriteReports(path string, reports []Report) error {
	if reports == nil {
		reports = []Report{}
	}
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal reports: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write reports: %w", err)
	}
	return nil
}
