// Package iocfeed walks a local mirror of the Cisco Talos IOC repository
// and extracts report metadata from its JSON feed files. Feeds come in
// several shapes (STIX bundles, nested package exports, MISP event dumps),
// so title and date are probed at fixed key paths in a set order.
package iocfeed

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// DefaultBaseURL maps mirror-relative paths back to the upstream raw files.
const DefaultBaseURL = "https://raw.githubusercontent.com/Cisco-Talos/IOCs/refs/heads/main"

// Report is the metadata extracted from one feed file.
type Report struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Date  string `json:"date"`
}

// Ingester enumerates feed files under a local mirror root.
type Ingester struct {
	root    string
	baseURL string
	logger  *zap.Logger
}

// NewIngester builds an ingester for the mirror at root. An empty baseURL
// falls back to the upstream Talos repository.
func NewIngester(root, baseURL string, logger *zap.Logger) *Ingester {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{root: root, baseURL: baseURL, logger: logger}
}

// Walk enumerates .json files under the root and extracts a report from
// each. WalkDir visits directory entries in lexical order, so the output
// order is deterministic. Unreadable or malformed files are logged and
// skipped; files with no recognizable title or date still produce a report
// with empty fields.
func (ing *Ingester) Walk() ([]Report, error) {
	root, err := filepath.Abs(ing.root)
	if err != nil {
		return nil, fmt.Errorf("resolve feed root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("feed root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("feed root %s is not a directory", root)
	}

	var reports []Report
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		url := ing.baseURL + "/" + filepath.ToSlash(rel)

		data, err := os.ReadFile(path)
		if err != nil {
			ing.logger.Warn("feed file unreadable", zap.String("path", path), zap.Error(err))
			return nil
		}
		var contents any
		if err := json.Unmarshal(data, &contents); err != nil {
			ing.logger.Warn("feed file is not valid JSON", zap.String("path", path), zap.Error(err))
			return nil
		}

		reports = append(reports, Report{
			URL:   url,
			Title: ing.findTitle(url, contents),
			Date:  ing.findDate(url, contents),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk feed root: %w", err)
	}
	return reports, nil
}

// findTitle probes the known feed shapes in order: a STIX report object's
// name, the nested related-packages incident title, then the MISP event
// info line.
func (ing *Ingester) findTitle(url string, contents any) string {
	if objects, ok := stixObjects(contents); ok {
		for _, obj := range objects {
			if typ, _ := objectField(obj, "type"); typ == "report" {
				name, _ := objectField(obj, "name")
				return name
			}
		}
	}
	if title, ok := nestedString(contents,
		"related_packages", "related_packages", "[0]", "package", "incidents", "[0]", "title"); ok {
		return title
	}
	if title, ok := nestedString(contents, "response", "[0]", "Event", "info"); ok {
		return title
	}
	ing.logger.Warn("no title found in feed file", zap.String("url", url))
	return ""
}

// findDate probes the top-level timestamp, a STIX identity object's created
// field, then the MISP event date.
func (ing *Ingester) findDate(url string, contents any) string {
	if ts, ok := nestedString(contents, "timestamp"); ok {
		return ts
	}
	if objects, ok := stixObjects(contents); ok {
		for _, obj := range objects {
			if typ, _ := objectField(obj, "type"); typ == "identity" {
				created, _ := objectField(obj, "created")
				return created
			}
		}
	}
	if ts, ok := nestedString(contents, "response", "[0]", "Event", "date"); ok {
		return ts
	}
	ing.logger.Warn("no date found in feed file", zap.String("url", url))
	return ""
}

// nested walks contents by map keys; the pseudo-key "[0]" steps into the
// first element of a non-empty list.
func nested(contents any, keys ...string) (any, bool) {
	cur := contents
	for _, key := range keys {
		if key == "[0]" {
			list, ok := cur.([]any)
			if !ok || len(list) == 0 {
				return nil, false
			}
			cur = list[0]
			continue
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func nestedString(contents any, keys ...string) (string, bool) {
	v, ok := nested(contents, keys...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func stixObjects(contents any) ([]any, bool) {
	m, ok := contents.(map[string]any)
	if !ok {
		return nil, false
	}
	objects, ok := m["objects"].([]any)
	return objects, ok
}

func objectField(obj any, key string) (string, bool) {
	m, ok := obj.(map[string]any)
	if !ok {
		return "", false
	}
	s, ok := m[key].(string)
	return s, ok
}
