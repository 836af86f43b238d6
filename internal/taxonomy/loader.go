package taxonomy

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/karlseb/ttpharvest/internal/fetcher"
)

// Loader downloads STIX bundles and assembles the Store.
type Loader struct {
	client fetcher.Client
	logger *zap.Logger
}

// NewLoader builds a Loader around the given HTTP client.
func NewLoader(client fetcher.Client, logger *zap.Logger) *Loader {
	return &Loader{client: client, logger: logger}
}

// Load fetches every bundle URL and merges their technique objects into one
// Store. Any fetch or decode failure aborts the load; resolving techniques
// against a partially loaded taxonomy would silently misreport names.
// When the same identifier appears in several bundles the first one wins.
func (l *Loader) Load(ctx context.Context, urls []string) (*Store, error) {
	entries := make(map[string]Entry)
	for _, u := range urls {
		page, err := l.client.Fetch(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("fetch taxonomy bundle %s: %w", u, err)
		}
		var bundle Bundle
		if err := json.Unmarshal(page.Body, &bundle); err != nil {
			return nil, fmt.Errorf("decode taxonomy bundle %s: %w", u, err)
		}

		added := 0
		for _, obj := range bundle.Objects {
			if obj.Type != "attack-pattern" || obj.Revoked || obj.Deprecated {
				continue
			}
			id := obj.AttackID()
			if id == "" {
				continue
			}
			if _, exists := entries[id]; exists {
				continue
			}
			tactics := make([]string, 0, len(obj.KillChainPhases))
			for _, phase := range obj.KillChainPhases {
				tactics = append(tactics, phase.PhaseName)
			}
			entries[id] = Entry{Name: obj.Name, Tactics: tactics}
			added++
		}
		l.logger.Info("taxonomy bundle loaded",
			zap.String("url", u),
			zap.Int("techniques", added))
	}
	return NewStore(entries), nil
}
