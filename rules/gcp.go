package rules

import (
	"context"
	"fmt"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/iterator"
)

// datastore rejects multi operations larger than this.
const maxBatch = 500

type storedRule struct {
	Emoji    string   `datastore:"Emoji,noindex"`
	Channels []string `datastore:"Channels,noindex"`
}

// GCPStorage implements Storage and keeps one Google Cloud Platform
// Datastore entity per user, keyed by user ID.
type GCPStorage struct {
	ds   *datastore.Client
	kind string
}

// NewGCPStorage constructs a new *GCPStorage.
func NewGCPStorage(ds *datastore.Client) *GCPStorage {
	return &GCPStorage{
		ds:   ds,
		kind: "AutoReact",
	}
}

func (s *GCPStorage) Load(ctx context.Context) (map[string]Rule, error) {
	rules := map[string]Rule{}

	it := s.ds.Run(ctx, datastore.NewQuery(s.kind))
	for {
		var sr storedRule
		key, err := it.Next(&sr)
		if err == iterator.Done {
			break
		}
		if err != nil {
			if _, ok := err.(*datastore.ErrFieldMismatch); ok {
				return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
			}
			return nil, fmt.Errorf("querying %s: %v", s.kind, err)
		}
		rules[key.Name] = Rule{Emoji: sr.Emoji, Channels: sr.Channels}
	}

	return rules, nil
}

func (s *GCPStorage) Save(ctx context.Context, rules map[string]Rule) error {
	existing, err := s.ds.GetAll(ctx, datastore.NewQuery(s.kind).KeysOnly(), nil)
	if err != nil {
		return fmt.Errorf("listing %s keys: %v", s.kind, err)
	}

	var stale []*datastore.Key
	for _, key := range existing {
		if _, ok := rules[key.Name]; !ok {
			stale = append(stale, key)
		}
	}
	for start := 0; start < len(stale); start += maxBatch {
		end := min(start+maxBatch, len(stale))
		if err := s.ds.DeleteMulti(ctx, stale[start:end]); err != nil {
			return fmt.Errorf("deleting stale rules: %v", err)
		}
	}

	keys := make([]*datastore.Key, 0, len(rules))
	entities := make([]*storedRule, 0, len(rules))
	for user, r := range rules {
		keys = append(keys, s.key(user))
		entities = append(entities, &storedRule{Emoji: r.Emoji, Channels: r.Channels})
	}
	for start := 0; start < len(keys); start += maxBatch {
		end := min(start+maxBatch, len(keys))
		if _, err := s.ds.PutMulti(ctx, keys[start:end], entities[start:end]); err != nil {
			return fmt.Errorf("putting rules: %v", err)
		}
	}

	return nil
}

func (s *GCPStorage) key(user string) *datastore.Key {
	return datastore.NameKey(s.kind, user, nil)
}
