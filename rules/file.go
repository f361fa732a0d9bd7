package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
)

// FileStorage implements Storage with a single JSON file of the form
//
//	{"<user>": {"channels": ["<channel>", ...], "emoji": "<name>"}}
type FileStorage struct {
	path string
}

// NewFileStorage constructs a *FileStorage backed by path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Path returns the file the rules are persisted to.
func (s *FileStorage) Path() string {
	return s.path
}

// Load reads the rules from disk. A missing file is an empty set; a file
// that does not decode is reported as ErrCorrupt.
func (s *FileStorage) Load(_ context.Context) (map[string]Rule, error) {
	data, err := ioutil.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]Rule{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %v", s.path, err)
	}

	rules := map[string]Rule{}
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrCorrupt, s.path, err)
	}
	if rules == nil {
		rules = map[string]Rule{}
	}
	return rules, nil
}

// Save writes rules to a temporary file next to the target and renames it
// into place.
func (s *FileStorage) Save(_ context.Context, rules map[string]Rule) error {
	if rules == nil {
		rules = map[string]Rule{}
	}
	// channels is always written as a list
	out := make(map[string]Rule, len(rules))
	for user, r := range rules {
		if r.Channels == nil {
			r.Channels = []string{}
		}
		out[user] = r
	}

	data, err := json.MarshalIndent(out, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding rules: %v", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := ioutil.TempFile(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %v", dir, err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmpName, 0644)
	}
	if err == nil {
		err = os.Rename(tmpName, s.path)
	}
	if err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %v", s.path, err)
	}
	return nil
}
