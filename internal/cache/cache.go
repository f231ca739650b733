// Package cache stores replies of read-only editor queries on disk so
// repeated agent calls do not round-trip through the gate.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/unitybridge/unitybridge/internal/paths"
)

type entry struct {
	Payload json.RawMessage `json:"payload"`
	Created time.Time       `json:"created"`
	Expires time.Time       `json:"expires"`
}

// Get looks up a cached reply payload. Returns false if absent or expired.
func Get(cmdType string, params json.RawMessage) (json.RawMessage, bool) {
	path := entryPath(cmdType, params)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		_ = os.Remove(path)
		return nil, false
	}

	if time.Now().After(e.Expires) {
		_ = os.Remove(path)
		return nil, false
	}

	return e.Payload, true
}

// Put stores a successful reply payload with the given TTL.
func Put(cmdType string, params, payload json.RawMessage, ttl time.Duration) error {
	dir := cacheDir()
	if err := paths.EnsureDir(dir); err != nil {
		return err
	}

	now := time.Now()
	e := entry{
		Payload: payload,
		Created: now,
		Expires: now.Add(ttl),
	}

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	return os.WriteFile(entryPath(cmdType, params), data, 0600)
}

func entryPath(cmdType string, params json.RawMessage) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s", cmdType, string(params))
	key := hex.EncodeToString(h.Sum(nil))[:32]
	return filepath.Join(cacheDir(), key+".json")
}

func cacheDir() string {
	return filepath.Join(paths.CacheDir(), "replies")
}
