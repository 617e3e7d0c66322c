package solver

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/verith-lang/verith/internal/hir"
	"github.com/verith-lang/verith/internal/utils"
)

// Cached wraps a solver with a sqlite verdict cache. The key is the stable
// hash of the scope and the rendered predicate batch, so the cached verdict
// is reused exactly when the obligations haven't changed. Transport errors
// are never cached.
type Cached struct {
	db    *sql.DB
	inner Solver
}

const cacheSchema = `CREATE TABLE IF NOT EXISTS verdicts (
	key      TEXT PRIMARY KEY,
	ok       INTEGER NOT NULL,
	failures TEXT NOT NULL
)`

// OpenCache opens (creating if needed) the verdict database at path and
// wraps inner with it.
func OpenCache(path string, inner Solver) (*Cached, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening verdict cache: %w", err)
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing verdict cache: %w", err)
	}
	return &Cached{db: db, inner: inner}, nil
}

// Close releases the database.
func (c *Cached) Close() error {
	return c.db.Close()
}

// Discharge answers from the cache when the batch was seen before, and
// stores the inner solver's verdict otherwise.
func (c *Cached) Discharge(scope hir.DefID, preds []hir.Predicate) ([]Failure, error) {
	key := c.batchKey(scope, preds)

	var ok int
	var encoded string
	err := c.db.QueryRow(`SELECT ok, failures FROM verdicts WHERE key = ?`, key).Scan(&ok, &encoded)
	switch {
	case err == nil:
		if ok == 1 {
			return nil, nil
		}
		var failures []Failure
		if err := json.Unmarshal([]byte(encoded), &failures); err != nil {
			return nil, fmt.Errorf("corrupt verdict cache entry %s: %w", key, err)
		}
		return failures, nil
	case err != sql.ErrNoRows:
		return nil, fmt.Errorf("reading verdict cache: %w", err)
	}

	failures, err := c.inner.Discharge(scope, preds)
	if err != nil {
		return nil, err
	}

	verdict := 0
	if len(failures) == 0 {
		verdict = 1
	}
	encodedFailures, err := json.Marshal(failures)
	if err != nil {
		return nil, fmt.Errorf("encoding verdict: %w", err)
	}
	if _, err := c.db.Exec(
		`INSERT OR REPLACE INTO verdicts (key, ok, failures) VALUES (?, ?, ?)`,
		key, verdict, string(encodedFailures),
	); err != nil {
		return nil, fmt.Errorf("writing verdict cache: %w", err)
	}
	return failures, nil
}

func (c *Cached) batchKey(scope hir.DefID, preds []hir.Predicate) string {
	parts := make([]string, 0, len(preds)+1)
	parts = append(parts, string(scope))
	for _, pred := range preds {
		parts = append(parts, RenderPredicate(pred))
	}
	return utils.StableHash(parts...)
}
