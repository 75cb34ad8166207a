package daemon

import (
	"encoding/json"
	"fmt"
	"os"
)

// writeJSONAtomic pretty-prints v and writes it to path. Truncate-then-
// write is acceptable here: this file is an informational echo, not a
// record anything depends on surviving a torn write.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("daemon: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("daemon: write %s: %w", path, err)
	}
	return nil
}
