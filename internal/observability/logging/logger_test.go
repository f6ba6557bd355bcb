package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestJSONLoggerTagsServiceAndFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLoggerTo(&buf, "jd-api", "warn")

	logger.Info("dropped")
	logger.Warn("query_classified", "query_type", "STRUCTURED")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected exactly one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["service"] != "jd-api" || entry["msg"] != "query_classified" || entry["query_type"] != "STRUCTURED" {
		t.Fatalf("unexpected entry %+v", entry)
	}
}
