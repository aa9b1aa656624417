package crypto

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func setupTestLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logrus.SetOutput(&buf)
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.DebugLevel)
	t.Cleanup(func() {
		logrus.SetOutput(os.Stderr)
		logrus.SetFormatter(&logrus.TextFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
	})
	return &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("Failed to parse log line %q: %v", lines[len(lines)-1], err)
	}
	return entry
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger("EncryptPayload")
	if logger.fields["function"] != "EncryptPayload" {
		t.Errorf("Expected function field, got %v", logger.fields["function"])
	}
	if logger.fields["package"] != "crypto" {
		t.Errorf("Expected package field crypto, got %v", logger.fields["package"])
	}
}

func TestLoggerHelperFields(t *testing.T) {
	buf := setupTestLogger(t)

	NewLogger("DecryptPayload").
		WithField("size", 42).
		WithFields(logrus.Fields{"digest": "abcd"}).
		WithError(errors.New("boom"), "digest_mismatch", "DecryptPayload").
		Warn("decrypt failed")

	entry := lastEntry(t, buf)
	want := map[string]interface{}{
		"function":   "DecryptPayload",
		"size":       float64(42),
		"digest":     "abcd",
		"error":      "boom",
		"error_type": "digest_mismatch",
		"operation":  "DecryptPayload",
		"level":      "warning",
		"msg":        "decrypt failed",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("field %s: expected %v, got %v", k, v, entry[k])
		}
	}
}

func TestLoggerHelperLevels(t *testing.T) {
	buf := setupTestLogger(t)
	logger := NewLogger("DeriveKey")

	tests := []struct {
		name  string
		log   func()
		level string
		msg   string
	}{
		{"entry", func() { logger.Entry("deriving") }, "debug", "Function entry: deriving"},
		{"exit", logger.Exit, "debug", "Function exit: DeriveKey"},
		{"debug", func() { logger.Debug("d") }, "debug", "d"},
		{"warn", func() { logger.Warn("w") }, "warning", "w"},
		{"error", func() { logger.Error("e") }, "error", "e"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.log()
			entry := lastEntry(t, buf)
			if entry["level"] != tt.level || entry["msg"] != tt.msg {
				t.Errorf("Expected %s/%q, got %v/%v", tt.level, tt.msg, entry["level"], entry["msg"])
			}
		})
	}
}

func TestSecureFieldHash(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		preview string
	}{
		{"nil", nil, "nil"},
		{"short", []byte{0xde, 0xad}, "dead"},
		{"exactly eight", []byte{1, 2, 3, 4, 5, 6, 7, 8}, "0102030405060708"},
		{"truncated", []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}, "0102030405060708..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := SecureFieldHash(tt.data, "payload")
			if fields["payload_preview"] != tt.preview {
				t.Errorf("Expected preview %q, got %v", tt.preview, fields["payload_preview"])
			}
			if fields["payload_size"] != len(tt.data) {
				t.Errorf("Expected size %d, got %v", len(tt.data), fields["payload_size"])
			}
		})
	}
}
