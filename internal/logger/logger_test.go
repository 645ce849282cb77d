package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Property: production log entries are JSON objects carrying level, time and message
func TestProperty_ProductionLogsAreStructured(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every entry decodes as JSON with the message intact", prop.ForAll(
		func(message string, productID string) bool {
			var buf bytes.Buffer

			encoderConfig := zap.NewProductionEncoderConfig()
			core := zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(&buf),
				zapcore.DebugLevel,
			)

			logger := zap.New(core)
			logger.Error(message, zap.String("product_id", productID))
			_ = logger.Sync()

			var entry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Logf("FAIL: entry is not JSON: %v", err)
				return false
			}

			for _, key := range []string{encoderConfig.LevelKey, encoderConfig.TimeKey, encoderConfig.MessageKey} {
				if _, ok := entry[key]; !ok {
					t.Logf("FAIL: entry missing %q", key)
					return false
				}
			}

			return entry[encoderConfig.MessageKey] == message && entry["product_id"] == productID
		},
		gen.AnyString(),
		gen.Identifier(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestNew(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		logger, err := New(env)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", env, err)
		}
		if logger == nil {
			t.Fatalf("New(%q) returned nil logger", env)
		}
	}
}

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	fallback := zap.NewNop()
	scoped := zap.New(core).With(zap.String("request_id", "req-1"))

	if got := FromContext(context.Background(), fallback); got != fallback {
		t.Fatal("expected fallback logger for empty context")
	}

	ctx := WithContext(context.Background(), scoped)
	FromContext(ctx, fallback).Info("scoped")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["request_id"] != "req-1" {
		t.Fatalf("expected request_id field, got %v", entries[0].ContextMap())
	}
}
