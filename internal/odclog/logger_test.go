package odclog

import (
	"context"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		component string
		level     string
		format    string
	}{
		{"json logger", "controller", "info", "json"},
		{"text logger", "controller", "debug", "text"},
		{"invalid level", "controller", "bogus", "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.component, tt.level, tt.format)
			if logger == nil {
				t.Fatal("New() returned nil")
			}
			if logger.component != tt.component {
				t.Errorf("component = %v, want %v", logger.component, tt.component)
			}
		})
	}
}

func TestLogger_WithContext(t *testing.T) {
	logger := New("dds-adapter", "info", "json")
	ctx := context.Background()
	ctx = WithPartition(ctx, "partition-1")
	ctx = WithRunNr(ctx, 7)
	ctx = WithTraceID(ctx, "trace-123")

	entry := logger.WithContext(ctx)
	if entry.Data["component"] != "dds-adapter" {
		t.Errorf("component field = %v, want dds-adapter", entry.Data["component"])
	}
	if entry.Data["partition_id"] != "partition-1" {
		t.Errorf("partition_id field = %v, want partition-1", entry.Data["partition_id"])
	}
	if entry.Data["run_nr"] != uint64(7) {
		t.Errorf("run_nr field = %v, want 7", entry.Data["run_nr"])
	}
	if entry.Data["trace_id"] != "trace-123" {
		t.Errorf("trace_id field = %v, want trace-123", entry.Data["trace_id"])
	}
}

func TestNewTraceID(t *testing.T) {
	a := NewTraceID()
	b := NewTraceID()
	if a == "" || b == "" {
		t.Fatal("NewTraceID() returned empty string")
	}
	if a == b {
		t.Error("NewTraceID() should return unique values")
	}
}
