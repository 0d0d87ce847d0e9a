package config

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFlexibleStringSliceParsesStrings(t *testing.T) {
	var f FlexibleStringSlice
	if err := json.Unmarshal([]byte(`["a","b"]`), &f); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(f) != 2 || f[0] != "a" || f[1] != "b" {
		t.Fatalf("f = %v, want [a b]", f)
	}
}

func TestFlexibleStringSliceCoercesNumbers(t *testing.T) {
	var f FlexibleStringSlice
	if err := json.Unmarshal([]byte(`[1, 2, 3]`), &f); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(f) != 3 || f[0] != "1" || f[2] != "3" {
		t.Fatalf("f = %v, want [1 2 3]", f)
	}
}

func TestFlexibleStringSliceRejectsInvalidJSON(t *testing.T) {
	var f FlexibleStringSlice
	if err := json.Unmarshal([]byte(`not json`), &f); err == nil {
		t.Fatal("expected an error for invalid JSON")
	}
}

func TestIsManagedModeRequiresBothModeAndDSN(t *testing.T) {
	cfg := &Config{}
	if cfg.IsManagedMode() {
		t.Fatal("expected IsManagedMode() false by default")
	}
	cfg.Database.Mode = "managed"
	if cfg.IsManagedMode() {
		t.Fatal("expected IsManagedMode() false without a DSN")
	}
	cfg.Database.PostgresDSN = "postgres://x"
	if !cfg.IsManagedMode() {
		t.Fatal("expected IsManagedMode() true with mode+DSN set")
	}
}

func TestToBackoffConfigDefaultsWhenUnset(t *testing.T) {
	cc := CronConfig{}
	got := cc.ToBackoffConfig()
	want := DefaultBackoffConfig()
	if got != want {
		t.Fatalf("ToBackoffConfig(empty) = %+v, want defaults %+v", got, want)
	}
}

func TestToBackoffConfigAppliesOverrides(t *testing.T) {
	cc := CronConfig{MaxRetries: 5, RetryBaseDelay: "1s", RetryMaxDelay: "10s"}
	got := cc.ToBackoffConfig()
	if got.MaxRetries != 5 || got.BaseDelay != time.Second || got.MaxDelay != 10*time.Second {
		t.Fatalf("ToBackoffConfig = %+v, want 5/1s/10s", got)
	}
}

func TestToBackoffConfigIgnoresUnparseableDurations(t *testing.T) {
	cc := CronConfig{RetryBaseDelay: "not-a-duration"}
	got := cc.ToBackoffConfig()
	if got.BaseDelay != DefaultBackoffConfig().BaseDelay {
		t.Fatalf("BaseDelay = %v, want default preserved on parse failure", got.BaseDelay)
	}
}

func TestReplaceFromCopiesFields(t *testing.T) {
	dst := &Config{}
	src := &Config{}
	src.Gateway.Port = 9999
	src.Bindings = []AgentBinding{{AgentID: "a1"}}

	dst.ReplaceFrom(src)

	if dst.Gateway.Port != 9999 {
		t.Fatalf("Gateway.Port = %d, want 9999", dst.Gateway.Port)
	}
	if len(dst.Bindings) != 1 || dst.Bindings[0].AgentID != "a1" {
		t.Fatalf("Bindings = %v, want [{a1}]", dst.Bindings)
	}
}
