package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/venturekit/funnel/core"
)

const testConfig = `
funnel:
  over_fetch_factor: 3
  source_timeout_ms: 200
  global_deadline_ms: 1000
  max_in_flight: 8
models:
  light:
    kind: linear
    name: light-v1
    weights:
      confidence: 1.0
      source_weight: 1.0
  heavy:
    kind: affinity
    name: heavy-v1
    weights:
      source_weight: 1.0
sources:
  - name: agent_catalog
    type: agent
    weight: 0.6
    kind: static
    ids: [a1, a2, a3]
  - name: content_trending
    type: content
    weight: 0.4
    kind: static
    ids: [c1, c2]
postprocess:
  blocklist: [a3]
  rules:
    - 'item.confidence < 0.05'
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "funnel.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadAndBuild(t *testing.T) {
	cfg, err := Load(writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Sources) != 2 || cfg.Funnel.MaxInFlight != 8 {
		t.Fatalf("config = %+v", cfg)
	}

	eng, err := cfg.Build(nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer eng.Close()

	if got := len(eng.Registry().All()); got != 2 {
		t.Fatalf("registered sources = %d, want 2", got)
	}

	result, err := eng.Recommend(context.Background(), &core.Request{
		UserID:     "u1",
		ItemTypes:  []core.ItemType{core.ItemTypeAgent, core.ItemTypeContent},
		MaxResults: 5,
	})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(result.Items) == 0 {
		t.Fatal("Recommend() returned no items")
	}
	for _, it := range result.Items {
		if it.ID == "a3" {
			t.Error("blocklisted item a3 leaked into result")
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("Load() error = nil, want error")
	}
}

func TestBuildRejectsBadSource(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "unknown source kind",
			yaml: `
sources:
  - name: x
    type: agent
    weight: 0.5
    kind: carrier_pigeon
`,
		},
		{
			name: "rpc without endpoint",
			yaml: `
sources:
  - name: x
    type: agent
    weight: 0.5
    kind: rpc
`,
		},
		{
			name: "duplicate source name",
			yaml: `
sources:
  - name: x
    type: agent
    weight: 0.5
  - name: x
    type: content
    weight: 0.5
`,
		},
		{
			name: "invalid rule expression",
			yaml: `
postprocess:
  rules:
    - 'item.score >='
`,
		},
		{
			name: "unknown model kind",
			yaml: `
models:
  light:
    kind: crystal_ball
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.yaml))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if _, err := cfg.Build(nil); err == nil {
				t.Error("Build() error = nil, want error")
			}
		})
	}
}
