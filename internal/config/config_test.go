package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validHCL = `
tournament {
  num_runs       = 2
  seats          = 2
  starting_stack = 500
  seed_base      = 42

  blind_level {
    hands = 10
    sb    = 5
    bb    = 10
  }

  blind_level {
    sb = 10
    bb = 20
  }
}

agent "alice" {
  model = "anthropic/claude"
}

agent "bob" {
  model = "openai/gpt"
}

agent_settings {
  max_retries = 3
}

output {
  log_dir = "./out"
  verbose = true
}
`

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "bench.hcl")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadAndValidateValidConfig(t *testing.T) {
	t.Parallel()
	path := writeTemp(t, validHCL)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Tournament.Seats != 2 {
		t.Errorf("Seats = %d, want 2", cfg.Tournament.Seats)
	}
	if len(cfg.Agents) != 2 {
		t.Fatalf("len(Agents) = %d, want 2", len(cfg.Agents))
	}
	if cfg.Agents[0].Name != "alice" || cfg.Agents[1].Name != "bob" {
		t.Errorf("agent names = %q, %q", cfg.Agents[0].Name, cfg.Agents[1].Name)
	}

	sched, err := cfg.BlindSchedule()
	if err != nil {
		t.Fatalf("BlindSchedule: %v", err)
	}
	sb, bb := sched.GetBlinds(1)
	if sb != 5 || bb != 10 {
		t.Errorf("hand 1 blinds = %d/%d, want 5/10", sb, bb)
	}
	sb, bb = sched.GetBlinds(11)
	if sb != 10 || bb != 20 {
		t.Errorf("hand 11 blinds = %d/%d, want 10/20", sb, bb)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := Load("/nonexistent/path.hcl"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateRejectsSeatAgentMismatch(t *testing.T) {
	t.Parallel()
	path := writeTemp(t, `
tournament {
  seats          = 3
  starting_stack = 500
  blind_level {
  sb = 5
  bb = 10
}
}
agent "alice" { model = "anthropic/claude" }
agent_settings { max_retries = 3 }
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for len(agents) != seats")
	}
}

func TestValidateRejectsNonIncreasingBlinds(t *testing.T) {
	t.Parallel()
	path := writeTemp(t, `
tournament {
  seats          = 2
  starting_stack = 500
  blind_level {
  hands = 5
  sb    = 10
  bb    = 20
}
  blind_level {
  sb = 5
  bb = 10
}
}
agent "alice" { model = "a" }
agent "bob" { model = "b" }
agent_settings { max_retries = 3 }
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-increasing bb across levels")
	}
}

func TestValidateRejectsSeatsOutOfRange(t *testing.T) {
	t.Parallel()
	path := writeTemp(t, `
tournament {
  seats          = 1
  starting_stack = 500
  blind_level {
  sb = 5
  bb = 10
}
}
agent "alice" { model = "a" }
agent_settings { max_retries = 3 }
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for seats < 2")
	}
}
