// Package config loads and validates a benchmark run's HCL configuration
// (§6 "Configuration"), following the teacher's parse-then-validate split in
// internal/server/config.go: gohcl decodes the file into typed blocks, then
// Validate is called separately so a caller (tests, the health-check
// subcommand) can load a config without immediately enforcing it.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/pokerbench/pokerbench/internal/blinds"
	"github.com/pokerbench/pokerbench/internal/modeltransport"
	"github.com/pokerbench/pokerbench/internal/orchestrator"
)

// Config is the top-level decoded shape of a benchmark config file.
type Config struct {
	Tournament    TournamentBlock `hcl:"tournament,block"`
	Agents        []AgentBlock    `hcl:"agent,block"`
	AgentSettings AgentSettings   `hcl:"agent_settings,block"`
	Output        OutputBlock     `hcl:"output,block"`
}

// TournamentBlock is the `tournament { ... }` block.
type TournamentBlock struct {
	NumRuns       int            `hcl:"num_runs,optional"`
	Seats         int            `hcl:"seats"`
	StartingStack int            `hcl:"starting_stack"`
	SeedBase      int            `hcl:"seed_base,optional"`
	BlindLevels   []BlindLevel   `hcl:"blind_level,block"`
}

// BlindLevel is one `blind_level { ... }` entry within tournament. Hands
// omitted or 0 means the level runs indefinitely, and must be last.
type BlindLevel struct {
	Hands int `hcl:"hands,optional"`
	SB    int `hcl:"sb"`
	BB    int `hcl:"bb"`
}

// AgentBlock is one `agent "name" { ... }` block.
type AgentBlock struct {
	Name      string          `hcl:"name,label"`
	Model     string          `hcl:"model"`
	Reasoning *ReasoningBlock `hcl:"reasoning,block"`
	Provider  *ProviderBlock  `hcl:"provider,block"`
}

// ReasoningBlock mirrors the `agents[].reasoning` shape in §6.
type ReasoningBlock struct {
	Enabled          bool   `hcl:"enabled,optional"`
	Effort           string `hcl:"effort,optional"` // low|medium|high|xhigh
	MaxTokens        int    `hcl:"max_tokens,optional"`
	IncludeReasoning bool   `hcl:"include_reasoning,optional"`
	PreserveBlocks   bool   `hcl:"preserve_blocks,optional"`
}

// ProviderBlock mirrors the `agents[].provider` shape in §6.
type ProviderBlock struct {
	Order             []string `hcl:"order,optional"`
	AllowFallbacks    bool     `hcl:"allow_fallbacks,optional"`
	RequireParameters bool     `hcl:"require_parameters,optional"`
	DataCollection    string   `hcl:"data_collection,optional"` // allow|deny
	Only              []string `hcl:"only,optional"`
	Ignore            []string `hcl:"ignore,optional"`
	Quantizations     []string `hcl:"quantizations,optional"`
}

// AgentSettings is the `agent_settings { ... }` block, defaults shared by
// every agent unless an agent overrides them.
type AgentSettings struct {
	MaxRetries      int             `hcl:"max_retries,optional"`
	DefaultReasoning *ReasoningBlock `hcl:"default_reasoning,block"`
}

// OutputBlock is the `output { ... }` block.
type OutputBlock struct {
	LogDir  string `hcl:"log_dir,optional"`
	Verbose bool   `hcl:"verbose,optional"`
}

// Load parses filename as HCL and decodes it into a Config, the way
// LoadServerConfig parses and decodes ServerConfig - unlike the teacher,
// there is no "file missing, return defaults" case: a benchmark run without
// a config file has no agents to run, which is always a fatal config error.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: parsing %s: %s", filename, diags.Error())
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("config: decoding %s: %s", filename, diags.Error())
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults fills in zero-valued optional fields, the same spirit as
// LoadServerConfig's post-decode default pass.
func applyDefaults(cfg *Config) {
	if cfg.Tournament.NumRuns == 0 {
		cfg.Tournament.NumRuns = 1
	}
	if cfg.AgentSettings.MaxRetries == 0 {
		cfg.AgentSettings.MaxRetries = 3
	}
	if cfg.Output.LogDir == "" {
		cfg.Output.LogDir = "./logs"
	}
}

// Validate enforces every config error named fatal-at-startup by §7: an
// empty or malformed blind schedule, a seat count outside [2,8], and
// len(agents) != seats.
func (c *Config) Validate() error {
	t := c.Tournament

	if t.NumRuns < 1 {
		return fmt.Errorf("config: tournament.num_runs must be >= 1")
	}
	if t.Seats < 2 || t.Seats > 8 {
		return fmt.Errorf("config: tournament.seats must be in [2,8], got %d", t.Seats)
	}
	if t.StartingStack < 1 {
		return fmt.Errorf("config: tournament.starting_stack must be >= 1")
	}
	if len(t.BlindLevels) == 0 {
		return fmt.Errorf("config: tournament must declare at least one blind_level")
	}

	prevBB := 0
	for i, lvl := range t.BlindLevels {
		if lvl.SB <= 0 {
			return fmt.Errorf("config: blind_level %d: sb must be > 0", i)
		}
		if lvl.BB <= lvl.SB {
			return fmt.Errorf("config: blind_level %d: bb must exceed sb", i)
		}
		if lvl.BB <= prevBB {
			return fmt.Errorf("config: blind_level %d: bb must strictly increase across levels", i)
		}
		prevBB = lvl.BB
		if lvl.Hands == 0 && i != len(t.BlindLevels)-1 {
			return fmt.Errorf("config: blind_level %d: only the last level may be infinite (hands omitted)", i)
		}
		if lvl.Hands != 0 && i == len(t.BlindLevels)-1 {
			return fmt.Errorf("config: last blind_level must be infinite (hands omitted)")
		}
	}

	if len(c.Agents) != t.Seats {
		return fmt.Errorf("config: len(agents)=%d must equal tournament.seats=%d", len(c.Agents), t.Seats)
	}

	names := make(map[string]bool, len(c.Agents))
	for _, a := range c.Agents {
		if a.Model == "" {
			return fmt.Errorf("config: agent %q: model is required", a.Name)
		}
		if names[a.Name] {
			return fmt.Errorf("config: duplicate agent name %q", a.Name)
		}
		names[a.Name] = true
	}

	if c.AgentSettings.MaxRetries < 1 {
		return fmt.Errorf("config: agent_settings.max_retries must be >= 1")
	}

	return nil
}

// BlindSchedule builds a blinds.Schedule from the tournament block's
// blind_level entries, assigning level numbers by position since the HCL
// shape itself carries no explicit level index.
func (c *Config) BlindSchedule() (*blinds.Schedule, error) {
	levels := make([]blinds.Level, len(c.Tournament.BlindLevels))
	for i, l := range c.Tournament.BlindLevels {
		levels[i] = blinds.Level{Level: i + 1, Hands: l.Hands, SB: l.SB, BB: l.BB}
	}
	return blinds.NewSchedule(levels)
}

// reasoningParams converts a decoded reasoning block into the wire-shaped
// modeltransport.Reasoning, falling back to agent_settings.default_reasoning
// when an agent doesn't declare its own.
func reasoningParams(agent, fallback *ReasoningBlock) *modeltransport.Reasoning {
	r := agent
	if r == nil {
		r = fallback
	}
	if r == nil {
		return nil
	}
	return &modeltransport.Reasoning{
		Enabled:          r.Enabled,
		Effort:           r.Effort,
		MaxTokens:        r.MaxTokens,
		IncludeReasoning: r.IncludeReasoning,
		PreserveBlocks:   r.PreserveBlocks,
	}
}

func providerParams(p *ProviderBlock) *modeltransport.Provider {
	if p == nil {
		return nil
	}
	return &modeltransport.Provider{
		Order:             p.Order,
		AllowFallbacks:    p.AllowFallbacks,
		RequireParameters: p.RequireParameters,
		DataCollection:    p.DataCollection,
		Only:              p.Only,
		Ignore:            p.Ignore,
		Quantizations:     p.Quantizations,
	}
}

var validReasoningEfforts = map[string]bool{"": true, "low": true, "medium": true, "high": true, "xhigh": true}

// geminiModelPatterns are substrings identifying models that require
// preserve_blocks=true to keep reasoning across turns of a multi-turn
// conversation (OpenRouter's reasoning-tokens guide flags Gemini
// specifically here).
var geminiModelPatterns = []string{"google/gemini", "gemini-"}

func isGeminiModel(model string) bool {
	m := strings.ToLower(model)
	for _, p := range geminiModelPatterns {
		if strings.Contains(m, p) {
			return true
		}
	}
	return false
}

// ReasoningIssues validates every agent's reasoning block, returning hard
// errors (invalid effort level) separately from warnings (a Gemini model
// missing preserve_blocks, which degrades rather than fails a run) so a
// caller like the health-check subcommand can report PASS/WARN/FAIL per
// check instead of collapsing both into one failure.
func (c *Config) ReasoningIssues() (errs, warnings []string) {
	for _, a := range c.Agents {
		r := a.Reasoning
		if r == nil || !r.Enabled {
			continue
		}
		if !validReasoningEfforts[r.Effort] {
			errs = append(errs, fmt.Sprintf("agent %q: invalid reasoning effort %q (valid: low, medium, high, xhigh)", a.Name, r.Effort))
		}
		if isGeminiModel(a.Model) && !r.PreserveBlocks {
			warnings = append(warnings, fmt.Sprintf("agent %q: gemini models require preserve_blocks=true for multi-turn reasoning", a.Name))
		}
	}
	return errs, warnings
}

// knownProviders are the OpenRouter provider slugs recognized in provider
// order/only/ignore lists. An unrecognized name only warns - OpenRouter
// adds providers over time and an unknown one might just be new.
var knownProviders = map[string]bool{
	"openai": true, "anthropic": true, "google": true, "google-vertex": true,
	"together": true, "deepinfra": true, "groq": true, "fireworks": true,
	"lepton": true, "mancer": true, "novita": true, "mistral": true,
	"perplexity": true, "replicate": true, "aws-bedrock": true, "azure": true,
	"cohere": true, "ai21": true, "anyscale": true, "cloudflare": true,
	"deepseek": true, "hyperbolic": true, "infermatic": true, "lambda": true,
	"lynn": true, "neversleep": true, "parasail": true, "featherless": true,
}

// ProviderIssues validates every agent's provider block: an invalid
// data_collection value is a hard error, while conflicting order+only and
// unrecognized provider names only warn.
func (c *Config) ProviderIssues() (errs, warnings []string) {
	for _, a := range c.Agents {
		p := a.Provider
		if p == nil {
			continue
		}
		if len(p.Order) > 0 && len(p.Only) > 0 {
			warnings = append(warnings, fmt.Sprintf("agent %q: both order and only specified, only takes precedence", a.Name))
		}
		if p.DataCollection != "" && p.DataCollection != "allow" && p.DataCollection != "deny" {
			errs = append(errs, fmt.Sprintf("agent %q: invalid data_collection %q (valid: allow, deny)", a.Name, p.DataCollection))
		}
		all := make([]string, 0, len(p.Order)+len(p.Only)+len(p.Ignore))
		all = append(all, p.Order...)
		all = append(all, p.Only...)
		all = append(all, p.Ignore...)
		for _, name := range all {
			if !knownProviders[strings.ToLower(name)] {
				warnings = append(warnings, fmt.Sprintf("agent %q: unknown provider %q (may be valid, just not in known list)", a.Name, name))
			}
		}
	}
	return errs, warnings
}

// BuildAgentDefs translates the decoded agent blocks into
// orchestrator.AgentDef, assigning seat numbers by declaration order (the
// HCL shape carries no explicit seat index, the same position-assigns-index
// choice BlindSchedule makes for blind levels) and merging each agent's
// reasoning block with agent_settings.default_reasoning.
func (c *Config) BuildAgentDefs() []orchestrator.AgentDef {
	defs := make([]orchestrator.AgentDef, len(c.Agents))
	for i, a := range c.Agents {
		defs[i] = orchestrator.AgentDef{
			SeatNumber: i,
			Name:       a.Name,
			Model:      a.Model,
			MaxRetries: c.AgentSettings.MaxRetries,
			Params: modeltransport.Params{
				Reasoning: reasoningParams(a.Reasoning, c.AgentSettings.DefaultReasoning),
				Provider:  providerParams(a.Provider),
			},
		}
	}
	return defs
}
