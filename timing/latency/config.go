package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds per-category latency values for the instruction
// timing model.
type TimingConfig struct {
	// ALULatency is the execution latency for integer ALU operations
	// (ADD, SUB, logic, shifts). Default: 1 cycle.
	ALULatency uint64 `json:"alu_latency"`

	// BranchLatency is the base execution latency for branch and jump
	// instructions, independent of misprediction cost. Default: 1 cycle.
	BranchLatency uint64 `json:"branch_latency"`

	// BranchMispredictPenalty is the additional cycles lost when a branch
	// resolves against the fetch direction. Default: 8 cycles.
	BranchMispredictPenalty uint64 `json:"branch_mispredict_penalty"`

	// LoadLatency is the latency for load instructions. Default: 4 cycles.
	LoadLatency uint64 `json:"load_latency"`

	// StoreLatency is the latency for store instructions. Default: 1 cycle.
	StoreLatency uint64 `json:"store_latency"`

	// MultiplyLatency is the latency for MUL/MULH/MULHSU/MULHU and their
	// W-suffixed forms. Default: 3 cycles.
	MultiplyLatency uint64 `json:"multiply_latency"`

	// DivideLatencyMin is the latency for the fastest DIV/DIVU/REM/REMU
	// cases (small operands). Default: 8 cycles.
	DivideLatencyMin uint64 `json:"divide_latency_min"`

	// DivideLatencyMax is the latency for the slowest DIV/DIVU/REM/REMU
	// cases (full-width operands). Default: 20 cycles.
	DivideLatencyMax uint64 `json:"divide_latency_max"`

	// SystemLatency is the latency for ECALL/EBREAK and CSR instructions.
	// Default: 1 cycle.
	SystemLatency uint64 `json:"system_latency"`

	// ICacheHitLatency is charged on an instruction-cache hit.
	// Default: 1 cycle.
	ICacheHitLatency uint64 `json:"icache_hit_latency"`

	// ICacheMissLatency is charged on an instruction-cache miss.
	// Default: 20 cycles.
	ICacheMissLatency uint64 `json:"icache_miss_latency"`
}

// DefaultTimingConfig returns a TimingConfig with the model's baseline
// values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:              1,
		BranchLatency:           1,
		BranchMispredictPenalty: 8,
		LoadLatency:             4,
		StoreLatency:            1,
		MultiplyLatency:         3,
		DivideLatencyMin:        8,
		DivideLatencyMax:        20,
		SystemLatency:           1,
		ICacheHitLatency:        1,
		ICacheMissLatency:       20,
	}
}

// LoadConfig loads a TimingConfig from a JSON file, starting from the
// defaults so a partial file only overrides the fields it names.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that every latency is usable.
func (c *TimingConfig) Validate() error {
	if c.ALULatency == 0 {
		return fmt.Errorf("alu_latency must be > 0")
	}
	if c.BranchLatency == 0 {
		return fmt.Errorf("branch_latency must be > 0")
	}
	if c.LoadLatency == 0 {
		return fmt.Errorf("load_latency must be > 0")
	}
	if c.StoreLatency == 0 {
		return fmt.Errorf("store_latency must be > 0")
	}
	if c.SystemLatency == 0 {
		return fmt.Errorf("system_latency must be > 0")
	}
	if c.DivideLatencyMin > c.DivideLatencyMax {
		return fmt.Errorf("divide_latency_min must be <= divide_latency_max")
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
