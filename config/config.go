// Package config holds the architecture, process and sizing parameters that
// drive tile construction and transistor sizing.
//
// Configurations are loaded from YAML or JSON files. Values not present in a
// file keep the defaults returned by DefaultConfig.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"go.yaml.in/yaml/v3"
)

// SchemaVersion is the configuration schema written by SaveConfig.
const SchemaVersion = "1.2.0"

// schemaConstraint lists the schema versions this build can read.
const schemaConstraint = "^1"

// Process families understood by the area model.
const (
	FamilyBulk    = "bulk"
	FamilyFinFET  = "finfet"
	FamilyFinFET7 = "finfet7"
)

// Optimization modes.
const (
	ModeLocal  = "local"
	ModeGlobal = "global"
)

// Carry chain variants.
const (
	CarryRipple = "ripple"
	CarrySkip   = "skip"
)

// Config is the flat configuration object handed to the tile builder and the
// sizing engine.
type Config struct {
	// Version is the schema version of the file this config was read from.
	Version string `json:"version" yaml:"version"`

	Arch    ArchConfig    `json:"arch" yaml:"arch"`
	Process ProcessConfig `json:"process" yaml:"process"`
	Sizing  SizingConfig  `json:"sizing" yaml:"sizing"`
	Spice   SpiceConfig   `json:"spice" yaml:"spice"`
	Output  OutputConfig  `json:"output" yaml:"output"`
}

// ArchConfig describes the FPGA architecture. Field names follow the usual
// VPR-style architecture parameters.
type ArchConfig struct {
	// N is the number of BLEs per logic cluster.
	N int `json:"N" yaml:"N"`
	// K is the LUT size (4, 5 or 6).
	K int `json:"K" yaml:"K"`
	// I is the number of cluster inputs.
	I int `json:"I" yaml:"I"`
	// W is the routing channel width.
	W int `json:"W" yaml:"W"`
	// L is the routing wire length in tiles.
	L int `json:"L" yaml:"L"`
	// Fs is the switch block flexibility.
	Fs int `json:"Fs" yaml:"Fs"`
	// Fcin and Fcout are the connection block flexibilities.
	Fcin  float64 `json:"Fcin" yaml:"Fcin"`
	Fcout float64 `json:"Fcout" yaml:"Fcout"`
	// Fclocal is the local interconnect flexibility.
	Fclocal float64 `json:"Fclocal" yaml:"Fclocal"`
	// Or is the number of BLE outputs to general routing.
	Or int `json:"Or" yaml:"Or"`
	// Ofb is the number of BLE outputs to local routing.
	Ofb int `json:"Ofb" yaml:"Ofb"`
	// Rsel is the LUT input letter shared with the register select, or "z".
	Rsel string `json:"Rsel" yaml:"Rsel"`
	// Rfb lists the LUT input letters that accept register feedback, or "z".
	Rfb string `json:"Rfb" yaml:"Rfb"`

	UseFLUT  bool `json:"use_fluts" yaml:"use_fluts"`
	UseTgate bool `json:"use_tgate" yaml:"use_tgate"`

	EnableCarryChain bool   `json:"enable_carry_chain" yaml:"enable_carry_chain"`
	CarryChainType   string `json:"carry_chain_type" yaml:"carry_chain_type"`
	FAsPerFLUT       int    `json:"FAs_per_flut" yaml:"FAs_per_flut"`
	SkipSize         int    `json:"skip_size" yaml:"skip_size"`

	EnableBRAM bool       `json:"enable_bram" yaml:"enable_bram"`
	BRAM       BRAMConfig `json:"bram" yaml:"bram"`
}

// BRAMConfig describes the block RAM array.
type BRAMConfig struct {
	Rows int `json:"rows" yaml:"rows"`
	Cols int `json:"cols" yaml:"cols"`
	// LocalMuxSize is the number of routing inputs per RAM input mux.
	LocalMuxSize int `json:"local_mux_size" yaml:"local_mux_size"`
}

// MetalLayer is one entry of the metal stack.
type MetalLayer struct {
	// R is the resistance per nanometre in ohms.
	R float64 `json:"r" yaml:"r"`
	// C is the capacitance per nanometre in femtofarads.
	C float64 `json:"c" yaml:"c"`
}

// ProcessConfig holds technology parameters.
type ProcessConfig struct {
	Family string `json:"family" yaml:"family"`
	// MinTranWidth is the minimum transistor width in nm (planar only).
	MinTranWidth float64 `json:"min_tran_width" yaml:"min_tran_width"`
	// MinWidthTranArea is the layout area of a minimum-width transistor in nm^2.
	MinWidthTranArea float64 `json:"min_width_tran_area" yaml:"min_width_tran_area"`
	// SRAMCellArea is the area of one SRAM cell in minimum-width transistor units.
	SRAMCellArea float64 `json:"sram_cell_area" yaml:"sram_cell_area"`
	// GateLength is the transistor gate length in nm.
	GateLength float64 `json:"gate_length" yaml:"gate_length"`
	// RestLengthFactor multiplies GateLength to give the level restorer gate
	// length. Raise it when level restorers fight their pass transistors.
	RestLengthFactor float64 `json:"rest_length_factor" yaml:"rest_length_factor"`

	VDD     float64 `json:"vdd" yaml:"vdd"`
	VSRAM   float64 `json:"vsram" yaml:"vsram"`
	VSRAMN  float64 `json:"vsram_n" yaml:"vsram_n"`
	VBoost  float64 `json:"vboost" yaml:"vboost"`
	Temp    float64 `json:"temp" yaml:"temp"`
	Library string  `json:"model_library" yaml:"model_library"`

	MetalStack []MetalLayer `json:"metal_stack" yaml:"metal_stack"`

	// ClusterHeightRatio scales intra-cluster wire lengths.
	ClusterHeightRatio float64 `json:"cluster_height_ratio" yaml:"cluster_height_ratio"`

	// AreaCoefficients overrides the area fit of the selected family.
	AreaCoefficients *AreaCoefficients `json:"area_coefficients,omitempty" yaml:"area_coefficients,omitempty"`
}

// AreaCoefficients are the a0 + a1*s + a2*sqrt(s) fits for diffusion-isolated
// and plain devices.
type AreaCoefficients struct {
	Isolated [3]float64 `json:"isolated" yaml:"isolated"`
	Plain    [3]float64 `json:"plain" yaml:"plain"`
}

// SizingConfig controls the optimization loop.
type SizingConfig struct {
	Mode string `json:"opt_type" yaml:"opt_type"`
	// AreaWeight and DelayWeight are the exponents of the cost function
	// area^AreaWeight * delay^DelayWeight.
	AreaWeight  float64 `json:"area_opt_weight" yaml:"area_opt_weight"`
	DelayWeight float64 `json:"delay_opt_weight" yaml:"delay_opt_weight"`

	MaxIterations      int     `json:"max_iterations" yaml:"max_iterations"`
	QuickMode          bool    `json:"quick_mode" yaml:"quick_mode"`
	QuickModeThreshold float64 `json:"quick_mode_threshold" yaml:"quick_mode_threshold"`

	// ReERF is the number of top candidates re-balanced after ranking.
	ReERF         int     `json:"re_erf" yaml:"re_erf"`
	ERFTolerance  float64 `json:"erf_tolerance" yaml:"erf_tolerance"`
	ERFMaxPasses  int     `json:"erf_max_passes" yaml:"erf_max_passes"`
	MaxRangeRound int     `json:"max_range_rounds" yaml:"max_range_rounds"`

	// MaxCombinations caps the Cartesian product evaluated per range search.
	MaxCombinations int `json:"max_combinations" yaml:"max_combinations"`

	// DelayWeights maps sub-circuit kinds to their weight in the
	// representative critical path.
	DelayWeights map[string]float64 `json:"delay_weights" yaml:"delay_weights"`
}

// SpiceConfig configures the simulator driver.
type SpiceConfig struct {
	Executable string        `json:"executable" yaml:"executable"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
	// CacheEntries bounds the number of memoized measurement rows; 0 disables caching.
	CacheEntries int `json:"cache_entries" yaml:"cache_entries"`
	CacheWays    int `json:"cache_ways" yaml:"cache_ways"`
}

// OutputConfig controls where results go.
type OutputConfig struct {
	Dir   string `json:"dir" yaml:"dir"`
	Plot  bool   `json:"plot" yaml:"plot"`
	Mongo string `json:"mongo,omitempty" yaml:"mongo,omitempty"`
}

// DefaultDelayWeights returns the representative critical path weights.
func DefaultDelayWeights() map[string]float64 {
	return map[string]float64{
		"sb_mux":             0.4107,
		"cb_mux":             0.0989,
		"local_mux":          0.0736,
		"lut_a":              0.0396,
		"lut_b":              0.0379,
		"lut_c":              0.0704,
		"lut_d":              0.0202,
		"lut_e":              0.0121,
		"lut_f":              0.0186,
		"flut_mux":           0.0186,
		"local_ble_output":   0.0267,
		"general_ble_output": 0.0326,
		"carry_chain":        0.0200,
		"ram":                0.1500,
	}
}

// DefaultConfig returns a configuration for a 22nm planar bulk process and a
// K=6, N=10 cluster.
func DefaultConfig() *Config {
	return &Config{
		Version: SchemaVersion,
		Arch: ArchConfig{
			N:              10,
			K:              6,
			I:              40,
			W:              320,
			L:              4,
			Fs:             3,
			Fcin:           0.2,
			Fcout:          0.025,
			Fclocal:        0.5,
			Or:             2,
			Ofb:            1,
			Rsel:           "c",
			Rfb:            "c",
			CarryChainType: CarryRipple,
			FAsPerFLUT:     2,
			SkipSize:       4,
			BRAM: BRAMConfig{
				Rows:         512,
				Cols:         32,
				LocalMuxSize: 25,
			},
		},
		Process: ProcessConfig{
			Family:           FamilyBulk,
			MinTranWidth:     45,
			MinWidthTranArea: 33864,
			SRAMCellArea:     4,
			GateLength:       22,
			RestLengthFactor: 2,
			VDD:              0.8,
			VSRAM:            1.0,
			VSRAMN:           0.0,
			VBoost:           1.0,
			Temp:             25,
			Library:          "../spice_models/ptm_22nm_bulk_hp.l",
			MetalStack: []MetalLayer{
				{R: 0.054825, C: 0.000175},
				{R: 0.007862, C: 0.000215},
			},
			ClusterHeightRatio: 1.0,
		},
		Sizing: SizingConfig{
			Mode:               ModeGlobal,
			AreaWeight:         1,
			DelayWeight:        1,
			MaxIterations:      6,
			QuickMode:          false,
			QuickModeThreshold: 0.02,
			ReERF:              1,
			ERFTolerance:       0.1,
			ERFMaxPasses:       4,
			MaxRangeRound:      10,
			MaxCombinations:    4000,
			DelayWeights:       DefaultDelayWeights(),
		},
		Spice: SpiceConfig{
			Executable:   "hspice",
			Timeout:      10 * time.Minute,
			CacheEntries: 4096,
			CacheWays:    8,
		},
		Output: OutputConfig{
			Dir:  "fpga_out",
			Plot: true,
		},
	}
}

// LoadConfig loads a Config from a YAML (.yaml, .yml) or JSON file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	config.Version = ""

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if config.Version == "" {
		config.Version = SchemaVersion
	}
	if config.Sizing.DelayWeights == nil {
		config.Sizing.DelayWeights = DefaultDelayWeights()
	}

	return config, nil
}

// SaveConfig writes a Config to a file, picking the encoding from the
// extension like LoadConfig does.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := checkSchema(c.Version); err != nil {
		return err
	}

	a := c.Arch
	if a.K < 4 || a.K > 6 {
		return fmt.Errorf("K must be 4, 5 or 6, got %d", a.K)
	}
	if a.N <= 0 || a.I <= 0 || a.W <= 0 || a.L <= 0 {
		return fmt.Errorf("N, I, W and L must be > 0")
	}
	if a.Fs < 2 {
		return fmt.Errorf("Fs must be >= 2")
	}
	if a.Fcin <= 0 || a.Fcout <= 0 || a.Fclocal <= 0 {
		return fmt.Errorf("Fcin, Fcout and Fclocal must be > 0")
	}
	if len(a.Rsel) != 1 {
		return fmt.Errorf("Rsel must be a single LUT input letter or 'z'")
	}
	if a.Rsel != "z" && !isInputLetter(a.Rsel, a.K) {
		return fmt.Errorf("Rsel %q is not an input of a %d-LUT", a.Rsel, a.K)
	}
	if a.Rfb != "z" {
		for _, r := range a.Rfb {
			if !isInputLetter(string(r), a.K) {
				return fmt.Errorf("Rfb letter %q is not an input of a %d-LUT", r, a.K)
			}
		}
	}
	if a.EnableCarryChain {
		if a.CarryChainType != CarryRipple && a.CarryChainType != CarrySkip {
			return fmt.Errorf("carry_chain_type must be %q or %q", CarryRipple, CarrySkip)
		}
		if a.FAsPerFLUT < 1 || a.FAsPerFLUT > 2 {
			return fmt.Errorf("FAs_per_flut must be 1 or 2")
		}
		if a.CarryChainType == CarrySkip && a.SkipSize < 2 {
			return fmt.Errorf("skip_size must be >= 2")
		}
	}
	if a.EnableBRAM && (a.BRAM.Rows < 16 || a.BRAM.Cols < 2) {
		return fmt.Errorf("bram rows must be >= 16 and cols >= 2")
	}

	p := c.Process
	switch p.Family {
	case FamilyBulk:
		if p.MinTranWidth <= 0 {
			return fmt.Errorf("min_tran_width must be > 0 for planar processes")
		}
	case FamilyFinFET, FamilyFinFET7:
	default:
		return fmt.Errorf("unknown process family %q", p.Family)
	}
	if p.MinWidthTranArea <= 0 || p.SRAMCellArea <= 0 {
		return fmt.Errorf("min_width_tran_area and sram_cell_area must be > 0")
	}
	if p.VDD <= 0 {
		return fmt.Errorf("vdd must be > 0")
	}
	if len(p.MetalStack) == 0 {
		return fmt.Errorf("metal_stack must have at least one layer")
	}

	s := c.Sizing
	if s.Mode != ModeLocal && s.Mode != ModeGlobal {
		return fmt.Errorf("opt_type must be %q or %q", ModeLocal, ModeGlobal)
	}
	if s.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be > 0")
	}
	if s.ReERF <= 0 {
		return fmt.Errorf("re_erf must be > 0")
	}
	if s.ERFTolerance <= 0 || s.ERFMaxPasses <= 0 {
		return fmt.Errorf("erf_tolerance and erf_max_passes must be > 0")
	}
	if s.MaxCombinations < 8 {
		return fmt.Errorf("max_combinations must be >= 8")
	}
	if s.QuickModeThreshold < 0 {
		return fmt.Errorf("quick_mode_threshold must be >= 0")
	}

	return nil
}

// UseFinFET reports whether device sizes are fin counts.
func (c *Config) UseFinFET() bool {
	return c.Process.Family != FamilyBulk
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Process.MetalStack = append([]MetalLayer(nil), c.Process.MetalStack...)
	if c.Process.AreaCoefficients != nil {
		coeffs := *c.Process.AreaCoefficients
		clone.Process.AreaCoefficients = &coeffs
	}
	clone.Sizing.DelayWeights = make(map[string]float64, len(c.Sizing.DelayWeights))
	for k, v := range c.Sizing.DelayWeights {
		clone.Sizing.DelayWeights[k] = v
	}
	return &clone
}

func checkSchema(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid config version %q: %w", version, err)
	}
	constraint, err := semver.NewConstraint(schemaConstraint)
	if err != nil {
		return err
	}
	if !constraint.Check(v) {
		return fmt.Errorf("config version %s is not supported (want %s)", v, schemaConstraint)
	}
	return nil
}

func isInputLetter(letter string, k int) bool {
	if len(letter) != 1 {
		return false
	}
	idx := int(letter[0] - 'a')
	return idx >= 0 && idx < k
}
