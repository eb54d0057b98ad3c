package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/open-edge-platform/pkg-pipeline/internal/config/validate"
	"github.com/open-edge-platform/pkg-pipeline/internal/utils/security"
	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"
)

// PipelineFile is the per-repository descriptor. It overrides stage
// commands, declares extra test suites, and can pin the spec files the
// solver reads.
type PipelineFile struct {
	Stages map[string]StageOverride `yaml:"stages,omitempty"`
	Suites []SuiteConfig            `yaml:"suites,omitempty"`
	Specs  []string                 `yaml:"specs,omitempty"`
}

// StageOverride replaces the command or the failure policy of a built-in
// stage.
type StageOverride struct {
	Command string `yaml:"command,omitempty"`
	Policy  string `yaml:"policy,omitempty"`
}

// SuiteConfig declares a test suite and the artifacts it must produce.
type SuiteConfig struct {
	Name      string `yaml:"name"`
	Command   string `yaml:"command"`
	Log       string `yaml:"log,omitempty"`
	Coverage  string `yaml:"coverage,omitempty"`
	Packaging bool   `yaml:"packaging,omitempty"`
}

// PipelineFileNames are the descriptor names probed under the work dir.
var PipelineFileNames = []string{"pipeline.yml", "pipeline.yaml", ".pipeline.yml", ".pipeline.yaml"}

// FindPipelineFile probes the standard descriptor locations under dir.
func FindPipelineFile(dir string) string {
	for _, name := range PipelineFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadPipelineFile loads and validates the descriptor at path.
func LoadPipelineFile(path string) (*PipelineFile, error) {
	data, err := security.SafeReadFile(path, security.RejectSymlinks)
	if err != nil {
		log.Errorf("Failed to read pipeline file: %v", err)
		return nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yml" && ext != ".yaml" {
		return nil, fmt.Errorf("unsupported file format: %s (only .yml and .yaml are supported)", ext)
	}

	// Validate the raw document shape, not the zero-filled struct.
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		log.Errorf("Invalid YAML format in pipeline file: %v", err)
		return nil, fmt.Errorf("invalid YAML format in pipeline file: %w", err)
	}

	if err := security.ValidateStructStrings(&raw, security.DefaultLimits()); err != nil {
		return nil, fmt.Errorf("invalid pipeline file: %w", err)
	}

	jsonData, err := sigsyaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("converting pipeline file to JSON for validation: %w", err)
	}
	if err := validate.ValidatePipelineFileJSON(jsonData); err != nil {
		return nil, fmt.Errorf("pipeline file validation error: %w", err)
	}

	var pf PipelineFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		log.Errorf("Pipeline file parsing failed: %v", err)
		return nil, fmt.Errorf("pipeline file parsing failed: %w", err)
	}

	if err := pf.Validate(); err != nil {
		return nil, err
	}

	log.Infof("Loaded pipeline file from %s: %d stage overrides, %d suites",
		path, len(pf.Stages), len(pf.Suites))
	return &pf, nil
}

// Validate checks constraints the schema cannot express.
func (pf *PipelineFile) Validate() error {
	seen := map[string]bool{}
	for _, suite := range pf.Suites {
		if suite.Name == "" || suite.Command == "" {
			return fmt.Errorf("suite entries require both name and command: %+v", suite)
		}
		if seen[suite.Name] {
			return fmt.Errorf("duplicate suite name %q", suite.Name)
		}
		seen[suite.Name] = true
	}
	for name, ov := range pf.Stages {
		if ov.Command == "" && ov.Policy == "" {
			return fmt.Errorf("stage override %q must set command or policy", name)
		}
	}
	return nil
}
