package pipeline

import "fmt"

// Variant selects one of the two fixed pipeline stage sequences.
type Variant string

const (
	// VariantTest builds the project and runs its unit test suites.
	VariantTest Variant = "test"
	// VariantRPM resolves build dependencies, builds RPM packages, runs the
	// packaging tests and verifies the packages install.
	VariantRPM Variant = "rpm"
)

// ParseVariant maps the CLI variant selector onto a Variant.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantTest, VariantRPM:
		return Variant(s), nil
	}
	return "", fmt.Errorf("unknown pipeline variant %q (expected test or rpm)", s)
}

// Override replaces the command or policy of a named stage; zero fields
// keep the built-in defaults.
type Override struct {
	Command string
	Policy  *Policy
}

// InstallDepsStage wraps the package-manager batch install of the solved
// build dependencies as the leading fatal stage of the rpm variant. The
// dependency solver itself never invokes the installer; this stage is how
// the orchestrator drives that external collaborator.
func InstallDepsStage(workDir, command string) Stage {
	return Stage{Name: "install-deps", Command: command, WorkDir: workDir, Policy: Fatal}
}

// Stages returns the fixed, ordered stage sequence for the variant, all
// rooted at workDir, with any per-stage overrides applied. Stage names are
// stable: they name the log files the artifact collector uploads.
func Stages(v Variant, workDir string, overrides map[string]Override) []Stage {
	var stages []Stage
	switch v {
	case VariantTest:
		stages = []Stage{
			{Name: "configure", Command: "./autogen.sh && ./configure", WorkDir: workDir, Policy: Fatal},
			{Name: "build", Command: "make", WorkDir: workDir, Policy: Fatal},
		}
	case VariantRPM:
		stages = []Stage{
			{Name: "configure", Command: "./autogen.sh && ./configure", WorkDir: workDir, Policy: Fatal},
			{Name: "build", Command: "make", WorkDir: workDir, Policy: Fatal},
			{Name: "package", Command: "make rpms", WorkDir: workDir, Policy: Fatal},
		}
	}

	for i := range stages {
		ov, ok := overrides[stages[i].Name]
		if !ok {
			continue
		}
		if ov.Command != "" {
			stages[i].Command = ov.Command
		}
		if ov.Policy != nil {
			stages[i].Policy = *ov.Policy
		}
	}
	return stages
}
