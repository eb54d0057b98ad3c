package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/open-edge-platform/pkg-pipeline/internal/config"
	"github.com/open-edge-platform/pkg-pipeline/internal/installcheck"
)

// Verify-install command flags
var (
	verifyInstallCmd string = "" // Empty means use config file value
	verifyKeyring    string = "" // Empty means use config file value
	verifySudo       bool   = false
	verifySigs       bool   = false
)

// createVerifyInstallCommand creates the verify-install subcommand
func createVerifyInstallCommand() *cobra.Command {
	verifyCmd := &cobra.Command{
		Use:   "verify-install [flags] ARTIFACT_DIR",
		Short: "Verify that built packages install cleanly",
		Long: `Run the configured package manager against every package artifact in
ARTIFACT_DIR in a single batch invocation. A non-zero manager exit fails the
check and surfaces the manager's complete output, including dependency
resolution errors.

With --check-signatures the artifacts' GPG signatures are verified against
the configured keyring before the manager runs.`,
		Args: cobra.ExactArgs(1),
		RunE: executeVerifyInstall,
	}

	verifyCmd.Flags().StringVar(&verifyInstallCmd, "install-cmd", "",
		"Package manager invocation (default from config)")
	verifyCmd.Flags().BoolVar(&verifySudo, "sudo", false,
		"Run the package manager under sudo")
	verifyCmd.Flags().BoolVar(&verifySigs, "check-signatures", false,
		"Verify artifact GPG signatures before the install check")
	verifyCmd.Flags().StringVar(&verifyKeyring, "keyring", "",
		"Armored GPG keyring for signature verification (default from config)")

	return verifyCmd
}

// executeVerifyInstall handles the verify-install command logic
func executeVerifyInstall(cmd *cobra.Command, args []string) error {
	cfg := config.Global()

	verifier := &installcheck.Verifier{
		InstallCmd:      cfg.Install.Command,
		Sudo:            cfg.Install.Sudo,
		CheckSignatures: cfg.Install.CheckSignatures,
		KeyringPath:     cfg.Install.Keyring,
		Workers:         config.Workers(),
	}
	if cmd.Flags().Changed("install-cmd") {
		verifier.InstallCmd = verifyInstallCmd
	}
	if cmd.Flags().Changed("sudo") {
		verifier.Sudo = verifySudo
	}
	if cmd.Flags().Changed("check-signatures") {
		verifier.CheckSignatures = verifySigs
	}
	if cmd.Flags().Changed("keyring") {
		verifier.KeyringPath = verifyKeyring
	}

	result, err := verifier.Verify(args[0])
	if err != nil {
		fmt.Printf("%s install check failed: %v\n", color.RedString("FAIL"), err)
		return err
	}

	fmt.Printf("%s all %d packages installable\n", color.GreenString("PASS"), len(result.Artifacts))
	return nil
}
