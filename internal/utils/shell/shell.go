package shell

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/open-edge-platform/pkg-pipeline/internal/utils/logger"
)

// HostPath is the working directory value meaning "run where the process runs".
var HostPath string = ""

// ErrToolNotFound reports a command that is neither an explicit script path
// nor present in the command allowlist.
var ErrToolNotFound = errors.New("external tool not found")

var commandMap = map[string]string{
	"bash":         "/usr/bin/bash",
	"cat":          "/usr/bin/cat",
	"cd":           "cd", // shell builtin, not a standalone command
	"chmod":        "/usr/bin/chmod",
	"cp":           "/usr/bin/cp",
	"coverage":     "/usr/bin/coverage",
	"createrepo_c": "/usr/bin/createrepo_c",
	"dnf":          "/usr/bin/dnf",
	"echo":         "/usr/bin/echo",
	"find":         "/usr/bin/find",
	"gcc":          "/usr/bin/gcc",
	"git":          "/usr/bin/git",
	"grep":         "/usr/bin/grep",
	"gzip":         "/usr/bin/gzip",
	"head":         "/usr/bin/head",
	"ls":           "/usr/bin/ls",
	"make":         "/usr/bin/make",
	"mkdir":        "/usr/bin/mkdir",
	"mktemp":       "/usr/bin/mktemp",
	"mv":           "/usr/bin/mv",
	"nosetests":    "/usr/bin/nosetests",
	"pytest":       "/usr/bin/pytest",
	"python3":      "/usr/bin/python3",
	"rm":           "/usr/bin/rm",
	"rpm":          "/usr/bin/rpm",
	"rpmbuild":     "/usr/bin/rpmbuild",
	"rpmspec":      "/usr/bin/rpmspec",
	"sed":          "/usr/bin/sed",
	"sh":           "/bin/sh",
	"sha256sum":    "/usr/bin/sha256sum",
	"sleep":        "/usr/bin/sleep",
	"sudo":         "/usr/bin/sudo",
	"tail":         "/usr/bin/tail",
	"tar":          "/usr/bin/tar",
	"tdnf":         "/usr/bin/tdnf",
	"touch":        "/usr/bin/touch",
	"uname":        "/usr/bin/uname",
	"xz":           "/usr/bin/xz",
	"yum":          "/usr/bin/yum",
	"zstd":         "/usr/bin/zstd",
	// Add more mappings as needed
}

// GetOSEnvirons returns the system environment variables
func GetOSEnvirons() map[string]string {
	environ := make(map[string]string)
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			environ[parts[0]] = parts[1]
		}
	}
	return environ
}

// GetOSProxyEnvirons retrieves HTTP and HTTPS proxy environment variables
func GetOSProxyEnvirons() map[string]string {
	osEnv := GetOSEnvirons()
	proxyEnv := make(map[string]string)

	for key, value := range osEnv {
		if strings.Contains(strings.ToLower(key), "http_proxy") ||
			strings.Contains(strings.ToLower(key), "https_proxy") {
			proxyEnv[key] = value
		}
	}

	return proxyEnv
}

// IsCommandExist checks if a command resolves on the current system
func IsCommandExist(cmd string) bool {
	output, _ := exec.Command("bash", "-c", "command -v "+cmd).Output()
	return len(strings.TrimSpace(string(output))) > 0
}

func verifyCmdWithFullPath(cmd string) (string, error) {
	separators := []string{"&&", "||", ";", "|"}

	sepIdx := -1
	sep := ""
	for _, s := range separators {
		if idx := strings.Index(cmd, s); idx != -1 && (sepIdx == -1 || idx < sepIdx) {
			sepIdx = idx
			sep = s
		}
	}
	if sepIdx != -1 {
		left := strings.TrimSpace(cmd[:sepIdx])
		right := strings.TrimSpace(cmd[sepIdx+len(sep):])
		leftCmdStr, err := verifyCmdWithFullPath(left)
		if err != nil {
			return "", err
		}
		rightCmdStr, err := verifyCmdWithFullPath(right)
		if err != nil {
			return "", err
		}
		return leftCmdStr + " " + sep + " " + rightCmdStr, nil
	}

	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return cmd, nil
	}
	bin := fields[0]
	// Explicit script paths (./autogen.sh, /usr/local/bin/foo) pass through.
	if strings.HasPrefix(bin, "./") || strings.HasPrefix(bin, "/") {
		return strings.Join(fields, " "), nil
	}
	fullPath, ok := commandMap[bin]
	if !ok {
		return "", fmt.Errorf("command %s not in allowlist: %w", bin, ErrToolNotFound)
	}
	fields[0] = fullPath
	return strings.Join(fields, " "), nil
}

// GetFullCmdStr prepares a command string with allowlisted absolute paths
// and optional sudo/proxy environment prefixes.
func GetFullCmdStr(cmdStr string, sudo bool, envVal []string) (string, error) {
	log := logger.Logger()
	envValStr := ""
	for _, env := range envVal {
		envValStr += env + " "
	}

	fullPathCmdStr, err := verifyCmdWithFullPath(cmdStr)
	if err != nil {
		return "", fmt.Errorf("failed to verify command with full path: %w", err)
	}

	var fullCmdStr string
	if sudo {
		proxyEnv := GetOSProxyEnvirons()
		for key, value := range proxyEnv {
			envValStr += key + "=" + value + " "
		}
		fullCmdStr = "sudo " + envValStr + fullPathCmdStr
		log.Debugf("Exec: [sudo " + fullPathCmdStr + "]")
	} else {
		fullCmdStr = envValStr + fullPathCmdStr
		log.Debugf("Exec: [" + fullPathCmdStr + "]")
	}

	return fullCmdStr, nil
}

// ExecCmd executes a command in workDir and returns its interleaved output.
func ExecCmd(cmdStr string, sudo bool, workDir string, envVal []string) (string, error) {
	log := logger.Logger()
	fullCmdStr, err := GetFullCmdStr(cmdStr, sudo, envVal)
	if err != nil {
		return "", err
	}

	output, err := Default.Run(fullCmdStr, workDir, "")
	if err != nil {
		if output != "" {
			log.Infof(output)
		}
		return output, fmt.Errorf("failed to exec %s: %w", fullCmdStr, err)
	}
	if output != "" {
		log.Debugf(output)
	}
	return output, nil
}

// ExecCmdSilent behaves like ExecCmd but never echoes output to the logger.
func ExecCmdSilent(cmdStr string, sudo bool, workDir string, envVal []string) (string, error) {
	fullCmdStr, err := GetFullCmdStr(cmdStr, sudo, envVal)
	if err != nil {
		return "", err
	}

	output, err := Default.Run(fullCmdStr, workDir, "")
	if err != nil {
		return output, fmt.Errorf("failed to exec %s: %w", fullCmdStr, err)
	}
	return output, nil
}

// ExecCmdWithInput executes a command with the given string piped to stdin.
func ExecCmdWithInput(inputStr string, cmdStr string, sudo bool, workDir string, envVal []string) (string, error) {
	log := logger.Logger()
	fullCmdStr, err := GetFullCmdStr(cmdStr, sudo, envVal)
	if err != nil {
		return "", err
	}

	output, err := Default.Run(fullCmdStr, workDir, inputStr)
	if err != nil {
		if output != "" {
			log.Infof(output)
		}
		return output, fmt.Errorf("failed to exec %s with input: %w", fullCmdStr, err)
	}
	if output != "" {
		log.Debugf(output)
	}
	return output, nil
}

// ExitCode extracts the process exit code from an ExecCmd error.
// Returns 0 for nil errors and -1 when the command never ran.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
