package download

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// External delegates transfers to an installed command-line downloader
// instead of the native HTTP client. Resume and range requests are the
// tool's business in this mode; the exit status is the only contract.
type External struct {
	// Tool is one of "wget", "curl", "aria2c" or "axel".
	Tool string

	// Cookie, when set, is passed through as a Cookie header.
	Cookie string

	// UserAgent is passed through to the tool.
	UserAgent string
}

// SupportedTools lists the recognized external downloaders.
var SupportedTools = []string{"wget", "curl", "aria2c", "axel"}

// command builds the argv for one transfer. Each tool is invoked in
// quiet, overwrite-to-target mode so its behavior matches the native
// downloader as closely as the tool allows.
func (e *External) command(ctx context.Context, url, destPath string) (*exec.Cmd, error) {
	var args []string
	switch e.Tool {
	case "wget":
		args = []string{"wget", url, "-O", destPath, "--no-cookies", "--no-check-certificate"}
		if e.Cookie != "" {
			args = append(args, "--header", "Cookie: "+e.Cookie)
		}
		if e.UserAgent != "" {
			args = append(args, "--user-agent", e.UserAgent)
		}
	case "curl":
		args = []string{"curl", url, "-k", "-#", "-L", "-o", destPath}
		if e.Cookie != "" {
			args = append(args, "--cookie", e.Cookie)
		}
		if e.UserAgent != "" {
			args = append(args, "--user-agent", e.UserAgent)
		}
	case "aria2c":
		args = []string{
			"aria2c", url, "-o", destPath,
			"--check-certificate=false", "--allow-overwrite=true",
			"--file-allocation=none", "--auto-file-renaming=false",
		}
		if e.Cookie != "" {
			args = append(args, "--header", "Cookie: "+e.Cookie)
		}
		if e.UserAgent != "" {
			args = append(args, "--user-agent="+e.UserAgent)
		}
	case "axel":
		args = []string{"axel", "-o", destPath, "-n", "4", "-a", url}
		if e.Cookie != "" {
			args = append(args, "-H", "Cookie: "+e.Cookie)
		}
		if e.UserAgent != "" {
			args = append(args, "-U", e.UserAgent)
		}
	default:
		return nil, fmt.Errorf("unsupported external downloader %q", e.Tool)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd, nil
}

// Download runs the tool for one URL. A non-zero exit status is a
// failure; distinguishing transient from permanent causes is not possible
// through an exit code, so external failures are treated as transient.
func (e *External) Download(ctx context.Context, url, destPath string) error {
	cmd, err := e.command(ctx, url, destPath)
	if err != nil {
		return err
	}
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return fmt.Errorf("%s exited with status %d", e.Tool, exitErr.ExitCode())
		}
		return fmt.Errorf("run %s: %w", e.Tool, err)
	}
	return nil
}
