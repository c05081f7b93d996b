package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/slmtnm/s4browse/internal/config"
)

// prompter reads one answer per line.
type prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// ask prints question and returns the trimmed answer, or def when the
// answer is empty.
func (p prompter) ask(question, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s (default: %s): ", question, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", question)
	}
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("failed to read %s", strings.ToLower(question))
	}
	answer := strings.TrimSpace(p.scanner.Text())
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

func (p prompter) require(question string) (string, error) {
	answer, err := p.ask(question, "")
	if err != nil {
		return "", err
	}
	if answer == "" {
		return "", fmt.Errorf("%s cannot be empty", strings.ToLower(question))
	}
	return answer, nil
}

// endpointURL adds a scheme to a bare host, using plain http for local hosts.
func endpointURL(host string) string {
	if strings.Contains(host, "://") {
		return host
	}
	if strings.Contains(host, "localhost") || strings.Contains(host, "127.0.0.1") {
		return "http://" + host
	}
	return "https://" + host
}

// interactiveSetup asks for one remote.
func interactiveSetup(in io.Reader, out io.Writer) (config.Remote, error) {
	p := prompter{scanner: bufio.NewScanner(in), out: out}

	fmt.Fprintln(out, "s4browse setup")
	fmt.Fprintln(out, "==============")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Common configurations:")
	fmt.Fprintln(out, "  • AWS S3: Use your AWS credentials and s3.amazonaws.com")
	fmt.Fprintln(out, "  • MinIO local: Use minioadmin/minioadmin and localhost:9000, backend minio")
	fmt.Fprintln(out, "  • Other S3-compatible: Use your service's endpoint and credentials")
	fmt.Fprintln(out)

	var (
		r   config.Remote
		err error
	)
	if r.Alias, err = p.require("Remote name"); err != nil {
		return r, err
	}
	if strings.ContainsAny(r.Alias, "/[] ") || strings.EqualFold(r.Alias, config.SettingsSection) {
		return r, fmt.Errorf("invalid remote name %q", r.Alias)
	}
	if r.AccessKey, err = p.require("Access Key ID"); err != nil {
		return r, err
	}
	if r.SecretKey, err = p.require("Secret Access Key"); err != nil {
		return r, err
	}
	host, err := p.ask("S3 Endpoint", "s3.amazonaws.com")
	if err != nil {
		return r, err
	}
	r.URL = endpointURL(host)
	if r.Region, err = p.ask("Region", config.DefaultRegion); err != nil {
		return r, err
	}
	if r.Backend, err = p.ask("Backend, s3 or minio", config.BackendS3); err != nil {
		return r, err
	}
	if r.Backend != config.BackendS3 && r.Backend != config.BackendMinio {
		return r, fmt.Errorf("unknown backend %q", r.Backend)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Configuration summary:\n")
	fmt.Fprintf(out, "  Remote: %s\n", r.Alias)
	fmt.Fprintf(out, "  Endpoint: %s\n", r.URL)
	fmt.Fprintf(out, "  Region: %s\n", r.Region)
	fmt.Fprintf(out, "  Backend: %s\n", r.Backend)
	fmt.Fprintln(out)
	return r, nil
}

func runSetup(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, ".s4browse.ini")
	}

	remote, err := interactiveSetup(cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("setup cancelled or failed: %w", err)
	}
	if err := config.SaveRemote(path, remote); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to: %s\n", path)
	fmt.Fprintf(cmd.OutOrStdout(), "Run 's4browse %s' to browse it.\n", remote.Alias)
	return nil
}
