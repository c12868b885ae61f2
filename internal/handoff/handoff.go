// Package handoff delivers a sniped token to the operator's tooling.
package handoff

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"launch-sniper/internal/observability"
)

// Handoff receives the winning mint and its derived pair address.
type Handoff interface {
	Deliver(ctx context.Context, mint, pair string) error
}

// FileLauncher writes the rendered URL to a file and then runs an
// external command.
//
// URLTemplate and each Command argument may use the placeholders
// {mint}, {pair}, {url} and {file}.
type FileLauncher struct {
	Path        string
	URLTemplate string
	Command     []string
}

// Render expands the placeholders in tmpl.
func Render(tmpl, mint, pair, url, file string) string {
	return strings.NewReplacer(
		"{mint}", mint,
		"{pair}", pair,
		"{url}", url,
		"{file}", file,
	).Replace(tmpl)
}

// Deliver implements Handoff.
func (l *FileLauncher) Deliver(ctx context.Context, mint, pair string) (err error) {
	defer func() { observability.RecordHandoff(err) }()

	url := Render(l.URLTemplate, mint, pair, "", l.Path)

	if l.Path != "" {
		if err := os.MkdirAll(filepath.Dir(l.Path), 0o755); err != nil {
			return fmt.Errorf("create handoff dir: %w", err)
		}
		if err := os.WriteFile(l.Path, []byte(url), 0o644); err != nil {
			return fmt.Errorf("write handoff file: %w", err)
		}
		log.Printf("[handoff] Wrote %s to %s", url, l.Path)
	}

	if len(l.Command) == 0 {
		return nil
	}

	args := make([]string, len(l.Command))
	for i, a := range l.Command {
		args[i] = Render(a, mint, pair, url, l.Path)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("run %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	log.Printf("[handoff] Ran %s", args[0])
	return nil
}
