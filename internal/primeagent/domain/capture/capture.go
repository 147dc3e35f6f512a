// Package capture implements the Capture Ingestor (spec §4.7): writing a
// single frontmatter-prefixed markdown file into the vault's inbox folder
// and triggering the Vault Mirror Coordinator's auto-commit path.
package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/prime-system/prime-agent/internal/primeagent/domain/runner"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/vault"
	"github.com/prime-system/prime-agent/pkg/logger"
	"github.com/prime-system/prime-agent/pkg/utils/atomicfile"
	"github.com/prime-system/prime-agent/pkg/utils/safego"
)

const moduleName = "capture"

// Request is a single unsolicited capture submitted to POST /capture.
type Request struct {
	Source  string
	Input   string
	Text    string
	Context map[string]interface{}
}

// frontmatter is the on-disk YAML document embedded at the top of every
// capture file, grounded on the original's InboxService.format_capture_file.
type frontmatter struct {
	ID         string                 `yaml:"id"`
	CapturedAt string                 `yaml:"captured_at"`
	Source     string                 `yaml:"source"`
	Input      string                 `yaml:"input"`
	Processed  bool                   `yaml:"processed"`
	Context    map[string]interface{} `yaml:"context,omitempty"`
}

// Ingestor writes captures into the vault's inbox folder and asks the
// Vault Mirror Coordinator to auto-commit them.
type Ingestor struct {
	vaultPath   string
	inboxFolder string
	runner      *runner.Runner // optional: nil disables title generation
	coordinator *vault.Coordinator
}

func NewIngestor(vaultPath, inboxFolder string, r *runner.Runner, coordinator *vault.Coordinator) *Ingestor {
	return &Ingestor{vaultPath: vaultPath, inboxFolder: inboxFolder, runner: r, coordinator: coordinator}
}

// Ingest writes req to disk atomically and returns the path clients can
// rely on existing the moment this call returns (testable property 4). The
// vault sync runs in the background and never affects the response.
func (ing *Ingestor) Ingest(ctx context.Context, req Request) (string, error) {
	now := time.Now().UTC()
	dumpID := fmt.Sprintf("%s-%s", now.Format("2006-01-02T15:04:05Z"), req.Source)

	slug := ""
	if ing.runner != nil {
		if title := ing.runner.GenerateTitle(ctx, req.Text); title != nil {
			slug = slugify(*title)
		}
	}

	filename := dumpID
	if slug != "" {
		filename = fmt.Sprintf("%s-%s", dumpID, slug)
	}
	filename = strings.ReplaceAll(filename, ":", "") + ".md"

	fm := frontmatter{
		ID:         dumpID,
		CapturedAt: now.Format("2006-01-02T15:04:05Z"),
		Source:     req.Source,
		Input:      req.Input,
		Processed:  false,
		Context:    req.Context,
	}
	yamlBytes, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("marshal capture frontmatter: %w", err)
	}

	var body strings.Builder
	body.WriteString("---\n")
	body.Write(yamlBytes)
	body.WriteString("---\n\n")
	body.WriteString(req.Text)
	body.WriteString("\n")

	inboxDir := filepath.Join(ing.vaultPath, ing.inboxFolder)
	if err := os.MkdirAll(inboxDir, 0o755); err != nil {
		return "", fmt.Errorf("create inbox dir: %w", err)
	}
	path := filepath.Join(inboxDir, filename)
	if err := atomicfile.WriteFile(path, []byte(body.String()), 0o644); err != nil {
		return "", fmt.Errorf("write capture file: %w", err)
	}

	if ing.coordinator != nil {
		safego.Go(context.Background(), func() {
			if err := ing.coordinator.SyncCapture(context.Background(), path); err != nil {
				logger.ErrorX(moduleName, "background vault sync failed for capture %s: %v", dumpID, err)
			}
		})
	}

	return path, nil
}

// slugify lowercases title, keeps alphanumerics and hyphens, and collapses
// everything else into single hyphens, matching the kind of filesystem-safe
// slug the original's title-to-filename augmentation produces.
func slugify(title string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen && b.Len() > 0 {
				b.WriteRune('-')
				lastHyphen = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if len(out) > 40 {
		out = strings.Trim(out[:40], "-")
	}
	return out
}
