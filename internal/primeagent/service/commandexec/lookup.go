package commandexec

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrCommandNotFound is returned when no markdown file matching the
// requested command name exists under the vault's commands directory.
var ErrCommandNotFound = fmt.Errorf("command not found")

// loadPrompt finds commandsDir/**/<name>.md, strips any YAML frontmatter
// block, and returns the remaining body as the prompt to feed the Agent
// Runner. Lookup is a recursive exact-name match, grounded on the
// original's CommandService._find_command_file.
func loadPrompt(commandsDir, name string) (string, error) {
	path, err := findCommandFile(commandsDir, name)
	if err != nil {
		return "", err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read command file %q: %w", path, err)
	}

	return stripFrontmatter(string(raw)), nil
}

func findCommandFile(commandsDir, name string) (string, error) {
	target := name + ".md"
	var found string
	err := filepath.WalkDir(commandsDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if found != "" {
			return filepath.SkipAll
		}
		if !d.IsDir() && d.Name() == target {
			found = path
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("scan commands directory: %w", err)
	}
	if found == "" {
		return "", ErrCommandNotFound
	}
	return found, nil
}

// stripFrontmatter removes a leading "---\n...\n---\n" block, if present,
// and returns the remaining body with leading blank lines trimmed.
func stripFrontmatter(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(content, "---\n") {
		return strings.TrimLeft(content, "\n")
	}

	rest := content[len("---\n"):]
	end := strings.Index(rest, "\n---\n")
	if end == -1 {
		return strings.TrimLeft(content, "\n")
	}

	body := rest[end+len("\n---\n"):]
	return strings.TrimLeft(body, "\n")
}
