package moderation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

var exportValueEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "\n", `\n`)

// ExportLine renders the shell assignment of key to the snapshot's phrases.
func ExportLine(key string, snap *Snapshot) string {
	return fmt.Sprintf(`export %s="%s"`, key, exportValueEscaper.Replace(snap.Join(PhraseSeparator)))
}

// ExportPhrases rewrites the assignment of key in the env file at path with
// the colon-joined snapshot. Every other line is kept verbatim; when no line
// assigns key, the assignment is appended. A file that cannot be read is left
// untouched and the read error is returned.
func ExportPhrases(path, key string, snap *Snapshot) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read export file %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat export file %s: %w", path, err)
	}

	line := ExportLine(key, snap)
	if err := verifyExportLine(line, key, snap); err != nil {
		return err
	}

	lines := strings.Split(string(data), "\n")
	trailingNewline := len(lines) > 1 && lines[len(lines)-1] == ""
	if trailingNewline {
		lines = lines[:len(lines)-1]
	}

	replaced := false
	for i, l := range lines {
		if assignsKey(l, key) {
			lines[i] = line
			replaced = true
			break
		}
	}
	if !replaced {
		if len(lines) == 1 && lines[0] == "" {
			lines = lines[:0]
		}
		lines = append(lines, line)
		trailingNewline = true
	}

	out := strings.Join(lines, "\n")
	if trailingNewline {
		out += "\n"
	}
	return writeFileAtomic(path, []byte(out), info.Mode().Perm())
}

// assignsKey reports whether line is a KEY=... or export KEY=... assignment.
func assignsKey(line, key string) bool {
	l := strings.TrimSpace(line)
	if rest, ok := strings.CutPrefix(l, "export"); ok && rest != "" && (rest[0] == ' ' || rest[0] == '\t') {
		l = strings.TrimSpace(rest)
	}
	name, _, ok := strings.Cut(l, "=")
	return ok && strings.TrimSpace(name) == key
}

// verifyExportLine checks that the rendered line parses back to the snapshot.
func verifyExportLine(line, key string, snap *Snapshot) error {
	env, err := godotenv.Unmarshal(line)
	if err != nil {
		return fmt.Errorf("failed to parse rendered export line: %w", err)
	}
	if got, want := env[key], snap.Join(PhraseSeparator); got != want {
		return fmt.Errorf("rendered export line does not round-trip: got %q, want %q", got, want)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
