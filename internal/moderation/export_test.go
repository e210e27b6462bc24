package moderation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	return path
}

func TestExportPhrases(t *testing.T) {
	t.Parallel()

	snap := NewPhraseStore([]string{"crypto", "buy now"}).Snapshot()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "rewrites export line",
			content: "# phraseguard\nexport BOT_TELEGRAM_TOKEN=\"123:abc\"\nexport SPAM_PHRASES=\"old\"\nexport OTHER=1\n",
			want:    "# phraseguard\nexport BOT_TELEGRAM_TOKEN=\"123:abc\"\nexport SPAM_PHRASES=\"buy now:crypto\"\nexport OTHER=1\n",
		},
		{
			name:    "rewrites plain assignment",
			content: "SPAM_PHRASES=old\nOTHER=1",
			want:    "export SPAM_PHRASES=\"buy now:crypto\"\nOTHER=1",
		},
		{
			name:    "does not touch similar keys",
			content: "export SPAM_PHRASES_OLD=\"x\"\n",
			want:    "export SPAM_PHRASES_OLD=\"x\"\nexport SPAM_PHRASES=\"buy now:crypto\"\n",
		},
		{
			name:    "appends to empty file",
			content: "",
			want:    "export SPAM_PHRASES=\"buy now:crypto\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := writeEnvFile(t, tt.content)
			if err := ExportPhrases(path, "SPAM_PHRASES", snap); err != nil {
				t.Fatalf("ExportPhrases() error = %v", err)
			}
			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.want {
				t.Errorf("file content = %q, want %q", got, tt.want)
			}
		})
	}
}

// The exported file must load back into the same phrase list.
func TestExportPhrasesRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewPhraseStore([]string{"crypto", "join now", "t.me/"})
	path := writeEnvFile(t, "export SPAM_PHRASES=\"placeholder\"\n")
	if err := ExportPhrases(path, "SPAM_PHRASES", store.Snapshot()); err != nil {
		t.Fatalf("ExportPhrases() error = %v", err)
	}

	env, err := godotenv.Read(path)
	if err != nil {
		t.Fatalf("godotenv.Read() error = %v", err)
	}
	raw, ok := env["SPAM_PHRASES"]
	reloaded := NewPhraseStore(ParsePhraseList(raw, ok, nil)).Snapshot()
	if reloaded.Join(":") != store.Snapshot().Join(":") {
		t.Errorf("reloaded phrases = %v, want %v", reloaded.Phrases(), store.Snapshot().Phrases())
	}
}

func TestExportPhrasesUnreadableFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing.env")
	err := ExportPhrases(path, "SPAM_PHRASES", NewPhraseStore([]string{"crypto"}).Snapshot())
	if err == nil {
		t.Fatal("ExportPhrases() error = nil for a missing file")
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("ExportPhrases created a file it could not read")
	}
}
