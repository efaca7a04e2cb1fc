package annotate

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/jackzampolin/inkpress/internal/layout"
)

func writeCache(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write cache: %v", err)
	}
	return path
}

func TestLoadCache(t *testing.T) {
	path := writeCache(t, `{
  "version": 1,
  "language": "en",
  "entries": {
    "perspicacious|de9d30": "keen-sighted",
    "violin|d12a61": "string instrument"
  }
}`)
	cache, err := LoadCache(path)
	if err != nil {
		t.Fatalf("LoadCache: %v", err)
	}
	if len(cache) != 2 {
		t.Fatalf("got %d entries, want 2", len(cache))
	}
	if cache["violin|d12a61"] != "string instrument" {
		t.Errorf("violin entry = %q", cache["violin|d12a61"])
	}
}

func TestLoadCacheRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", `{"entries":`},
		{"missing entries", `{"version": 1}`},
		{"bad key shape", `{"entries": {"noHashHere": "gloss"}}`},
		{"short hash", `{"entries": {"word|abc": "gloss"}}`},
		{"empty gloss", `{"entries": {"word|abc123": ""}}`},
		{"non-string gloss", `{"entries": {"word|abc123": 7}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache, err := LoadCache(writeCache(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if cache != nil {
				t.Errorf("cache should be nil on failure, got %v", cache)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadCache(filepath.Join(t.TempDir(), "absent.json")); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestContextHash(t *testing.T) {
	tests := []struct {
		sentence string
		want     string
	}{
		{"The violin sang.", "d12a61"},
		{"It was a perspicacious remark.", "de9d30"},
		{"Hello world .", "3a5938"},
	}
	for _, tt := range tests {
		if got := ContextHash(tt.sentence); got != tt.want {
			t.Errorf("ContextHash(%q) = %q, want %q", tt.sentence, got, tt.want)
		}
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "plain",
			text: "One ends. Two ends! Three ends?",
			want: []string{"One ends.", "Two ends!", "Three ends?"},
		},
		{
			name: "abbreviation splits too",
			text: "Mr. Smith left. He waved.",
			want: []string{"Mr.", "Smith left.", "He waved."},
		},
		{
			name: "punct run splits at last mark",
			text: "What?! Really.",
			want: []string{"What?!", "Really."},
		},
		{
			name: "no trailing whitespace keeps tail attached",
			text: "End.of.line stays. Next",
			want: []string{"End.of.line stays.", "Next"},
		},
		{
			name: "trailing whitespace drops empty tail",
			text: "Done. ",
			want: []string{"Done."},
		},
		{
			name: "no punctuation",
			text: "just one fragment",
			want: []string{"just one fragment"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitSentences(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractText(t *testing.T) {
	got := ExtractText("<p>Hello <b>world</b>.</p>\n<p>Second   para.</p>")
	want := "Hello world . Second   para."
	if got != want {
		t.Errorf("ExtractText = %q, want %q", got, want)
	}
}

func TestCleanWord(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Violin,", "violin"},
		{"“Quoted”", "quoted"},
		{"re­mark.", "remark"},
		{"(Par­en­thet­i­cal)", "parenthetical"},
		{"—", ""},
		{"don't", "don't"},
	}
	for _, tt := range tests {
		if got := CleanWord(tt.in); got != tt.want {
			t.Errorf("CleanWord(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildQueuesAndAssign(t *testing.T) {
	text := "The violin sang. The violin broke."
	cache := Cache{
		"violin|" + ContextHash("The violin sang."):  "first gloss",
		"violin|" + ContextHash("The violin broke."): "second gloss",
	}
	queues := BuildQueues(text, cache)
	if got := len(queues["violin"]); got != 2 {
		t.Fatalf("queued %d glosses, want 2", got)
	}

	wordAt := func(text string, x, y float64) layout.Word {
		return layout.Word{Text: text, Box: layout.Box{X0: x, Y0: y, X1: x + 30, Y1: y + 12}}
	}

	// First page: one occurrence takes the head of the queue.
	table := queues.Assign([]layout.Word{
		wordAt("The", 10, 20.7),
		wordAt("violin", 48.9, 20.7),
		wordAt("sang.", 96, 20.7),
	})
	if len(table) != 1 {
		t.Fatalf("page 1 table = %v", table)
	}
	if got := table["48_20"]; got != "first gloss" {
		t.Errorf("page 1 gloss = %q, want first gloss (table %v)", got, table)
	}

	// Second page: the next occurrence gets the second gloss, and a
	// third occurrence finds the queue empty.
	table = queues.Assign([]layout.Word{
		wordAt("violin", 12, 40),
		wordAt("violin", 80, 40),
	})
	if len(table) != 1 {
		t.Fatalf("page 2 table = %v", table)
	}
	if got := table["12_40"]; got != "second gloss" {
		t.Errorf("page 2 gloss = %q, want second gloss", got)
	}
}

func TestBuildQueuesIgnoresUncachedWords(t *testing.T) {
	cache := Cache{"violin|000000": "never matches this hash"}
	if q := BuildQueues("The violin sang.", cache); q != nil {
		t.Errorf("expected nil queues, got %v", q)
	}
	if q := BuildQueues("anything at all", nil); q != nil {
		t.Errorf("nil cache should yield nil queues, got %v", q)
	}
}

func TestAssignEmptyQueues(t *testing.T) {
	var q Queues
	if table := q.Assign([]layout.Word{{Text: "word"}}); table != nil {
		t.Errorf("nil queues must assign nothing, got %v", table)
	}
}

func TestQueueKeysAreLowercasedCandidates(t *testing.T) {
	// Two-letter words never become candidates; case folds.
	text := "An Ox ran. PERSPICACIOUS indeed."
	hash1 := ContextHash("An Ox ran.")
	hash2 := ContextHash("PERSPICACIOUS indeed.")
	cache := Cache{
		"ox|" + hash1:            "too short to queue",
		"perspicacious|" + hash2: "keen",
	}
	queues := BuildQueues(text, cache)
	if _, ok := queues["ox"]; ok {
		t.Error("two-letter word should not queue")
	}
	if !strings.Contains(strings.Join(queues["perspicacious"], " "), "keen") {
		t.Errorf("missing folded candidate: %v", queues)
	}
}
