package annotate

import (
	"crypto/md5"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"

	"github.com/jackzampolin/inkpress/internal/layout"
)

// candidateRe matches the words the producer hashes: runs of three or
// more ASCII letters.
var candidateRe = regexp.MustCompile(`\b[a-zA-Z]{3,}\b`)

// Queues holds per-word FIFO gloss queues for one chapter. A word that
// appears in several cached sentences carries one queued gloss per
// occurrence, consumed in reading order.
type Queues map[string][]string

// ContextHash returns the first six hex characters of the md5 of a
// sentence. The producer hashes the stripped sentence the same way.
func ContextHash(sentence string) string {
	sum := md5.Sum([]byte(sentence))
	return fmt.Sprintf("%x", sum)[:6]
}

// SplitSentences splits text after any run-ending '.', '!' or '?' that
// is directly followed by whitespace. The boundary rule must match the
// producer's exactly or context hashes drift.
func SplitSentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			j := i + 1
			k := j
			for k < len(runes) && unicode.IsSpace(runes[k]) {
				k++
			}
			if k > j {
				out = append(out, string(runes[start:j]))
				start, i = k, k-1
			}
		}
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

// ExtractText flattens markup to plain text: each text node is
// trimmed, empties are dropped, and the rest join on single spaces.
func ExtractText(markup string) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(parts, " ")
}

// BuildQueues walks chapter text sentence by sentence and queues a
// gloss for every word occurrence whose "word|hash" key is cached.
func BuildQueues(text string, cache Cache) Queues {
	if len(cache) == 0 {
		return nil
	}
	queues := make(Queues)
	for _, sentence := range SplitSentences(text) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		hash := ContextHash(sentence)
		for _, w := range candidateRe.FindAllString(sentence, -1) {
			lower := strings.ToLower(w)
			if gloss, ok := cache[lower+"|"+hash]; ok {
				queues[lower] = append(queues[lower], gloss)
			}
		}
	}
	if len(queues) == 0 {
		return nil
	}
	return queues
}

// stripSet mirrors the punctuation the producer trims off page words
// before queue lookup.
const stripSet = ".,!?;:\"()[]{}“”‘’—–-"

// CleanWord normalizes a laid-out word for queue lookup: soft hyphens
// removed, surrounding punctuation trimmed, lowercased.
func CleanWord(s string) string {
	s = strings.ReplaceAll(s, "­", "")
	s = strings.Trim(s, stripSet)
	return strings.ToLower(s)
}

// PageTable maps "x_y" coordinate keys — the truncated engine-unit
// origin of a word — to the gloss drawn above that word.
type PageTable map[string]string

// Key formats the coordinate key for a word origin.
func Key(x, y float64) string {
	return fmt.Sprintf("%d_%d", int(x), int(y))
}

// Assign consumes queue heads for the words on one page, in word
// order. Words with no pending gloss are skipped; an exhausted queue
// stops matching further occurrences.
func (q Queues) Assign(words []layout.Word) PageTable {
	if len(q) == 0 {
		return nil
	}
	var table PageTable
	for _, w := range words {
		clean := CleanWord(w.Text)
		if clean == "" {
			continue
		}
		queue, ok := q[clean]
		if !ok || len(queue) == 0 {
			continue
		}
		q[clean] = queue[1:]
		if table == nil {
			table = make(PageTable)
		}
		table[Key(w.Box.X0, w.Box.Y0)] = queue[0]
	}
	return table
}
