package htmldoc

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

const sampleDoc = `<html><body>
<div>
  <p>First paragraph.</p>
  <p>Second <b>bold</b> paragraph.</p>
</div>
<div>
  <span>Lone span</span>
</div>
</body></html>`

func TestExtractTexts(t *testing.T) {
	fragments, err := ExtractTexts(sampleDoc)
	if err != nil {
		t.Fatalf("ExtractTexts: %v", err)
	}

	t.Run("finds every non-empty text node", func(t *testing.T) {
		want := []Fragment{
			{Path: "body > div:nth-child(1) > p:nth-child(1)", Text: "First paragraph."},
			{Path: "body > div:nth-child(1) > p:nth-child(2)", Text: "Second"},
			{Path: "body > div:nth-child(1) > p:nth-child(2) > b", Text: "bold"},
			{Path: "body > div:nth-child(1) > p:nth-child(2)", Text: "paragraph."},
			{Path: "body > div:nth-child(2) > span", Text: "Lone span"},
		}
		if len(fragments) != len(want) {
			t.Fatalf("expected %d fragments, got %d: %+v", len(want), len(fragments), fragments)
		}
		for i, w := range want {
			if fragments[i] != w {
				t.Errorf("fragment %d: expected %+v, got %+v", i, w, fragments[i])
			}
		}
	})

	t.Run("whitespace-only nodes are skipped", func(t *testing.T) {
		for _, f := range fragments {
			if strings.TrimSpace(f.Text) == "" {
				t.Errorf("extracted whitespace-only fragment at %s", f.Path)
			}
		}
	})

	t.Run("nth-child only on ambiguous tags", func(t *testing.T) {
		for _, f := range fragments {
			if strings.Contains(f.Path, "span:nth-child") || strings.Contains(f.Path, "b:nth-child") {
				t.Errorf("unexpected nth-child on unambiguous tag: %s", f.Path)
			}
		}
	})
}

func TestApplyReplacements(t *testing.T) {
	t.Run("replaces matching text nodes in one pass", func(t *testing.T) {
		out, err := ApplyReplacements(sampleDoc, []Replacement{
			{Path: "body > div:nth-child(1) > p:nth-child(1)", Original: "First paragraph.", Text: "Primer párrafo."},
			{Path: "body > div:nth-child(1) > p:nth-child(2) > b", Original: "bold", Text: "negrita"},
		})
		if err != nil {
			t.Fatalf("ApplyReplacements: %v", err)
		}
		if !strings.Contains(out, "Primer párrafo.") {
			t.Errorf("expected first replacement applied, got %s", out)
		}
		if !strings.Contains(out, "<b>negrita</b>") {
			t.Errorf("expected bold replacement applied, got %s", out)
		}
		if !strings.Contains(out, "paragraph.") {
			t.Errorf("expected untouched text preserved, got %s", out)
		}
	})

	t.Run("preserves surrounding whitespace", func(t *testing.T) {
		doc := "<html><body><p>\n  hello  \n</p></body></html>"
		out, err := ApplyReplacements(doc, []Replacement{
			{Path: "body > p", Original: "hello", Text: "hola"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out, "\n  hola  \n") {
			t.Errorf("expected whitespace preserved around replacement, got %q", out)
		}
	})

	t.Run("unknown path is skipped", func(t *testing.T) {
		out, err := ApplyReplacements(sampleDoc, []Replacement{
			{Path: "body > article", Original: "x", Text: "y"},
		})
		if err != nil {
			t.Fatalf("expected skip, got error: %v", err)
		}
		if !strings.Contains(out, "First paragraph.") {
			t.Error("expected document unchanged")
		}
	})

	t.Run("mismatched original is skipped", func(t *testing.T) {
		out, err := ApplyReplacements(sampleDoc, []Replacement{
			{Path: "body > div:nth-child(1) > p:nth-child(1)", Original: "Wrong text", Text: "nope"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(out, "nope") {
			t.Error("expected no replacement on mismatched original")
		}
	})

	t.Run("returns body inner HTML only", func(t *testing.T) {
		out, err := ApplyReplacements(sampleDoc, nil)
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(out, "<body") || strings.Contains(out, "<html") {
			t.Errorf("expected inner HTML without wrapper tags, got %s", out)
		}
	})
}

func TestBodyHTML(t *testing.T) {
	root, err := html.Parse(strings.NewReader("<html><body><p>hi</p><div>there</div></body></html>"))
	if err != nil {
		t.Fatal(err)
	}
	out, err := BodyHTML(root)
	if err != nil {
		t.Fatalf("BodyHTML: %v", err)
	}
	if out != "<p>hi</p><div>there</div>" {
		t.Errorf("unexpected body HTML: %s", out)
	}
}

func TestStripTags(t *testing.T) {
	out, err := StripTags("<html><body><p>one</p><p>two <b>three</b></p></body></html>")
	if err != nil {
		t.Fatalf("StripTags: %v", err)
	}
	if out != "one two three" {
		t.Errorf("expected joined text, got %q", out)
	}
}

func TestReplaceWholeWord(t *testing.T) {
	t.Run("replaces whole words case-insensitively, leaves substrings", func(t *testing.T) {
		text := "NY is big. I love ny. SUNNY days in NY."
		got := ReplaceWholeWord(text, "NY", "New York")
		want := "New York is big. I love New York. SUNNY days in New York."
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("escapes regex metacharacters in the word", func(t *testing.T) {
		got := ReplaceWholeWord("see e.g here, not exg", "e.g", "for example")
		if got != "see for example here, not exg" {
			t.Errorf("unexpected result: %q", got)
		}
	})

	t.Run("empty word is a no-op", func(t *testing.T) {
		if got := ReplaceWholeWord("text", "", "x"); got != "text" {
			t.Errorf("expected unchanged text, got %q", got)
		}
	})
}
