package gemini

import (
	"strings"
	"testing"
)

func TestParseOutline(t *testing.T) {
	text := `HEADLINE: दिल्ली में भारी बारिश से जनजीवन प्रभावित
SECTIONS:
1. घटना का परिचय और मुख्य तथ्य
2) पृष्ठभूमि और संदर्भ
3. ताजा घटनाक्रम
TAGS: दिल्ली, बारिश, मौसम`

	out := parseOutline(text)
	if out.headline != "दिल्ली में भारी बारिश से जनजीवन प्रभावित" {
		t.Errorf("headline = %q", out.headline)
	}
	want := []string{"घटना का परिचय और मुख्य तथ्य", "पृष्ठभूमि और संदर्भ", "ताजा घटनाक्रम"}
	if len(out.sections) != len(want) {
		t.Fatalf("sections = %v, want %v", out.sections, want)
	}
	for i, s := range want {
		if out.sections[i] != s {
			t.Errorf("section %d = %q, want %q", i, out.sections[i], s)
		}
	}
	if out.tags != "दिल्ली, बारिश, मौसम" {
		t.Errorf("tags = %q", out.tags)
	}
}

func TestParseOutlineDecoratedLabels(t *testing.T) {
	// the model loves markdown bold around labels
	text := `**HEADLINE**: बड़ी खबर का शीर्षक
**SECTIONS**:
1. पहला भाग
2. दूसरा भाग
**TAGS**: एक, दो`

	out := parseOutline(text)
	if out.headline != "बड़ी खबर का शीर्षक" {
		t.Errorf("headline = %q", out.headline)
	}
	if len(out.sections) != 2 || out.sections[1] != "दूसरा भाग" {
		t.Errorf("sections = %v", out.sections)
	}
	if out.tags != "एक, दो" {
		t.Errorf("tags = %q", out.tags)
	}
}

func TestParseOutlineFallback(t *testing.T) {
	// a response ignoring the format must still yield a usable outline
	out := parseOutline("कुछ भी असंरचित पाठ, कोई लेबल नहीं")
	if len(out.sections) != len(defaultSections) {
		t.Fatalf("fallback sections = %v", out.sections)
	}
	if out.tags == "" {
		t.Error("fallback tags empty")
	}
}

func TestParseOutlineIgnoresNumbersOutsideSections(t *testing.T) {
	text := `1. यह कोई सेक्शन नहीं है
HEADLINE: शीर्षक
SECTIONS:
1. असली सेक्शन
IMAGE_PROMPT: something
2. लेबल के बाद की पंक्ति`

	out := parseOutline(text)
	if len(out.sections) != 1 || out.sections[0] != "असली सेक्शन" {
		t.Errorf("sections = %v, want only the one inside SECTIONS", out.sections)
	}
}

func TestParseArticle(t *testing.T) {
	text := `HEADLINE: दिल्ली में बाढ़ से हालात गंभीर
CONTENT: पहला पैराग्राफ जिसमें घटना की जानकारी दी गई है।
दूसरा पैराग्राफ आगे की कहानी बताता है।
CATEGORIES: national
TAGS: दिल्ली, बाढ़
IMAGE_PROMPT: Flooded streets in Delhi,
rescue boats in muddy water`

	p := parseArticle(text)
	if p.Headline != "दिल्ली में बाढ़ से हालात गंभीर" {
		t.Errorf("headline = %q", p.Headline)
	}
	wantContent := "पहला पैराग्राफ जिसमें घटना की जानकारी दी गई है।\n\nदूसरा पैराग्राफ आगे की कहानी बताता है।"
	if p.Content != wantContent {
		t.Errorf("content = %q, want %q", p.Content, wantContent)
	}
	if len(p.Categories) != 1 || p.Categories[0] != "national" {
		t.Errorf("categories = %v", p.Categories)
	}
	if len(p.Tags) != 2 || p.Tags[1] != "बाढ़" {
		t.Errorf("tags = %v", p.Tags)
	}
	// continuation lines of the prompt join with a space
	if p.ImagePrompt != "Flooded streets in Delhi, rescue boats in muddy water" {
		t.Errorf("image prompt = %q", p.ImagePrompt)
	}
}

func TestParseArticleUnderscores(t *testing.T) {
	p := parseArticle("CONTENT: शब्दों_के_बीच_अंडरस्कोर")
	if p.Content != "शब्दों के बीच अंडरस्कोर" {
		t.Errorf("content = %q", p.Content)
	}
}

func TestParseArticleUnlabeled(t *testing.T) {
	// no labels at all: the whole response is the body
	p := parseArticle("यह पूरा जवाब ही लेख है।\n\nदूसरा पैराग्राफ भी।")
	if p.Headline != "" {
		t.Errorf("headline = %q, want empty", p.Headline)
	}
	if !strings.Contains(p.Content, "यह पूरा जवाब ही लेख है।") || !strings.Contains(p.Content, "दूसरा पैराग्राफ भी।") {
		t.Errorf("content = %q", p.Content)
	}
}

func TestParseArticleStripsStrayMetadataInFallback(t *testing.T) {
	p := parseArticle("असली सामग्री यहाँ है।\nTAGS: कुछ, टैग")
	if strings.Contains(p.Content, "असली सामग्री") == false {
		t.Errorf("content lost the body: %q", p.Content)
	}
	if strings.Contains(p.Content, "TAGS") {
		t.Errorf("content kept the metadata line: %q", p.Content)
	}
	if len(p.Tags) != 2 {
		t.Errorf("tags = %v", p.Tags)
	}
}

func TestCleanTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"**बड़ी खबर: मुख्य शीर्षक**", "बड़ी खबर: मुख्य शीर्षक"},
		{"# शीर्षक_यहाँ", "शीर्षक यहाँ"},
		{"  खाली   जगह   वाला  ", "खाली जगह वाला"},
		// transliteration artifacts vanish
		{"Development की नई राह", "की नई राह"},
	}
	for _, c := range cases {
		if got := cleanTitle(c.in); got != c.want {
			t.Errorf("cleanTitle(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCleanContentParagraphs(t *testing.T) {
	content := "पहला पैराग्राफ जो पूरी लंबाई का है और असली सामग्री रखता है\n\nछोटा\n\nदूसरा पैराग्राफ भी अच्छी लंबाई का है और बचना चाहिए"

	got := cleanContent(content, "")
	if !strings.HasPrefix(got, "<p>पहला पैराग्राफ") {
		t.Errorf("content = %q", got)
	}
	if strings.Contains(got, "छोटा") {
		t.Errorf("ten-rune stub survived: %q", got)
	}
	if strings.Count(got, "<p>") != 2 {
		t.Errorf("paragraph count = %d, want 2: %q", strings.Count(got, "<p>"), got)
	}
}

func TestCleanContentStripsTitleEcho(t *testing.T) {
	title := "दिल्ली में बाढ़ से हालात गंभीर"
	content := title + "\n\nअसली लेख की सामग्री यहाँ से शुरू होती है और काफी लंबी है"

	got := cleanContent(content, title)
	if strings.Contains(got, title) {
		t.Errorf("title echo kept: %q", got)
	}
	if !strings.Contains(got, "असली लेख की सामग्री") {
		t.Errorf("body lost: %q", got)
	}
}

func TestCleanContentRemovesMetadataAndFakeNames(t *testing.T) {
	content := "रमेश (काल्पनिक नाम) ने बताया कि हालात खराब हैं\n\n" +
		"TAGS: दिल्ली, बाढ़\n\n" +
		"Category: national\n\n" +
		"बची हुई असली सामग्री जो प्रकाशित होनी चाहिए और लंबी भी है"

	got := cleanContent(content, "")
	if strings.Contains(got, "काल्पनिक") || strings.Contains(got, "रमेश") {
		t.Errorf("fictional attribution kept: %q", got)
	}
	if strings.Contains(got, "TAGS") || strings.Contains(got, "Category") {
		t.Errorf("metadata lines kept: %q", got)
	}
	if !strings.Contains(got, "बची हुई असली सामग्री") {
		t.Errorf("body lost: %q", got)
	}
}

func TestCleanContentShortFallback(t *testing.T) {
	// everything filtered out still yields one paragraph, not ""
	got := cleanContent("छोटा", "")
	if got != "<p>छोटा</p>" {
		t.Errorf("fallback = %q", got)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList("एक, दो ,  ,तीन,")
	want := []string{"एक", "दो", "तीन"}
	if len(got) != len(want) {
		t.Fatalf("splitList = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitList[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if out := splitList("  "); out != nil {
		t.Errorf("splitList(blank) = %v, want nil", out)
	}
}

func TestTruncateRunes(t *testing.T) {
	in := strings.Repeat("क", 5)
	if got := truncateRunes(in, 3); got != "ककक" {
		t.Errorf("truncateRunes = %q", got)
	}
	if got := truncateRunes("abc", 10); got != "abc" {
		t.Errorf("truncateRunes short = %q", got)
	}
}
