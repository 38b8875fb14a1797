package wordpress

import (
	"strings"
	"testing"
	"time"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name    string
		english string
		title   string
		want    string
	}{
		{
			name:    "plain english headline",
			english: "Supreme Court rejects plea against election schedule",
			title:   "सुप्रीम कोर्ट ने चुनाव कार्यक्रम के खिलाफ याचिका खारिज की",
			want:    "supreme-court-rejects-plea-against-election",
		},
		{
			name:    "stopwords and short tokens dropped",
			english: "PM to go on a big visit today",
			title:   "पीएम का दौरा",
			want:    "visit",
		},
		{
			name:    "punctuation and digits stripped",
			english: "U.S. and India sign deal, markets gain 5%",
			title:   "अमेरिका और भारत",
			want:    "india-sign-deal-markets-gain",
		},
		{
			name:    "capped at six tokens",
			english: "heavy rains flood streets across southern coastal districts forcing thousands evacuate",
			title:   "x",
			want:    "heavy-rains-flood-streets-across-southern",
		},
		{
			name:    "translation failed falls back to ascii tokens of title",
			english: "यूपी में बाढ़",
			title:   "यूपी में IPL मैच रद्द",
			want:    "ipl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slug(tt.english, tt.title); got != tt.want {
				t.Errorf("Slug(%q, %q) = %q, want %q", tt.english, tt.title, got, tt.want)
			}
		})
	}
}

func TestSlugDateFallback(t *testing.T) {
	got := Slug("", "दिल्ली में धमाका")
	want := "news-" + time.Now().Format("20060102")
	if got != want {
		t.Errorf("Slug = %q, want %q", got, want)
	}
	if !strings.HasPrefix(got, "news-") {
		t.Errorf("fallback slug %q missing news prefix", got)
	}
}
