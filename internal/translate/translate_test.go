package translate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testTranslator(endpoint string) *Translator {
	t := New("", 5*time.Second)
	t.endpoint = endpoint
	return t
}

func TestParseGoogleResponse(t *testing.T) {
	body := []byte(`[[["Flood in UP, ","यूपी में बाढ़, ",null,null,10],["thousands affected","हजारों प्रभावित",null,null,10]],null,"hi"]`)
	got, err := parseGoogleResponse(body)
	if err != nil {
		t.Fatalf("parseGoogleResponse: %v", err)
	}
	want := "Flood in UP, thousands affected"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParseGoogleResponseBadPayload(t *testing.T) {
	if _, err := parseGoogleResponse([]byte(`{"not":"an array"}`)); err == nil {
		t.Error("expected error for object payload")
	}
	if _, err := parseGoogleResponse([]byte(`[]`)); err == nil {
		t.Error("expected error for empty array")
	}
}

func TestToEnglish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("sl"); got != "hi" {
			t.Errorf("source lang = %q", got)
		}
		if got := r.URL.Query().Get("tl"); got != "en" {
			t.Errorf("target lang = %q", got)
		}
		w.Write([]byte(`[[["Heavy rain in Delhi","दिल्ली में भारी बारिश",null,null,10]],null,"hi"]`))
	}))
	defer srv.Close()

	tr := testTranslator(srv.URL)
	got, err := tr.ToEnglish(context.Background(), "दिल्ली में भारी बारिश")
	if err != nil {
		t.Fatalf("ToEnglish: %v", err)
	}
	if got != "Heavy rain in Delhi" {
		t.Errorf("got %q", got)
	}
}

func TestToEnglishMemoizes(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`[[["Once only","एक बार",null,null,10]],null,"hi"]`))
	}))
	defer srv.Close()

	tr := testTranslator(srv.URL)
	for i := 0; i < 3; i++ {
		got, err := tr.ToEnglish(context.Background(), "एक बार")
		if err != nil || got != "Once only" {
			t.Fatalf("call %d: got %q, err %v", i, got, err)
		}
	}
	if hits != 1 {
		t.Errorf("endpoint hit %d times, want 1", hits)
	}
}

func TestToEnglishFallsBackToOriginal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tr := testTranslator(srv.URL)
	in := "अनुवाद नहीं हो सका"
	got, err := tr.ToEnglish(context.Background(), in)
	if err != nil {
		t.Fatalf("ToEnglish should not fail hard: %v", err)
	}
	if got != in {
		t.Errorf("got %q, want original back", got)
	}
}

func TestToEnglishEmptyInput(t *testing.T) {
	tr := testTranslator("http://127.0.0.1:0")
	got, err := tr.ToEnglish(context.Background(), "")
	if err != nil || got != "" {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestCleanForTranslation(t *testing.T) {
	in := "पहली पंक्ति\n\n  \nदूसरी पंक्ति\nक"
	want := "पहली पंक्ति दूसरी पंक्ति"
	if got := cleanForTranslation(in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
