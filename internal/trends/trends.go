package trends

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/khabarpress/khabarpress/internal/feeds"
	"github.com/khabarpress/khabarpress/internal/ledger"
)

// Trend is one story selected for publishing.
type Trend struct {
	Title      string
	Category   string
	Sources    []string
	Link       string
	Published  time.Time
	MatchCount int
}

// Author is a site account that owns a category.
type Author struct {
	ID   int
	Name string
}

// categoryRule order matters: the first rule whose keywords hit wins.
type categoryRule struct {
	name     string
	keywords []string
}

var categoryRules = []categoryRule{
	{"world", worldKeywords},
	{"national", nationalKeywords},
	{"entertainment", entertainmentKeywords},
	{"sports", sportsKeywords},
	{"business", businessKeywords},
	{"technology", technologyKeywords},
	{"education", educationKeywords},
	{"career", careerKeywords},
	{"fact_check", factCheckKeywords},
	{"crime", crimeKeywords},
	{"religion", religionKeywords},
	{"health", healthKeywords},
	{"interesting-news", interestingKeywords},
	{"वायरल", viralKeywords},
	{"उत्तर प्रदेश", uttarPradeshKeywords},
}

var worldKeywords = []string{
	"विश्व", "वर्ल्ड", "अंतरराष्ट्रीय", "अंतर्राष्ट्रीय", "इंटरनेशनल", "world", "international",
	"अमेरिका", "america", "टैरिफ", "tariff", "ट्रम्प", "trump", "चीन", "china",
	"पाकिस्तान", "pakistan", "यूक्रेन", "ukraine", "रूस", "russia",
}

var nationalKeywords = []string{
	"राष्ट्रीय", "देश", "नेशनल", "national", "india", "भारत", "राजनीति", "politics",
	"गुजरात", "gujarat", "पुल", "bridge", "मोदी", "modi", "सरकार", "government",
	"मंत्री", "minister", "चुनाव", "election", "संसद", "parliament",
	"लोकसभा", "loksabha", "राज्यसभा", "rajyasabha",
}

var entertainmentKeywords = []string{
	"मनोरंजन", "एंटरटेनमेंट", "entertainment", "बॉलीवुड", "bollywood", "फिल्म", "film",
	"अभिनेता", "actor", "अभिनेत्री", "actress", "अक्षय", "akshay", "शाहरुख", "shahrukh",
	"सलमान", "salman", "आमिर", "aamir", "सिनेमा", "cinema", "टीवी", "सीरियल", "serial",
}

var sportsKeywords = []string{
	"खेल", "स्पोर्ट्स", "sports", "क्रिकेट", "cricket", "फुटबॉल", "football",
	"टेनिस", "tennis", "आईपीएल", "ipl", "गेम", "game", "मैच", "match",
	"टूर्नामेंट", "tournament", "ओलंपिक", "olympic", "विश्वकप", "worldcup",
	"बैडमिंटन", "badminton", "हॉकी", "hockey",
}

var businessKeywords = []string{
	"व्यापार", "बिजनेस", "business", "company", "कंपनी", "शेयर", "share",
	"बाजार", "market", "अर्थव्यवस्था", "economy", "निवेश", "investment",
}

var technologyKeywords = []string{
	"तकनीक", "टेक्नोलॉजी", "technology", "टेक", "tech", "कंप्यूटर", "computer",
	"स्मार्टफोन", "smartphone", "मोबाइल", "mobile", "लैपटॉप", "laptop",
	"इंटरनेट", "internet", "सॉफ्टवेयर", "software", "ऐप", "app",
	"आर्टिफिशियल इंटेलिजेंस", "artificial intelligence", "एआई", "ai",
	"मशीन लर्निंग", "machine learning", "डेटा", "data", "क्लाउड", "cloud",
	"साइबर", "cyber", "हैकिंग", "hacking", "डिजिटल", "digital",
	"ई-कॉमर्स", "e-commerce", "ऑनलाइन", "online", "वेब", "web", "वेबसाइट", "website",
	"सोशल मीडिया", "social media", "फेसबुक", "facebook", "ट्विटर", "twitter",
	"इंस्टाग्राम", "instagram", "यूट्यूब", "youtube", "व्हाट्सऐप", "whatsapp",
	"टेलीग्राम", "telegram", "ब्लॉकचेन", "blockchain", "क्रिप्टो", "crypto",
	"बिटकॉइन", "bitcoin", "मेटावर्स", "metaverse", "वर्चुअल रियलिटी", "virtual reality",
	"5जी", "5g", "वाई-फाई", "wifi", "ब्लूटूथ", "bluetooth", "गैलेक्सी", "galaxy",
	"आईफोन", "iphone", "एंड्रॉइड", "android", "आईओएस", "ios",
	"माइक्रोसॉफ्ट", "microsoft", "गूगल", "google", "एप्पल", "apple",
	"अमेज़न", "amazon", "फ्लिपकार्ट", "flipkart", "पेटीएम", "paytm",
	"यूपीआई", "upi", "डिजिटल पेमेंट", "digital payment", "स्टार्टअप", "startup",
	"यूनिकॉर्न", "unicorn", "फिनटेक", "fintech", "एडटेक", "edtech",
	"प्रोसेसर", "processor", "चिप", "chip", "सेमीकंडक्टर", "semiconductor",
	"इंटेल", "intel", "क्वालकॉम", "qualcomm", "एनवीडिया", "nvidia",
	"टेस्ला", "tesla", "स्पेसएक्स", "spacex", "नेटफ्लिक्स", "netflix",
	"टिकटॉक", "tiktok", "गिटहब", "github", "ई-लर्निंग", "e-learning",
	"वर्क फ्रॉम होम", "work from home", "टेक जॉब", "tech job", "आईटी", "it",
	"सिलिकन वैली", "silicon valley", "इनोवेशन", "innovation",
}

var educationKeywords = []string{
	"शिक्षा", "education", "स्कूल", "school", "कॉलेज", "college",
	"यूनिवर्सिटी", "university", "परीक्षा", "exam", "छात्र", "student", "शिक्षक", "teacher",
}

var careerKeywords = []string{
	"करियर", "career", "नौकरी", "job", "रोजगार", "employment",
	"सरकारी नौकरी", "sarkari naukri",
}

var factCheckKeywords = []string{
	"फैक्ट चेक", "fact check", "फैक्ट", "fact", "जांच", "verify", "सत्यापन", "verification",
}

var crimeKeywords = []string{
	"अपराध", "crime", "हत्या", "murder", "चोरी", "theft", "डकैती", "robbery",
	"बलात्कार", "rape", "हमला", "attack", "गिरफ्तार", "arrest", "पुलिस", "police",
	"थाना", "मुकदमा", "अदालत", "court", "जेल", "jail", "कैद", "prison",
	"सजा", "punishment", "फांसी", "hanging", "मौत", "death", "शव", "dead body",
	"खून", "हिंसा", "violence", "आतंक", "terror", "आतंकवाद", "terrorism",
	"बम", "bomb", "फायरिंग", "firing", "गोली", "bullet", "चाकू", "knife",
	"मारपीट", "assault", "धमकी", "threat", "अपहरण", "kidnapping", "अगवा", "abduction",
	"फिरौती", "ransom", "लूट", "loot", "धोखा", "fraud", "घोटाला", "scam",
	"भ्रष्टाचार", "corruption", "रिश्वत", "bribe", "नकली", "fake",
	"जालसाजी", "forgery", "अवैध", "illegal", "गैरकानूनी", "unlawful",
}

var religionKeywords = []string{
	"धर्म", "religion", "पूजा", "worship", "मंदिर", "temple", "मस्जिद", "mosque",
	"गुरुद्वारा", "gurudwara", "चर्च", "church", "भगवान", "bhagwan", "अल्लाह", "allah",
	"कृष्ण", "krishna", "शिव", "shiva", "दुर्गा", "durga", "लक्ष्मी", "lakshmi",
	"सरस्वती", "saraswati", "गणेश", "ganesh", "हनुमान", "hanuman", "बुद्ध", "buddha",
	"महावीर", "mahavir", "संत", "saint", "साधु", "sadhu", "पंडित", "pandit",
	"मौलवी", "maulvi", "पुजारी", "pujari", "आरती", "aarti", "भजन", "bhajan",
	"कीर्तन", "kirtan", "प्रार्थना", "prayer", "नमाज", "namaz", "व्रत", "उपवास",
	"हवन", "havan", "यज्ञ", "yagya", "मंत्र", "mantra", "वेद", "veda",
	"पुराण", "purana", "गीता", "geeta", "कुरान", "quran", "बाइबिल", "bible",
	"रामायण", "ramayan", "महाभारत", "mahabharat", "रामचरितमानस", "ramcharitmanas",
	"हिंदू", "hindu", "मुस्लिम", "muslim", "सिख", "sikh", "ईसाई", "christian",
	"जैन", "jain", "बौद्ध", "buddhist", "धार्मिक", "religious",
	"आध्यात्मिक", "spiritual", "मोक्ष", "moksha", "कर्म", "karma",
	"पंचांग", "panchang", "ज्योतिष", "astrology", "कुंडली", "kundali",
	"राशि", "zodiac", "नक्षत्र", "nakshatra", "शुभ मुहूर्त", "auspicious time",
}

var healthKeywords = []string{
	"स्वास्थ्य", "health", "मेडिकल", "medical", "डॉक्टर", "doctor",
	"हॉस्पिटल", "hospital", "दवा", "medicine", "इलाज", "treatment",
	"बीमारी", "disease", "रोग", "illness", "संक्रमण", "infection",
	"वायरस", "virus", "बैक्टीरिया", "bacteria", "फ्लू", "flu", "बुखार", "fever",
	"खांसी", "cough", "जुकाम", "सिरदर्द", "headache", "चोट", "injury",
	"घाव", "wound", "फ्रैक्चर", "fracture", "सर्जरी", "surgery",
	"ऑपरेशन", "operation", "टीका", "vaccine", "इंजेक्शन", "injection",
	"एक्सरे", "xray", "एमआरआई", "mri", "ब्लड टेस्ट", "blood test",
	"डायबिटीज", "diabetes", "हृदय", "heart", "कैंसर", "cancer", "टीबी",
	"एड्स", "aids", "कोविड", "covid", "कोरोना", "corona", "महामारी", "pandemic",
	"आयुष", "ayush", "आयुर्वेद", "ayurveda", "योग", "yoga", "प्राणायाम", "pranayam",
	"ध्यान", "meditation", "होम्योपैथी", "homeopathy", "फिजियोथेरेपी", "physiotherapy",
	"तनाव", "stress", "अवसाद", "depression", "चिंता", "anxiety",
	"मानसिक स्वास्थ्य", "mental health", "पोषण", "nutrition", "आहार", "diet",
	"विटामिन", "vitamin", "प्रोटीन", "protein", "कैल्शियम", "calcium",
	"इम्यूनिटी", "immunity", "पाचन", "digestion", "लिवर", "liver",
	"किडनी", "kidney", "फेफड़े", "lungs", "गर्भावस्था", "pregnancy",
}

var interestingKeywords = []string{
	"रोचक", "अनोखा", "मजेदार", "रहस्य", "इतिहास", "trivia", "curious", "weird",
	"मिस्ट्री", "mystery", "interesting", "fact", "अनसुलझा", "unsolved",
	"अविश्वसनीय", "unbelievable", "सामान्य ज्ञान", "general knowledge",
	"science fact", "history fact", "top 10", "top ten", "listicle",
	"amazing", "funny", "strange", "odd", "bizarre", "unusual", "unique",
	"world record", "गिनीज", "guinness", "rare", "unexplained",
	"legend", "myth", "mythology", "superstition", "लोककथा", "folklore",
	"किवदंती", "adventure", "discovery", "invention", "phenomenon",
	"paranormal", "supernatural", "ghost", "haunted", "alien", "ufo",
	"bermuda triangle", "समुद्र का रहस्य", "जहाज", "shipwreck", "lost at sea",
}

var viralKeywords = []string{
	"वायरल", "viral", "अजब", "गजब", "सोशल", "social", "trending", "trend",
}

var uttarPradeshKeywords = []string{
	"उत्तर प्रदेश", "uttar pradesh", "up", "यूपी", "up news",
}

// matchThresholds is how many distinct sources must carry a story before
// it counts as trending. Categories missing here need defaultThreshold.
var matchThresholds = map[string]int{
	"national":         3,
	"politics":         3,
	"world":            3,
	"business":         2,
	"education":        2,
	"career":           2,
	"technology":       2,
	"sports":           2,
	"entertainment":    2,
	"crime":            2,
	"religion":         2,
	"health":           2,
	"fact_check":       2,
	"interesting-news": 2,
}

const defaultThreshold = 3

var hindiNames = map[string]string{
	"world":            "अंतर्राष्ट्रीय",
	"national":         "राष्ट्रीय समाचार",
	"entertainment":    "मनोरंजन",
	"sports":           "खेल",
	"technology":       "तकनीक",
	"business":         "व्यापार",
	"education":        "शिक्षा",
	"career":           "करियर",
	"fact_check":       "फैक्ट चेक",
	"crime":            "अपराध",
	"religion":         "धर्म",
	"health":           "स्वास्थ्य",
	"interesting-news": "रोचक खबरें",
	"वायरल":            "वायरल",
	"उत्तर प्रदेश":     "उत्तर प्रदेश",
}

var authorTable = map[string]Author{
	"sports":           {2, "Saumitra"},
	"national":         {1, "Disharth"},
	"world":            {3, "Aditi"},
	"technology":       {4, "Sumit"},
	"career":           {4, "Sumit"},
	"business":         {5, "Aditya"},
	"education":        {8, "Latika"},
	"crime":            {6, "Piyush"},
	"interesting-news": {7, "Ramkrishna"},
	"fact_check":       {7, "Ramkrishna"},
	"health":           {9, "Shrey"},
	"religion":         {9, "Shrey"},
	"entertainment":    {9, "Shrey"},
	"वायरल":            {11, "Shanvi"},
	"उत्तर प्रदेश":     {10, "Harshit"},
}

var defaultAuthor = Author{1, "Disharth"}

// minTitleRunes filters out fragments and section headers posing as items.
const minTitleRunes = 10

// MatchThreshold returns how many distinct sources a category requires.
func MatchThreshold(category string) int {
	if n, ok := matchThresholds[category]; ok {
		return n
	}
	return defaultThreshold
}

// HindiName maps a category slug to the Hindi name used in prompts and
// on the site. Unknown slugs fall back to the national news name.
func HindiName(category string) string {
	if name, ok := hindiNames[category]; ok {
		return name
	}
	return "राष्ट्रीय समाचार"
}

// AuthorFor returns the site account that publishes a category.
func AuthorFor(category string) Author {
	if a, ok := authorTable[category]; ok {
		return a
	}
	return defaultAuthor
}

// DetermineCategory picks a category for a headline. The first rule with
// a keyword hit wins; otherwise the source names get a say, and anything
// still unclaimed is national news.
func DetermineCategory(title string, sources []string) string {
	lower := strings.ToLower(title)

	for _, rule := range categoryRules {
		if containsAny(lower, rule.keywords) {
			return rule.name
		}
	}

	fallbacks := []struct {
		category   string
		titleHint  string
		sourceHint string
	}{
		{"world", "world", "world"},
		{"entertainment", "entertainment", "entertainment"},
		{"technology", "technology", "tech"},
		{"education", "education", "education"},
		{"career", "career", "career"},
	}
	for _, fb := range fallbacks {
		if strings.Contains(lower, fb.titleHint) || sourceContains(sources, fb.sourceHint) {
			return fb.category
		}
	}

	return "national"
}

// containsAny distinguishes phrases and short words so that "ai" does not
// match inside "said". Short ASCII tokens need a word boundary; phrases
// and longer keywords match as substrings.
func containsAny(text string, keywords []string) bool {
	text = strings.ToLower(text)

	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}

		if strings.Contains(k, " ") {
			if strings.Contains(text, k) {
				return true
			}
			continue
		}

		if len(k) <= 3 {
			re := regexp.MustCompile(`\b` + regexp.QuoteMeta(k) + `\b`)
			if re.MatchString(text) {
				return true
			}
			continue
		}

		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func sourceContains(sources []string, hint string) bool {
	for _, s := range sources {
		if strings.Contains(strings.ToLower(s), hint) {
			return true
		}
	}
	return false
}

type topicGroup struct {
	title     string
	published time.Time
	sources   map[string]bool
	links     []string
}

// FindMultiSource groups fresh items by normalized title and keeps the
// stories confirmed by enough distinct sources for their category. The
// first sighting of a story fixes its display title and published time.
// Results are sorted by source count, newest first within a count, and
// capped at maxTrends.
func FindMultiSource(items []feeds.Item, freshWindow time.Duration, now time.Time) []Trend {
	const maxTrends = 20

	groups := make(map[string]*topicGroup)
	var order []string

	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		if utf8.RuneCountInString(title) <= minTitleRunes {
			continue
		}
		if stale(item.Published, freshWindow, now) {
			continue
		}

		key := ledger.Normalize(title)
		if key == "" {
			continue
		}

		g, ok := groups[key]
		if !ok {
			g = &topicGroup{
				title:     title,
				published: item.Published,
				sources:   make(map[string]bool),
			}
			groups[key] = g
			order = append(order, key)
		}
		g.sources[item.Source] = true
		if item.Link != "" {
			g.links = append(g.links, item.Link)
		}
	}

	var trends []Trend
	for _, key := range order {
		g := groups[key]

		sources := make([]string, 0, len(g.sources))
		for s := range g.sources {
			sources = append(sources, s)
		}
		sort.Strings(sources)

		category := DetermineCategory(g.title, sources)
		if len(sources) < MatchThreshold(category) {
			continue
		}

		link := ""
		if len(g.links) > 0 {
			link = g.links[0]
		}
		trends = append(trends, Trend{
			Title:      g.title,
			Category:   category,
			Sources:    sources,
			Link:       link,
			Published:  g.published,
			MatchCount: len(g.sources),
		})
	}

	sort.SliceStable(trends, func(i, j int) bool {
		if trends[i].MatchCount != trends[j].MatchCount {
			return trends[i].MatchCount > trends[j].MatchCount
		}
		return trends[i].Published.After(trends[j].Published)
	})

	if len(trends) > maxTrends {
		trends = trends[:maxTrends]
	}
	return trends
}

// StandaloneTopics turns every fresh item into its own trend. The viral
// and Uttar Pradesh schedules publish single-source stories, so there is
// no cross-source matching, only the short-title and freshness filters.
// Limit caps the result, zero meaning no cap.
func StandaloneTopics(items []feeds.Item, category string, freshWindow time.Duration, now time.Time, limit int) []Trend {
	var topics []Trend
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		if utf8.RuneCountInString(title) <= minTitleRunes {
			continue
		}
		if stale(item.Published, freshWindow, now) {
			continue
		}
		topics = append(topics, Trend{
			Title:      title,
			Category:   category,
			Sources:    []string{item.Source},
			Link:       item.Link,
			Published:  item.Published,
			MatchCount: 1,
		})
	}
	if limit > 0 && len(topics) > limit {
		topics = topics[:limit]
	}
	return topics
}

// stale reports whether an item is older than the fresh window. Items
// without a parsed published time pass, since their age is unknown.
func stale(published time.Time, freshWindow time.Duration, now time.Time) bool {
	if freshWindow <= 0 || published.IsZero() {
		return false
	}
	return now.Sub(published) > freshWindow
}
