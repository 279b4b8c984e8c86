package validation

import (
	"strings"
	"testing"

	"github.com/cryptomonitor/internal/models"
)

func fields(errs Errors) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestValidateFeed(t *testing.T) {
	validRule := models.RuleCreate{Name: "hacks-vulns", Pattern: `.*((hack)|(exploit)|(vuln)).*`}

	tests := []struct {
		name       string
		feed       *models.FeedCreate
		wantFields []string
	}{
		{
			name: "valid feed with rules",
			feed: &models.FeedCreate{Name: "Blockworks", URL: "https://blockworks.co/feed", Rules: []models.RuleCreate{validRule}},
		},
		{
			name: "valid feed without rules",
			feed: &models.FeedCreate{Name: "Blockworks", URL: "http://blockworks.co/feed"},
		},
		{
			name:       "missing name and url",
			feed:       &models.FeedCreate{},
			wantFields: []string{"name", "url"},
		},
		{
			name:       "whitespace name",
			feed:       &models.FeedCreate{Name: "   ", URL: "https://a.example/rss"},
			wantFields: []string{"name"},
		},
		{
			name:       "relative url",
			feed:       &models.FeedCreate{Name: "x", URL: "/feed"},
			wantFields: []string{"url"},
		},
		{
			name:       "unsupported scheme",
			feed:       &models.FeedCreate{Name: "x", URL: "ftp://a.example/rss"},
			wantFields: []string{"url"},
		},
		{
			name: "invalid rule pattern",
			feed: &models.FeedCreate{Name: "x", URL: "https://a.example/rss", Rules: []models.RuleCreate{
				{Name: "broken", Pattern: "(unclosed"},
			}},
			wantFields: []string{"rules[0].pattern"},
		},
		{
			name: "pattern closing the anchor group",
			feed: &models.FeedCreate{Name: "x", URL: "https://a.example/rss", Rules: []models.RuleCreate{
				{Name: "escape", Pattern: "x)|(bar"},
			}},
			wantFields: []string{"rules[0].pattern"},
		},
		{
			name: "rule missing name and pattern",
			feed: &models.FeedCreate{Name: "x", URL: "https://a.example/rss", Rules: []models.RuleCreate{
				validRule, {},
			}},
			wantFields: []string{"rules[1].name", "rules[1].pattern"},
		},
		{
			name: "duplicate pattern in one request",
			feed: &models.FeedCreate{Name: "x", URL: "https://a.example/rss", Rules: []models.RuleCreate{
				validRule, {Name: "again", Pattern: validRule.Pattern},
			}},
			wantFields: []string{"rules[1].pattern"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fields(ValidateFeed(tt.feed))
			if strings.Join(got, ",") != strings.Join(tt.wantFields, ",") {
				t.Errorf("ValidateFeed() fields = %v, want %v", got, tt.wantFields)
			}
		})
	}
}

func TestValidateRule_LengthLimits(t *testing.T) {
	long := strings.Repeat("a", maxPatternLength+1)
	errs := ValidateRule(&models.RuleCreate{Name: strings.Repeat("n", maxNameLength+1), Pattern: long}, "")

	got := fields(errs)
	if strings.Join(got, ",") != "name,pattern" {
		t.Errorf("Expected name and pattern errors, got %v", got)
	}
}

func TestValidateJobStatus(t *testing.T) {
	for _, s := range []string{"", "pending", "processing", "complete", "error"} {
		if errs := ValidateJobStatus(s); len(errs) != 0 {
			t.Errorf("ValidateJobStatus(%q) unexpected errors: %v", s, errs)
		}
	}
	if errs := ValidateJobStatus("done"); len(errs) != 1 {
		t.Errorf("Expected error for unknown status, got %v", errs)
	}
}

func TestValidateID(t *testing.T) {
	if errs := ValidateID("550e8400-e29b-41d4-a716-446655440000"); len(errs) != 0 {
		t.Errorf("Unexpected errors: %v", errs)
	}
	if errs := ValidateID("not-a-uuid"); len(errs) != 1 {
		t.Errorf("Expected 1 error, got %v", errs)
	}
}

func TestErrors_Error(t *testing.T) {
	errs := Errors{{Field: "name", Message: "name is required"}, {Field: "url", Message: "url is required"}}
	want := "validation failed: name: name is required; url: url is required"
	if errs.Error() != want {
		t.Errorf("Error() = %q, want %q", errs.Error(), want)
	}
}

// BenchmarkValidateFeed benchmarks full feed validation including pattern compilation
func BenchmarkValidateFeed(b *testing.B) {
	feed := &models.FeedCreate{
		Name: "Cointelegraph",
		URL:  "https://cointelegraph.com/rss",
		Rules: []models.RuleCreate{
			{Name: "hacks-vulns", Pattern: `.*((hack)|(exploit)|(vuln)).*`},
			{Name: "coinbase-binance-listings", Pattern: `.*((Coinbase)|(Binance)).*list.*`},
			{Name: "eth-forks-upgrades", Pattern: `.*((Ethereum)|(ETH)).*((fork)|(upgrad)).*`},
		},
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		ValidateFeed(feed)
	}
}
