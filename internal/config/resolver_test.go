package config

import "testing"

func intp(i int) *int          { return &i }
func strp(s string) *string    { return &s }
func floatp(f float64) *float64 { return &f }
func boolp(b bool) *bool       { return &b }

func baseDoc() *Document {
	doc := DefaultDocument()
	doc.Series = []SeriesEntry{
		{Name: "one", URL: "https://example.com/series/one", StartTime: strp("09:00")},
	}
	return doc
}

func TestResolveAppliesDefaults(t *testing.T) {
	reg, err := NewRegistry(baseDoc())
	if err != nil {
		t.Fatal(err)
	}
	rc, err := reg.Resolve("https://example.com/series/one")
	if err != nil {
		t.Fatal(err)
	}
	if rc.Check.Count != 3 {
		t.Errorf("Check.Count = %d, want 3 (default)", rc.Check.Count)
	}
	if rc.Download.BackoffMultiplier != 2 {
		t.Errorf("Download.BackoffMultiplier = %v, want 2 (default)", rc.Download.BackoffMultiplier)
	}
}

func TestResolveSeriesOverridesDomainOverridesGlobal(t *testing.T) {
	doc := DefaultDocument()
	doc.GlobalConfig.Check = mergeCheck(doc.GlobalConfig.Check, &CheckOverlay{Count: intp(5)})
	doc.DomainConfigs = []DomainConfigEntry{
		{Domain: "example.com", Check: &CheckOverlay{Count: intp(7)}},
	}
	doc.Series = []SeriesEntry{
		{Name: "one", URL: "https://example.com/series/one", StartTime: strp("09:00")},
		{Name: "two", URL: "https://example.com/series/two", StartTime: strp("09:00"), Check: &CheckOverlay{Count: intp(9)}},
		{Name: "three", URL: "https://other.com/series/three", StartTime: strp("09:00")},
	}

	reg, err := NewRegistry(doc)
	if err != nil {
		t.Fatal(err)
	}

	one, _ := reg.Resolve("https://example.com/series/one")
	if one.Check.Count != 7 {
		t.Errorf("series one Check.Count = %d, want domain override 7", one.Check.Count)
	}
	two, _ := reg.Resolve("https://example.com/series/two")
	if two.Check.Count != 9 {
		t.Errorf("series two Check.Count = %d, want series override 9", two.Check.Count)
	}
	three, _ := reg.Resolve("https://other.com/series/three")
	if three.Check.Count != 5 {
		t.Errorf("series three Check.Count = %d, want global override 5 (no domain block)", three.Check.Count)
	}
}

func TestResolveArraysReplaceWholesale(t *testing.T) {
	doc := DefaultDocument()
	doc.Series = []SeriesEntry{
		{
			Name: "one", URL: "https://example.com/series/one", StartTime: strp("09:00"),
			Check: &CheckOverlay{DownloadTypes: []string{"vip", "express"}},
		},
	}
	reg, err := NewRegistry(doc)
	if err != nil {
		t.Fatal(err)
	}
	rc, _ := reg.Resolve("https://example.com/series/one")
	if len(rc.Check.DownloadTypes) != 2 || rc.Check.DownloadTypes[0] != "vip" {
		t.Errorf("DownloadTypes = %v, want array to replace wholesale to [vip express]", rc.Check.DownloadTypes)
	}
}

func TestResolveRejectsEmptySeriesList(t *testing.T) {
	doc := DefaultDocument()
	if _, err := NewRegistry(doc); err == nil {
		t.Error("expected a ConfigError for an empty series list")
	}
}

func TestResolveRejectsBadStartTime(t *testing.T) {
	doc := DefaultDocument()
	doc.Series = []SeriesEntry{
		{Name: "one", URL: "https://example.com/series/one", StartTime: strp("9am")},
	}
	if _, err := NewRegistry(doc); err == nil {
		t.Error("expected a ConfigError for a malformed startTime")
	}
}

func TestResolveRejectsInvalidNumericInvariant(t *testing.T) {
	doc := DefaultDocument()
	doc.Series = []SeriesEntry{
		{
			Name: "one", URL: "https://example.com/series/one", StartTime: strp("09:00"),
			Download: &DownloadOverlay{BackoffMultiplier: floatp(0.5)},
		},
	}
	if _, err := NewRegistry(doc); err == nil {
		t.Error("expected a ConfigError for backoffMultiplier < 1")
	}
}

func TestResolveRejectsInvalidURL(t *testing.T) {
	doc := DefaultDocument()
	doc.Series = []SeriesEntry{
		{Name: "one", URL: "not a url", StartTime: strp("09:00")},
	}
	if _, err := NewRegistry(doc); err == nil {
		t.Error("expected a ConfigError for a syntactically invalid series URL")
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	doc := baseDoc()
	reg1, err := NewRegistry(doc)
	if err != nil {
		t.Fatal(err)
	}
	reg2, err := NewRegistry(doc)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := reg1.Resolve("https://example.com/series/one")
	b, _ := reg2.Resolve("https://example.com/series/one")
	if a.Check.Count != b.Check.Count || a.Check.CheckInterval != b.Check.CheckInterval ||
		a.Download.BackoffMultiplier != b.Download.BackoffMultiplier || a.StartTime != b.StartTime {
		t.Error("resolving the same document twice produced different results")
	}
}

func TestListDomains(t *testing.T) {
	doc := DefaultDocument()
	doc.Series = []SeriesEntry{
		{Name: "one", URL: "https://a.com/s1", StartTime: strp("09:00")},
		{Name: "two", URL: "https://b.com/s2", StartTime: strp("09:00")},
		{Name: "three", URL: "https://a.com/s3", StartTime: strp("09:00")},
	}
	reg, err := NewRegistry(doc)
	if err != nil {
		t.Fatal(err)
	}
	domains := reg.ListDomains()
	if len(domains) != 2 {
		t.Fatalf("ListDomains() = %v, want 2 distinct domains", domains)
	}
}
