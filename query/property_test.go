package query

import "testing"

func TestProperty_IsNumericFilter(t *testing.T) {
	cases := []struct {
		name string
		p    Property
		want bool
	}{
		{"indexed filterable integer", Property{IsIndexed: true, IsFilter: true, Type: Integer}, true},
		{"indexed filterable string excluded", Property{IsIndexed: true, IsFilter: true, Type: String}, false},
		{"not a filter", Property{IsIndexed: true, IsFilter: false, Type: Integer}, false},
		{"not indexed", Property{IsIndexed: false, IsFilter: true, Type: Integer}, false},
	}
	for _, c := range cases {
		if got := c.p.IsNumericFilter(); got != c.want {
			t.Fatalf("%s: IsNumericFilter() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestProperty_UnigramAlias(t *testing.T) {
	p := Property{Name: "title"}
	if got := p.UnigramAlias(); got != "title_unigram" {
		t.Fatalf("UnigramAlias() = %q, want title_unigram", got)
	}
}
