package rewrite

import (
	"fmt"
	"regexp"
	"strings"
)

// Header and footer identity stamped onto every washed query.
const (
	queryName = "Sumo Logic Generated Query"
	queryRepo = "https://github.com/sumologic-library/generated-queries/"
	queryAuth = "querylibrarian@sumologic.com"
)

var (
	// _sourceCategory = prod/foo/bar  ->  _sourceCategory="{{data_source}}"
	dataSourceRe = regexp.MustCompile(`^(_\w+)\s*=\s*(\S+)\s*(.*)$`)
	// trailing // comment, but not the // inside http://
	trailingCommentRe = regexp.MustCompile(`^(.*?)([^:]//.*)$`)
	// inline pipe stage boundary
	pipeBreakRe = regexp.MustCompile(`\s\|\s`)

	nonWordRe = regexp.MustCompile(`\W+\s*`)
)

// Washed is a normalized query plus the classification gathered while
// washing it.
type Washed struct {
	Body       []string
	Keywords   []string
	References []string
}

// Wash normalizes a raw query to library standards: masks the data source,
// moves trailing comments onto their own line, breaks inline pipe stages
// onto new lines, and classifies the query against the operator and
// classifier dictionaries.
func Wash(raw string, dicts *Dictionaries) Washed {
	var washed Washed
	seenRef := make(map[string]bool)
	seenKeyword := make(map[string]bool)

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := dataSourceRe.FindStringSubmatch(line); m != nil {
			rebuilt := m[1] + `="{{data_source}}"`
			if keyword, ok := dicts.Classifier[m[1]]; ok && !seenKeyword[keyword] {
				seenKeyword[keyword] = true
				washed.Keywords = append(washed.Keywords, keyword)
			}
			if m[3] != "" {
				rebuilt += " " + m[3]
			}
			line = rebuilt
		}

		if m := trailingCommentRe.FindStringSubmatch(line); m != nil {
			line = m[1] + "\n" + strings.TrimLeft(m[2], " \t")
		}

		line = pipeBreakRe.ReplaceAllString(line, "\n| ")
		line = strings.TrimLeft(line, " \t")
		washed.Body = append(washed.Body, line)

		for _, word := range strings.Fields(nonWordRe.ReplaceAllString(line, " ")) {
			if url, ok := dicts.Operators[word]; ok && !seenRef[url] {
				seenRef[url] = true
				washed.References = append(washed.References, url)
			}
			if keyword, ok := dicts.Classifier[word]; ok && !seenKeyword[keyword] {
				seenKeyword[keyword] = true
				washed.Keywords = append(washed.Keywords, keyword)
			}
		}
	}

	return washed
}

// Render emits the washed query framed by the identity header and the
// collected operator references.
func (w Washed) Render() string {
	var b strings.Builder

	b.WriteString("/*\n")
	fmt.Fprintf(&b, "%-20s%s\n", "    Queryname:", queryName)
	fmt.Fprintf(&b, "%-20s%s\n", "    SourceUrl:", queryRepo)
	fmt.Fprintf(&b, "%-20s%s\n", "    Author:", queryAuth)
	b.WriteString("*/\n")

	for _, line := range w.Body {
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("/*\n")
	for _, ref := range w.References {
		fmt.Fprintf(&b, "%-20s%s\n", "    Reference:", ref)
	}
	b.WriteString("*/\n")

	return b.String()
}

// ProfileLine is the sidecar record tying a washed query file to its
// keywords.
func (w Washed) ProfileLine(washedFile string) string {
	return fmt.Sprintf("%s,%s\n", washedFile, strings.Join(w.Keywords, "-"))
}
