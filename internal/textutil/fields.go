package textutil

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Fields maps folded labels ("fecha y hora") to the value found next to
// them in an email body.
type Fields map[string]string

var textPairRe = regexp.MustCompile(`^([^:0-9]{2,60}?)\s*:\s*(.+)$`)

// LabelValues collects label/value pairs from table rows
// (<td>Label</td><td>Value</td>, several pairs per row allowed), from
// <h4>Label</h4><p>Value</p> pairs and from "Label: value" text lines.
// The first occurrence of a label wins.
func LabelValues(body string) Fields {
	f := Fields{}
	if IsHTML(body) {
		if root, err := html.Parse(strings.NewReader(body)); err == nil {
			f.addTableRows(root)
			f.addHeadingPairs(root)
		}
	}
	for _, line := range strings.Split(HTMLToText(body), "\n") {
		if m := textPairRe.FindStringSubmatch(line); m != nil {
			f.add(m[1], m[2])
		}
	}
	return f
}

func (f Fields) addTableRows(root *html.Node) {
	for _, tr := range findAll(root, atom.Tr) {
		cells := directCells(tr)
		// rows that wrap a nested table carry no pair of their own
		if len(cells) == 1 && len(findAll(cells[0], atom.Table)) > 0 {
			continue
		}
		for i := 0; i+1 < len(cells); i += 2 {
			f.add(nodeText(cells[i]), nodeText(cells[i+1]))
		}
	}
}

func (f Fields) addHeadingPairs(root *html.Node) {
	for _, a := range []atom.Atom{atom.H4, atom.H5, atom.Strong, atom.B} {
		for _, h := range findAll(root, a) {
			next := nextElementSibling(h)
			if next == nil {
				continue
			}
			f.add(nodeText(h), nodeText(next))
		}
	}
}

func (f Fields) add(label, value string) {
	key := labelKey(label)
	value = Clean(value)
	if key == "" || value == "" {
		return
	}
	if _, ok := f[key]; !ok {
		f[key] = value
	}
}

func labelKey(label string) string {
	return Clean(strings.TrimRight(Fold(Clean(label)), ": "))
}

// Get returns the value of the first label found. A label matches a key
// exactly, or as a prefix of it ("tarjeta" matches "tarjeta de credito").
func (f Fields) Get(labels ...string) string {
	if key := f.Key(labels...); key != "" {
		return f[key]
	}
	return ""
}

// Key returns the stored label that Get would read for labels, or "".
// Prefix matches are resolved in lexical order so the result is stable.
func (f Fields) Key(labels ...string) string {
	for _, l := range labels {
		if _, ok := f[labelKey(l)]; ok {
			return labelKey(l)
		}
	}
	keys := make([]string, 0, len(f))
	for key := range f {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, l := range labels {
		k := labelKey(l)
		for _, key := range keys {
			if strings.HasPrefix(key, k) {
				return key
			}
		}
	}
	return ""
}
