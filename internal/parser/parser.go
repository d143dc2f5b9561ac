// Package parser turns semi-structured markdown produced by an LLM into
// per-participant blocks. A single state machine handles every
// extraction domain; domains differ only in the Schema they pass in.
package parser

import (
	"regexp"
	"sort"
	"strings"
)

// HeaderStyle selects how participant blocks are delimited.
type HeaderStyle int

const (
	// HeaderHash starts a block at "### Name".
	HeaderHash HeaderStyle = iota
	// HeaderNameColon starts a block at "Name: X".
	HeaderNameColon
	// HeaderBracket starts a block at "[NAME]", or at a bare short line
	// immediately followed by the schema's first section label.
	HeaderBracket
	// HeaderNone treats the whole response as one session-level block.
	HeaderNone
)

// Join controls how the lines of a multi-line section are combined.
type Join int

const (
	JoinSpace      Join = iota // prose joined with single spaces
	JoinList                   // ordered items, bullets and quotes stripped
	JoinBlockquote             // "> " lines joined with newlines
	JoinLine                   // first non-blank line only
)

// Section describes one labelled field of a block.
type Section struct {
	Key    string
	Labels []string
	Join   Join
	// Default is reported by Block.Get when the section is absent.
	Default string
	// MaxItems caps JoinList sections. Zero means unlimited.
	MaxItems int
	// Unquote strips one pair of surrounding quote marks from the value.
	Unquote bool
}

// Schema is the parser configuration for one domain.
type Schema struct {
	Header   HeaderStyle
	Sections []Section
	// Required lists section keys of which at least one must be present
	// for a block to be emitted.
	Required []string
	// Remainder, when set, collects lines outside any section under
	// this key.
	Remainder string
}

// Block is one participant's parsed sections.
type Block struct {
	Participant string
	values      map[string]string
	lists       map[string][]string
	defaults    map[string]string
}

// Get returns the section value, or the section default when absent.
func (b Block) Get(key string) string {
	if v, ok := b.values[key]; ok {
		return v
	}
	return b.defaults[key]
}

// List returns the items of a JoinList section.
func (b Block) List(key string) []string {
	return b.lists[key]
}

// Has reports whether the section was present with non-empty content.
func (b Block) Has(key string) bool {
	_, ok := b.values[key]
	return ok
}

// Fields returns every extracted value keyed by section.
func (b Block) Fields() map[string]string {
	out := make(map[string]string, len(b.values))
	for k, v := range b.values {
		out[k] = v
	}
	return out
}

var bracketHeader = regexp.MustCompile(`^\[([^\]]+)\]$`)

type labelRef struct {
	folded string
	idx    int
}

type machine struct {
	schema Schema
	labels []labelRef
	first  map[string]bool

	blocks  []Block
	current *rawBlock
	section int
}

type rawBlock struct {
	participant string
	lines       map[int][]string
	remainder   []string
}

// Parse splits text into participant blocks according to schema. It
// never fails: malformed input only yields fewer blocks.
func Parse(text string, schema Schema) []Block {
	m := newMachine(schema)
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	if schema.Header == HeaderNone {
		m.open("")
	}

	for i, raw := range lines {
		line := strings.TrimRight(raw, " \t")
		trimmed := strings.TrimSpace(line)

		if schema.Header != HeaderNone {
			if name, ok := m.header(trimmed, lines[i+1:]); ok {
				m.open(name)
				continue
			}
		}
		if m.current == nil {
			continue
		}

		if trimmed == "---" || trimmed == "***" || isHeading(trimmed) {
			m.section = -1
			continue
		}

		if idx, inline, ok := m.label(trimmed); ok {
			m.section = idx
			if inline != "" {
				m.add(inline)
			}
			continue
		}

		if m.section < 0 {
			if trimmed != "" && m.schema.Remainder != "" {
				m.current.remainder = append(m.current.remainder, trimmed)
			}
			continue
		}

		if trimmed == "" {
			// Blank lines separate paragraphs inside prose sections.
			existing := m.current.lines[m.section]
			switch m.schema.Sections[m.section].Join {
			case JoinLine:
				if len(existing) > 0 {
					m.section = -1
				}
			case JoinBlockquote:
				if len(existing) > 0 {
					m.current.lines[m.section] = append(existing, "")
				}
			}
			continue
		}
		m.add(line)
	}
	m.close()
	return m.blocks
}

func newMachine(schema Schema) *machine {
	m := &machine{schema: schema, section: -1, first: make(map[string]bool)}
	for i, sec := range schema.Sections {
		for _, l := range sec.Labels {
			m.labels = append(m.labels, labelRef{folded: fold(l), idx: i})
		}
	}
	// Longer labels win when one is a prefix of another.
	sort.SliceStable(m.labels, func(a, b int) bool {
		return len(m.labels[a].folded) > len(m.labels[b].folded)
	})
	if len(schema.Sections) > 0 {
		for _, l := range schema.Sections[0].Labels {
			m.first[fold(l)] = true
		}
	}
	return m
}

func (m *machine) open(participant string) {
	m.close()
	m.current = &rawBlock{participant: participant, lines: make(map[int][]string)}
	m.section = -1
}

func (m *machine) add(line string) {
	sec := m.schema.Sections[m.section]
	existing := m.current.lines[m.section]
	if sec.Join == JoinLine && len(existing) > 0 {
		return
	}
	m.current.lines[m.section] = append(existing, line)
}

func (m *machine) close() {
	if m.current == nil {
		return
	}
	rb := m.current
	m.current = nil

	b := Block{
		Participant: rb.participant,
		values:      make(map[string]string),
		lists:       make(map[string][]string),
		defaults:    make(map[string]string),
	}
	for i, sec := range m.schema.Sections {
		if sec.Default != "" {
			b.defaults[sec.Key] = sec.Default
		}
		lines, ok := rb.lines[i]
		if !ok {
			continue
		}
		if sec.Join == JoinList {
			items := listItems(lines, sec)
			if len(items) > 0 {
				b.lists[sec.Key] = items
				b.values[sec.Key] = strings.Join(items, "\n")
			}
			continue
		}
		v := joinLines(lines, sec.Join)
		if sec.Unquote {
			v = unquote(v)
		}
		if isEmptyValue(v) {
			continue
		}
		b.values[sec.Key] = v
	}

	if m.schema.Remainder != "" && len(rb.remainder) > 0 {
		b.values[m.schema.Remainder] = strings.Join(rb.remainder, " ")
	}

	if m.schema.Header != HeaderNone && b.Participant == "" {
		return
	}
	if !m.keep(b) {
		return
	}
	m.blocks = append(m.blocks, b)
}

func (m *machine) keep(b Block) bool {
	if len(m.schema.Required) == 0 {
		return true
	}
	for _, k := range m.schema.Required {
		if b.Has(k) {
			return true
		}
	}
	return false
}

// header reports whether line opens a new participant block.
func (m *machine) header(line string, rest []string) (string, bool) {
	switch m.schema.Header {
	case HeaderHash:
		if strings.HasPrefix(line, "### ") {
			return cleanName(strings.TrimPrefix(line, "### ")), true
		}
	case HeaderNameColon:
		s := strings.ReplaceAll(line, "**", "")
		if len(s) > 5 && strings.EqualFold(s[:5], "name:") {
			name := cleanName(s[5:])
			return name, name != ""
		}
	case HeaderBracket:
		if match := bracketHeader.FindStringSubmatch(line); match != nil {
			if _, _, isLabel := m.label(line); !isLabel {
				return cleanName(match[1]), true
			}
		}
		if m.bareName(line, rest) {
			return cleanName(strings.TrimPrefix(line, "### ")), true
		}
	}
	return "", false
}

// bareName detects an unmarked name line followed by the opening label.
func (m *machine) bareName(line string, rest []string) bool {
	if line == "" || strings.HasSuffix(line, ":") || len(strings.Fields(line)) > 6 {
		return false
	}
	for _, p := range []string{"-", "*", ">", "•", "(", "\"", "“"} {
		if strings.HasPrefix(line, p) {
			return false
		}
	}
	if _, _, isLabel := m.label(line); isLabel {
		return false
	}
	for _, next := range rest {
		next = strings.TrimSpace(next)
		if next == "" {
			continue
		}
		head, _, ok := splitLabel(next)
		return ok && m.first[fold(head)]
	}
	return false
}

// label reports whether line starts a known section.
func (m *machine) label(line string) (int, string, bool) {
	head, inline, ok := splitLabel(line)
	if !ok {
		return 0, "", false
	}
	f := fold(head)
	for _, l := range m.labels {
		if f == l.folded {
			return l.idx, strings.TrimSpace(inline), true
		}
	}
	return 0, "", false
}

// splitLabel splits "**Label:** rest", "Label: rest" and "- Label: rest".
func splitLabel(line string) (head, rest string, ok bool) {
	s := strings.TrimSpace(line)
	for _, p := range []string{"- ", "* ", "• "} {
		s = strings.TrimPrefix(s, p)
	}
	if strings.HasPrefix(s, "**") {
		end := strings.Index(s[2:], "**")
		if end < 0 {
			return "", "", false
		}
		head = s[2 : 2+end]
		rest = s[2+end+2:]
		switch {
		case strings.HasSuffix(head, ":"):
			head = strings.TrimSuffix(head, ":")
		case strings.HasPrefix(rest, ":"):
			rest = rest[1:]
		default:
			return "", "", false
		}
		return strings.TrimSpace(head), rest, true
	}
	i := strings.Index(s, ":")
	if i <= 0 {
		return "", "", false
	}
	return strings.TrimSpace(s[:i]), s[i+1:], true
}

// isHeading reports whether line is a markdown heading such as "## Summary".
func isHeading(line string) bool {
	rest := strings.TrimLeft(line, "#")
	return len(rest) < len(line) && strings.HasPrefix(rest, " ")
}

func joinLines(lines []string, join Join) string {
	switch join {
	case JoinBlockquote:
		out := make([]string, 0, len(lines))
		for _, l := range lines {
			l = strings.TrimSpace(l)
			if strings.HasPrefix(l, ">") {
				l = strings.TrimSpace(strings.TrimPrefix(l, ">"))
			}
			out = append(out, l)
		}
		return strings.TrimSpace(strings.Join(out, "\n"))
	case JoinLine:
		if len(lines) == 0 {
			return ""
		}
		return strings.TrimSpace(lines[0])
	default:
		parts := make([]string, 0, len(lines))
		for _, l := range lines {
			if l = strings.TrimSpace(l); l != "" {
				parts = append(parts, l)
			}
		}
		return strings.Join(parts, " ")
	}
}

func listItems(lines []string, sec Section) []string {
	var items []string
	seen := make(map[string]bool)
	for _, l := range lines {
		item := strings.TrimSpace(l)
		for _, p := range []string{"- ", "* ", "• "} {
			item = strings.TrimPrefix(item, p)
		}
		item = strings.TrimSpace(unquote(strings.TrimSpace(item)))
		if isEmptyValue(item) || seen[item] {
			continue
		}
		seen[item] = true
		items = append(items, item)
		if sec.MaxItems > 0 && len(items) == sec.MaxItems {
			break
		}
	}
	return items
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	pairs := [][2]string{{`"`, `"`}, {"“", "”"}, {"'", "'"}}
	for _, p := range pairs {
		if len(s) >= len(p[0])+len(p[1]) && strings.HasPrefix(s, p[0]) && strings.HasSuffix(s, p[1]) {
			return strings.TrimSpace(s[len(p[0]) : len(s)-len(p[1])])
		}
	}
	return s
}

func isEmptyValue(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(unquote(v), "n/a")
}

func cleanName(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "**", ""))
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	return strings.TrimSpace(s)
}
