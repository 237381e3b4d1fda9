package markdown

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
)

// Metadata maps lower-cased front-matter keys to their values.
type Metadata map[string][]string

// Get returns the first value for key, or "".
func (m Metadata) Get(key string) string {
	v, _ := m.Lookup(key)
	return v
}

// Lookup returns the first value for key and whether the key is present
// with a non-empty value.
func (m Metadata) Lookup(key string) (string, bool) {
	vals := m[strings.ToLower(key)]
	if len(vals) == 0 || vals[0] == "" {
		return "", false
	}
	return vals[0], true
}

var (
	headerKeyRe  = regexp.MustCompile(`^[ ]{0,3}([A-Za-z0-9_-]+):\s*(.*)$`)
	headerMoreRe = regexp.MustCompile(`^[ ]{4,}(.*)$`)
)

// splitMetadata separates front matter from the Markdown body. Delimited
// blocks (YAML, TOML, JSON) are tried first; without one, a leading
// "Key: value" header terminated by a blank line is accepted.
func splitMetadata(src []byte) (Metadata, []byte) {
	if !hasDelimitedBlock(src) {
		return splitHeader(src)
	}
	var fm map[string]any
	rest, err := frontmatter.Parse(bytes.NewReader(src), &fm)
	if err != nil {
		// Malformed block: no metadata, render everything as body.
		return Metadata{}, src
	}
	return normalize(fm), rest
}

// hasDelimitedBlock reports whether the first non-blank line opens a
// front-matter block.
func hasDelimitedBlock(src []byte) bool {
	trimmed := bytes.TrimLeft(src, "\r\n")
	line, _, _ := bytes.Cut(trimmed, []byte("\n"))
	line = bytes.TrimRight(line, "\r ")
	for _, delim := range []string{"---", "+++", ";;;"} {
		if bytes.HasPrefix(line, []byte(delim)) {
			return true
		}
	}
	return string(line) == "{"
}

// splitHeader parses a MultiMarkdown-style metadata header.
func splitHeader(src []byte) (Metadata, []byte) {
	meta := Metadata{}
	lines := strings.SplitAfter(string(src), "\n")
	var key string
	i := 0
	for ; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r\n")
		if strings.TrimSpace(line) == "" {
			i++
			break
		}
		if m := headerKeyRe.FindStringSubmatch(line); m != nil {
			key = strings.ToLower(m[1])
			meta[key] = append(meta[key], strings.TrimSpace(m[2]))
			continue
		}
		if m := headerMoreRe.FindStringSubmatch(line); m != nil && key != "" {
			meta[key] = append(meta[key], strings.TrimSpace(m[1]))
			continue
		}
		break
	}
	if len(meta) == 0 {
		return meta, src
	}
	return meta, []byte(strings.Join(lines[i:], ""))
}

// normalize flattens decoded front matter into string values.
func normalize(fm map[string]any) Metadata {
	meta := make(Metadata, len(fm))
	for k, v := range fm {
		key := strings.ToLower(k)
		switch val := v.(type) {
		case nil:
			continue
		case []any:
			for _, item := range val {
				meta[key] = append(meta[key], scalar(item))
			}
		default:
			meta[key] = append(meta[key], scalar(val))
		}
	}
	return meta
}

func scalar(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format(time.DateOnly)
		}
		return val.Format(time.RFC3339)
	case map[string]any:
		return mapString(val)
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, x := range val {
			m[fmt.Sprint(k)] = x
		}
		return mapString(m)
	default:
		return fmt.Sprint(val)
	}
}

// mapString formats nested maps with sorted keys so output is deterministic.
func mapString(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + scalar(m[k])
	}
	return strings.Join(parts, " ")
}
