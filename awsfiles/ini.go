// Package awsfiles parses the user's AWS credentials and config files.
package awsfiles

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Pair is a single key = value line inside a section.
type Pair struct {
	Key   string
	Value string
}

// Section is an INI section: a name plus ordered key-value pairs. Comment
// lines inside the section are kept because the credentials file carries an
// expiration convention in a comment.
type Section struct {
	Name     string
	Pairs    []Pair
	Comments []string
}

// Get returns the value for key and whether it was present.
func (s *Section) Get(key string) (string, bool) {
	for _, p := range s.Pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// ParseINI tokenizes INI-style input: [section] headers, key = value lines,
// # and ; comment lines, surrounding whitespace trimmed. Lines before the
// first section header are discarded.
func ParseINI(r io.Reader) ([]Section, error) {
	var sections []Section
	var current *Section

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue

		case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
			if current != nil {
				sections = append(sections, *current)
			}
			current = &Section{Name: strings.TrimSpace(line[1 : len(line)-1])}

		case strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";"):
			if current != nil {
				current.Comments = append(current.Comments, line)
			}

		default:
			if current == nil {
				continue
			}
			key, value, found := strings.Cut(line, "=")
			if !found {
				continue
			}
			current.Pairs = append(current.Pairs, Pair{
				Key:   strings.TrimSpace(key),
				Value: strings.TrimSpace(value),
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	if current != nil {
		sections = append(sections, *current)
	}
	return sections, nil
}

// EncodeINI renders sections back to INI text. Inverse of ParseINI for the
// fields it preserves.
func EncodeINI(sections []Section) string {
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%s]\n", s.Name)
		for _, c := range s.Comments {
			b.WriteString(c)
			b.WriteString("\n")
		}
		for _, p := range s.Pairs {
			fmt.Fprintf(&b, "%s = %s\n", p.Key, p.Value)
		}
	}
	return b.String()
}
