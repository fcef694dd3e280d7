package generator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"uav-testgen/internal/obstacle"
)

// ErrEmptyReply marks a reply with no content, usually after the retry budget ran out.
var ErrEmptyReply = errors.New("empty generator reply")

// ParseError reports a reply that is not a well-formed configuration document.
type ParseError struct {
	Reply string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse generator reply: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Any language tag is accepted when a newline follows it; the common tags may also run
// straight into the body.
var fenceRE = regexp.MustCompile("(?is)```(?:[\\w+.-]+[ \t]*\r?\n|(?:json|yaml|yml)[ \t]*)?(.*?)```")

// StripFences returns the body of the first ``` block, or the trimmed reply when there is none.
func StripFences(reply string) string {
	if m := fenceRE.FindStringSubmatch(reply); m != nil {
		return strings.TrimSpace(m[1])
	}
	s := strings.TrimSpace(reply)
	// An unterminated opening fence still carries the document.
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		} else {
			s = ""
		}
	}
	return strings.TrimSpace(s)
}

func decodeDocument(reply string) (any, error) {
	body := StripFences(reply)
	if body == "" {
		return nil, &ParseError{Reply: reply, Err: ErrEmptyReply}
	}
	var doc any
	// JSON is a subset of YAML, so one decoder covers both reply styles.
	if err := yaml.Unmarshal([]byte(body), &doc); err != nil {
		return nil, &ParseError{Reply: reply, Err: err}
	}
	if doc == nil {
		return nil, &ParseError{Reply: reply, Err: ErrEmptyReply}
	}
	return doc, nil
}

// ParseConfigurations reads a JSON (or YAML) array of configurations from a seed-phase reply.
func ParseConfigurations(reply string) ([]obstacle.Configuration, error) {
	doc, err := decodeDocument(reply)
	if err != nil {
		return nil, err
	}
	if _, isList := doc.([]any); !isList {
		if m, isMap := doc.(map[string]any); isMap {
			if _, single := m["obstacles"]; single {
				doc = []any{m}
			}
		}
	}
	return obstacle.DecodeConfigurations(doc)
}

// ParseConfiguration reads a single configuration from a mutation-phase reply.
func ParseConfiguration(reply string) (obstacle.Configuration, error) {
	doc, err := decodeDocument(reply)
	if err != nil {
		return obstacle.Configuration{}, err
	}
	return obstacle.DecodeConfiguration(doc)
}
