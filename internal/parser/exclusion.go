// Package parser extracts user-visible strings from JSX/TSX/HTML source
// text using regex heuristics, and evaluates exclusion selectors against
// the tag nesting at a given position.
//
// The parser is deliberately not a real markup parser: it emulates
// structural understanding with a token scanner over tag open/close
// events and accepts the edge cases that come with that.
package parser

import (
	"regexp"
	"strings"

	"polyglot/internal/logger"
	"polyglot/internal/types"
)

// Rule is a parsed exclusion selector of the shape tag, tag.class,
// tag#id or .class/#id without a tag.
type Rule struct {
	Tag     string
	ID      string
	Classes []string
}

var selectorPartRe = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9-]*)?((?:[.#][a-zA-Z0-9_-]+)*)$`)

// ParseRule parses a selector string into a Rule. A selector must carry
// at least one of tag, id or class.
func ParseRule(selector string) (Rule, error) {
	selector = strings.TrimSpace(selector)
	m := selectorPartRe.FindStringSubmatch(selector)
	if m == nil {
		return Rule{}, types.NewAppErrorWithDetails(types.ErrInvalidInput, "invalid exclusion selector", selector, nil)
	}

	rule := Rule{Tag: m[1]}
	rest := m[2]
	for rest != "" {
		next := strings.IndexAny(rest[1:], ".#")
		var part string
		if next < 0 {
			part, rest = rest, ""
		} else {
			part, rest = rest[:next+1], rest[next+1:]
		}
		if len(part) < 2 {
			return Rule{}, types.NewAppErrorWithDetails(types.ErrInvalidInput, "invalid exclusion selector", selector, nil)
		}
		if part[0] == '#' {
			rule.ID = part[1:]
		} else {
			rule.Classes = append(rule.Classes, part[1:])
		}
	}

	if rule.Tag == "" && rule.ID == "" && len(rule.Classes) == 0 {
		return Rule{}, types.NewAppErrorWithDetails(types.ErrInvalidInput, "empty exclusion selector", selector, nil)
	}
	return rule, nil
}

// ParseRules parses a list of selectors, dropping invalid ones with a
// warning so one bad selector does not abort a run.
func ParseRules(selectors []string) []Rule {
	rules := make([]Rule, 0, len(selectors))
	for _, s := range selectors {
		rule, err := ParseRule(s)
		if err != nil {
			logger.Warn("dropping invalid exclusion selector", logger.String("selector", s))
			continue
		}
		rules = append(rules, rule)
	}
	return rules
}

// openTag is an ancestor entry on the tag stack.
type openTag struct {
	name    string
	id      string
	classes []string
}

var (
	// Attribute text tolerates quoted values and one level of nested
	// braces, enough for className={`a ${b}`} style expressions.
	tagTokenRe = regexp.MustCompile(`<\s*(/?)\s*([a-zA-Z][a-zA-Z0-9-]*)((?:"[^"]*"|'[^']*'|\{(?:[^{}]|\{[^{}]*\})*\}|[^>"'{])*?)(/?)\s*>`)

	idAttrRe    = regexp.MustCompile(`\bid\s*=\s*["']([^"']*)["']`)
	classAttrRe = regexp.MustCompile(`\b(?:class|className)\s*=\s*["']([^"']*)["']`)
	// Best effort for className={...}: collect every string literal inside
	// the expression. Conditional class names are all treated as present.
	classExprRe    = regexp.MustCompile(`\bclassName\s*=\s*\{((?:[^{}]|\{[^{}]*\})*)\}`)
	classLiteralRe = regexp.MustCompile("[\"'`]([^\"'`]*)[\"'`]")
)

// parseOpenTag extracts id and classes from a tag's attribute text.
func parseOpenTag(name, attrs string) openTag {
	tag := openTag{name: strings.ToLower(name)}

	if m := idAttrRe.FindStringSubmatch(attrs); m != nil {
		tag.id = m[1]
	}
	if m := classAttrRe.FindStringSubmatch(attrs); m != nil {
		tag.classes = append(tag.classes, strings.Fields(m[1])...)
	}
	if m := classExprRe.FindStringSubmatch(attrs); m != nil {
		for _, lit := range classLiteralRe.FindAllStringSubmatch(m[1], -1) {
			tag.classes = append(tag.classes, strings.Fields(lit[1])...)
		}
	}
	return tag
}

// ancestorStack returns the stack of tags open at pos, scanning all tag
// tokens from the start of doc. Self-closing tags never push; a closing
// tag pops the nearest open tag with the same name, tolerating malformed
// nesting.
func ancestorStack(doc string, pos int) []openTag {
	if pos > len(doc) {
		pos = len(doc)
	}

	var stack []openTag
	for _, m := range tagTokenRe.FindAllStringSubmatchIndex(doc, -1) {
		if m[0] >= pos {
			break
		}

		closing := m[2] >= 0 && doc[m[2]:m[3]] == "/"
		selfClosing := m[8] >= 0 && doc[m[8]:m[9]] == "/"
		name := strings.ToLower(doc[m[4]:m[5]])

		switch {
		case closing:
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].name == name {
					stack = append(stack[:i], stack[i+1:]...)
					break
				}
			}
		case selfClosing:
			// never pushed
		default:
			attrs := ""
			if m[6] >= 0 {
				attrs = doc[m[6]:m[7]]
			}
			stack = append(stack, parseOpenTag(name, attrs))
		}
	}
	return stack
}

// matches reports whether rule matches a single ancestor: tag (if given)
// by name, id (if given) exactly, and every rule class present in the
// ancestor's class list.
func (r Rule) matches(tag openTag) bool {
	if r.Tag != "" && !strings.EqualFold(r.Tag, tag.name) {
		return false
	}
	if r.ID != "" && r.ID != tag.id {
		return false
	}
	for _, c := range r.Classes {
		found := false
		for _, tc := range tag.classes {
			if tc == c {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// IsExcluded reports whether pos in doc falls inside a subtree matched by
// any rule. Cost is O(len(doc)) per call.
func IsExcluded(doc string, pos int, rules []Rule) bool {
	if len(rules) == 0 {
		return false
	}

	for _, tag := range ancestorStack(doc, pos) {
		for _, rule := range rules {
			if rule.matches(tag) {
				return true
			}
		}
	}
	return false
}
