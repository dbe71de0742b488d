package parser

import (
	"regexp"
	"strings"
)

var (
	blockCommentRe = regexp.MustCompile(`/\*[\s\S]*?\*/`)

	textRunRe = regexp.MustCompile(`>([^<>]+)<`)
	// One level of nested braces so template interpolations like
	// {`Hi ${name}`} stay inside one block.
	exprBlockRe = regexp.MustCompile(`\{((?:[^{}]|\{[^{}]*\})*)\}`)

	doubleQuotedRe  = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)
	singleQuotedRe  = regexp.MustCompile(`'((?:[^'\\]|\\.)*)'`)
	backtickRe      = regexp.MustCompile("`((?:[^`\\\\]|\\\\.)*)`")
	interpolationRe = regexp.MustCompile(`\$\{[^}]*\}`)

	punctuationOnlyRe = regexp.MustCompile(`^[{}()\[\];,]+$`)
)

// htmlEntities is the fixed entity set decoded in extracted strings.
var htmlEntities = map[string]string{
	"&nbsp;": " ",
	"&amp;":  "&",
	"&lt;":   "<",
	"&gt;":   ">",
	"&quot;": `"`,
	"&#39;":  "'",
}

// Extract pulls candidate translatable strings out of one file's content:
// tag-delimited text runs, string literals inside {...} expression blocks,
// and the values of the given visible attributes. Matches inside subtrees
// matched by excludeRules are dropped. The result is deduplicated in
// first-seen order; extraction is a pure function of its inputs.
func Extract(code string, visibleAttributes []string, excludeRules []Rule) []string {
	stripped := stripComments(code)

	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(decodeEntities(strings.TrimSpace(s)))
		if s == "" || punctuationOnlyRe.MatchString(s) {
			return
		}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	// 1. Text runs between > and <. Runs are delimited by any tag token,
	// so embedded self-closing tags split runs on their own.
	for _, m := range textRunRe.FindAllStringSubmatchIndex(stripped, -1) {
		run := strings.TrimSpace(stripped[m[2]:m[3]])
		if run == "" {
			continue
		}
		// A run that is entirely one {...} expression is handled by the
		// literal extraction below; mixed runs keep their {placeholders}.
		if strings.HasPrefix(run, "{") && strings.HasSuffix(run, "}") {
			continue
		}
		if IsExcluded(stripped, m[2], excludeRules) {
			continue
		}
		add(run)
	}

	// 2. String literals inside {...} expression blocks.
	for _, m := range exprBlockRe.FindAllStringSubmatchIndex(stripped, -1) {
		if IsExcluded(stripped, m[0], excludeRules) {
			continue
		}
		block := stripped[m[2]:m[3]]
		for _, lit := range doubleQuotedRe.FindAllStringSubmatch(block, -1) {
			add(lit[1])
		}
		for _, lit := range singleQuotedRe.FindAllStringSubmatch(block, -1) {
			add(lit[1])
		}
		for _, lit := range backtickRe.FindAllStringSubmatch(block, -1) {
			// Keep only the static text segments of a template literal.
			for _, segment := range interpolationRe.Split(lit[1], -1) {
				add(segment)
			}
		}
	}

	// 3. Visible attribute values.
	for _, attr := range visibleAttributes {
		for _, re := range attributePatterns(attr) {
			for _, m := range re.FindAllStringSubmatchIndex(stripped, -1) {
				if IsExcluded(stripped, m[0], excludeRules) {
					continue
				}
				add(stripped[m[2]:m[3]])
			}
		}
	}

	return out
}

// attributePatterns builds the value-capturing patterns for one attribute
// name. A * wildcard expands to [a-zA-Z0-9-]*, so "aria-*" matches every
// aria- attribute.
func attributePatterns(name string) []*regexp.Regexp {
	var pattern strings.Builder
	for _, r := range name {
		if r == '*' {
			pattern.WriteString(`[a-zA-Z0-9-]*`)
		} else {
			pattern.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	p := pattern.String()
	return []*regexp.Regexp{
		regexp.MustCompile(`\b` + p + `\s*=\s*"([^"]*)"`),
		regexp.MustCompile(`\b` + p + `\s*=\s*'([^']*)'`),
	}
}

// stripComments removes /* */ block comments and // line comments so no
// commented-out markup is extracted. A // preceded by : survives, which
// keeps https:// URLs intact; quote state is tracked per line so string
// contents are never truncated.
func stripComments(code string) string {
	code = blockCommentRe.ReplaceAllString(code, "")

	lines := strings.Split(code, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return strings.Join(lines, "\n")
}

func stripLineComment(line string) string {
	var quote byte
	for j := 0; j < len(line); j++ {
		c := line[j]
		switch {
		case quote != 0:
			if c == '\\' {
				j++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '/' && j+1 < len(line) && line[j+1] == '/':
			if j > 0 && line[j-1] == ':' {
				continue
			}
			return line[:j]
		}
	}
	return line
}

// decodeEntities decodes the fixed HTML entity set.
func decodeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	for entity, replacement := range htmlEntities {
		s = strings.ReplaceAll(s, entity, replacement)
	}
	return s
}
