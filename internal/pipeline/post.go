// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package pipeline

import (
	"regexp"
	"strings"
)

var (
	codeBlockRe = regexp.MustCompile("(?s)```(\\w+)?\n(.*?)\n```")
	listItemRe  = regexp.MustCompile(`(?m)(?:^|\n)(?:\d+\.|[\-\*])\s+(.+)`)
	questionRe  = regexp.MustCompile(`([^.!?]*\?)`)
	kvPairRe    = regexp.MustCompile(`(\w+):\s*([^\n]+)`)
	headerRe    = regexp.MustCompile(`(?m)^#+\s+`)
	boldRe      = regexp.MustCompile(`\*\*[^*]+\*\*`)
	italicRe    = regexp.MustCompile(`\*[^*]+\*`)
	mdLinkRe    = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	tableRowRe  = regexp.MustCompile(`\|[^|\n]+\|`)
	urlRe       = regexp.MustCompile(`https?://[A-Za-z0-9$\-_@.&+!*\\(\\),%]+`)
	urlDomainRe = regexp.MustCompile(`://([^/]+)`)
	ssnRe       = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	cardRe      = regexp.MustCompile(`\b\d{16}\b`)
)

// structuredExtractor pulls code blocks, lists, questions and key-value
// pairs out of a response.
type structuredExtractor struct{}

func (structuredExtractor) name() string { return "structured_extractor" }

func (structuredExtractor) process(content string, _ Context) *Result {
	r := newResult(content)

	if blocks := codeBlockRe.FindAllStringSubmatch(content, -1); len(blocks) > 0 {
		out := make([]map[string]string, 0, len(blocks))
		for _, b := range blocks {
			lang := b[1]
			if lang == "" {
				lang = "text"
			}
			out = append(out, map[string]string{"language": lang, "code": strings.TrimSpace(b[2])})
		}
		r.StructuredData["code_blocks"] = out
	}

	if items := listItemRe.FindAllStringSubmatch(content, -1); len(items) > 0 {
		list := make([]string, 0, len(items))
		for _, it := range items {
			list = append(list, it[1])
		}
		r.StructuredData["lists"] = list
	}

	if qs := questionRe.FindAllString(content, -1); len(qs) > 0 {
		questions := make([]string, 0, len(qs))
		for _, q := range qs {
			questions = append(questions, strings.TrimSpace(q))
		}
		r.StructuredData["questions"] = questions
	}

	if pairs := kvPairRe.FindAllStringSubmatch(content, -1); len(pairs) > 0 {
		kv := make(map[string]string, len(pairs))
		for _, p := range pairs {
			kv[p[1]] = p[2]
		}
		r.StructuredData["key_value_pairs"] = kv
	}

	r.Enhancements["extraction_performed"] = true
	return r
}

// codeInspector annotates code blocks with language and size hints.
type codeInspector struct{}

func (codeInspector) name() string { return "code_inspector" }

func (codeInspector) process(content string, _ Context) *Result {
	r := newResult(content)

	blocks := codeBlockRe.FindAllStringSubmatch(content, -1)
	if len(blocks) == 0 {
		return r
	}

	info := make([]map[string]any, 0, len(blocks))
	for _, b := range blocks {
		lang := b[1]
		code := b[2]
		if lang == "" {
			lang = detectLanguage(code)
		}
		info = append(info, map[string]any{
			"language":            lang,
			"line_count":          len(strings.Split(strings.TrimSpace(code), "\n")),
			"has_syntax_elements": strings.ContainsAny(code, "{}();"),
		})
	}
	r.Enhancements["code_highlighting"] = info
	return r
}

func detectLanguage(code string) string {
	switch {
	case strings.Contains(code, "func ") && strings.Contains(code, "package "):
		return "go"
	case strings.Contains(code, "def ") && strings.Contains(code, "import "):
		return "python"
	case strings.Contains(code, "function ") && strings.Contains(code, "{"):
		return "javascript"
	case strings.Contains(code, "public class"):
		return "java"
	case strings.Contains(code, "#include"):
		return "cpp"
	default:
		return "text"
	}
}

// markdownInspector counts markdown elements in a response.
type markdownInspector struct{}

func (markdownInspector) name() string { return "markdown_inspector" }

func (markdownInspector) process(content string, _ Context) *Result {
	r := newResult(content)

	elements := map[string]int{
		"headers": len(headerRe.FindAllString(content, -1)),
		"bold":    len(boldRe.FindAllString(content, -1)),
		"italic":  len(italicRe.FindAllString(content, -1)),
		"links":   len(mdLinkRe.FindAllString(content, -1)),
		"tables":  len(tableRowRe.FindAllString(content, -1)),
	}

	for _, n := range elements {
		if n > 0 {
			r.Enhancements["markdown_elements"] = elements
			r.Enhancements["has_markdown"] = true
			break
		}
	}
	return r
}

// linkDetector records URLs found in a response.
type linkDetector struct{}

func (linkDetector) name() string { return "link_detector" }

func (linkDetector) process(content string, _ Context) *Result {
	r := newResult(content)

	urls := urlRe.FindAllString(content, -1)
	if len(urls) > 0 {
		detected := make([]map[string]string, 0, len(urls))
		for _, u := range urls {
			domain := "unknown"
			if m := urlDomainRe.FindStringSubmatch(u); m != nil {
				domain = m[1]
			}
			detected = append(detected, map[string]string{"url": u, "domain": domain})
		}
		r.StructuredData["detected_urls"] = detected
	}
	r.Enhancements["url_detection_performed"] = true
	return r
}

// safetyChecker flags oversized responses and sensitive-looking patterns.
type safetyChecker struct{}

func (safetyChecker) name() string { return "safety_checker" }

func (safetyChecker) process(content string, _ Context) *Result {
	r := newResult(content)

	var flags []string
	if len(content) > 10000 {
		flags = append(flags, "very_long_response")
	}
	if ssnRe.MatchString(content) || cardRe.MatchString(content) {
		flags = append(flags, "potential_sensitive_data")
	}
	if flags == nil {
		flags = []string{}
	}

	r.StructuredData["safety_flags"] = flags
	r.Enhancements["safety_checked"] = true
	return r
}
