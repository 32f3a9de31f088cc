package redaction

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// ContactPatterns contains regex patterns for contact and identity
// details that must not end up in stored item text, embeddings, or the
// public found-items feed. Handover details are exchanged in chat, not
// in the listing.
var ContactPatterns = []string{
	`\+?\d[\d\s().-]{8,}\d`,                              // phone numbers (intl and local)
	`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`,     // email addresses
	`(?i)roll\s*(?:no|number)\s*[:=]?\s*[a-zA-Z0-9/-]+`,  // roll numbers
	`(?i)(?:hostel|room)\s*(?:no|number)?\s*[:=]\s*\S+`,  // room numbers
	`(?i)aadhaar?\s*[:=]?\s*\d{4}\s?\d{4}\s?\d{4}`,       // Aadhaar numbers
}

// compiledBuiltins holds pre-compiled versions of ContactPatterns.
// Compiled once at package init; zero runtime cost per Redact call.
var compiledBuiltins []*regexp.Regexp

func init() {
	compiledBuiltins = make([]*regexp.Regexp, 0, len(ContactPatterns))
	for _, p := range ContactPatterns {
		// All built-in patterns are hardcoded and valid; panic immediately if not.
		compiledBuiltins = append(compiledBuiltins, regexp.MustCompile(p))
	}
}

// CompilePatterns compiles a slice of regex strings into []*regexp.Regexp.
// Invalid patterns are skipped. Intended for pre-compiling custom
// patterns from a .reclaimignore file once at service startup.
func CompilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))

	for _, p := range patterns {
		if re, err := regexp.Compile(p); err == nil {
			compiled = append(compiled, re)
		}
	}

	return compiled
}

// Redact strips contact details from text using the built-in patterns
// plus caller-supplied extra patterns as raw strings.
//
// Use RedactCompiled for hot paths where extra patterns are already compiled.
func Redact(text string, extraPatterns []string) string {
	return RedactCompiled(text, CompilePatterns(extraPatterns))
}

// RedactCompiled is the same as Redact but accepts pre-compiled extra
// patterns, avoiding regexp.Compile overhead on repeated calls.
func RedactCompiled(text string, extra []*regexp.Regexp) string {
	for _, re := range compiledBuiltins {
		text = re.ReplaceAllString(text, "[REDACTED]")
	}

	for _, re := range extra {
		text = re.ReplaceAllString(text, "[REDACTED]")
	}

	return text
}

// LoadIgnoreFile loads custom redaction patterns from a .reclaimignore file.
func LoadIgnoreFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}

		return nil, fmt.Errorf("failed to open .reclaimignore: %w", err)
	}

	defer func() { _ = file.Close() }()

	var patterns []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// Skip empty lines and comments
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read .reclaimignore: %w", err)
	}

	return patterns, nil
}
