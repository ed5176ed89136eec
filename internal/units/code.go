package units

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/temirov/llm-steps/internal/pipeline"
)

const (
	codeGeneratorUnitName = "code_generator"
	codeCleaningUnitName  = "code_cleaning"
)

var (
	fencedBlockPattern = regexp.MustCompile("(?s)```[ \t]*([a-zA-Z0-9_+-]*)[ \t]*\r?\n(.*?)```")
	inlineBlockPattern = regexp.MustCompile("```([^`\n]*?)```")
	languageTags       = map[string]struct{}{"python": {}, "py": {}, "python3": {}, "sql": {}}
)

// CodeGenerator extracts the code artifact from an LLM response.
type CodeGenerator struct{}

func (CodeGenerator) Name() string { return codeGeneratorUnitName }

func (CodeGenerator) Execute(ctx context.Context, input any, session *pipeline.Session) (pipeline.Output, error) {
	response, ok := input.(string)
	if !ok {
		return pipeline.Fail(nil, fmt.Sprintf("code generator expects an LLM response, got %T", input)), nil
	}
	code := ExtractCode(response)
	if code == "" {
		return pipeline.Fail(nil, "no code found in LLM response"), nil
	}
	session.Stash(pipeline.ArtifactLastCodeGenerated, code)
	return pipeline.Succeed(code, "Code Generated"), nil
}

// ExtractCode returns the first fenced block, or the whole response when there is none.
// Single-line blocks such as ```python print(1)``` count as fenced blocks.
func ExtractCode(response string) string {
	if block, found := firstFencedBlock(response); found {
		return block
	}
	trimmed := strings.TrimSpace(response)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = stripLanguageTag(strings.TrimPrefix(trimmed, "```"))
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(trimmed), "```"))
}

func firstFencedBlock(response string) (string, bool) {
	block := fencedBlockPattern.FindStringSubmatchIndex(response)
	inline := inlineBlockPattern.FindStringSubmatchIndex(response)
	switch {
	case block != nil && (inline == nil || block[0] <= inline[0]):
		return strings.TrimSpace(response[block[4]:block[5]]), true
	case inline != nil:
		return strings.TrimSpace(stripLanguageTag(response[inline[2]:inline[3]])), true
	}
	return "", false
}

// stripLanguageTag drops a leading language tag when code follows it.
func stripLanguageTag(text string) string {
	trimmed := strings.TrimLeft(text, " \t")
	end := strings.IndexAny(trimmed, " \t\r\n")
	if end <= 0 {
		return trimmed
	}
	if _, isTag := languageTags[strings.ToLower(trimmed[:end])]; isTag {
		return trimmed[end+1:]
	}
	return trimmed
}

// CodeCleaning normalises generated code and rejects disallowed constructs.
type CodeCleaning struct{}

func (CodeCleaning) Name() string { return codeCleaningUnitName }

func (CodeCleaning) Execute(ctx context.Context, input any, session *pipeline.Session) (pipeline.Output, error) {
	code, ok := input.(string)
	if !ok {
		return pipeline.Fail(nil, fmt.Sprintf("code cleaning expects code, got %T", input)), nil
	}
	cleaned := CleanCode(code)
	if cleaned == "" {
		return pipeline.Fail(cleaned, "code is empty after cleaning"), nil
	}
	if pattern, found := findDisallowed(cleaned, session.DisallowedCode()); found {
		return pipeline.Fail(cleaned, fmt.Sprintf("code contains disallowed construct %q", pattern)), nil
	}
	session.Stash(pipeline.ArtifactLastCodeCleaned, cleaned)
	return pipeline.Succeed(cleaned, "Code Cleaned"), nil
}

// CleanCode normalises newlines, drops trailing whitespace and stray fences.
func CleanCode(code string) string {
	normalized := strings.ReplaceAll(code, "\r\n", "\n")
	lines := strings.Split(normalized, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); strings.HasPrefix(trimmed, "```") {
			remainder := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(trimmed, "```"), "```"))
			if _, isTag := languageTags[strings.ToLower(remainder)]; isTag || remainder == "" {
				continue
			}
			line = stripLanguageTag(remainder)
		}
		line = strings.TrimRight(line, " \t")
		kept = append(kept, strings.TrimRight(strings.TrimSuffix(line, "```"), " \t"))
	}
	return strings.Trim(strings.Join(kept, "\n"), "\n")
}

func findDisallowed(code string, patterns []string) (string, bool) {
	for _, pattern := range patterns {
		trimmed := strings.TrimSpace(pattern)
		if trimmed != "" && strings.Contains(code, trimmed) {
			return trimmed, true
		}
	}
	return "", false
}
