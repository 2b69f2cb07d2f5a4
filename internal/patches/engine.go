package patches

import (
	"bytes"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/relpack/relpack/internal/fileset"
	"github.com/relpack/relpack/internal/releaseconf"
)

const (
	multilineCaseInsensitivePrefixConstant = "(?mi)"
	multilinePrefixConstant                = "(?m)"

	patchCompileErrorTemplateConstant = "patch %d: unable to compile regex %q: %w"
	patchReadErrorTemplateConstant    = "patch %d: unable to read %s: %w"

	todoCommentGlobConstant    = "**/*.py"
	todoCommentPatternConstant = `(#.*)TODO.*$`
	todoCommentSubstConstant   = "$1"

	skippingBinaryMessageConstant = "skipping binary file"
	patchedFileMessageConstant    = "patched file"
	logFieldPathConstant          = "path"
	logFieldPatchIndexConstant    = "patch"
)

// Summary reports what a patch run touched.
type Summary struct {
	FilesChanged int
	RulesApplied int
}

// Engine applies regular expression substitutions to a resolved file set.
type Engine struct {
	logger *zap.Logger
}

// NewEngine constructs an Engine.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

type compiledPatch struct {
	glob         string
	expression   *regexp.Regexp
	substitution string
}

// TodoRemovalRule is the built-in patch that strips TODO remarks from Python
// comments while keeping the comment marker and any text before the remark.
func TodoRemovalRule() releaseconf.PatchRule {
	return releaseconf.PatchRule{
		Glob:  todoCommentGlobConstant,
		Regex: todoCommentPatternConstant,
		Subst: todoCommentSubstConstant,
	}
}

// Apply runs every patch rule against the set in declared order. Configured
// expressions match case-insensitively across lines; substitutions use the
// $1 capture group syntax.
func (engine *Engine) Apply(resolvedSet *fileset.ResolvedFileSet, patchRules []releaseconf.PatchRule) (Summary, error) {
	compiledPatches, compileError := compilePatches(patchRules, multilineCaseInsensitivePrefixConstant)
	if compileError != nil {
		return Summary{}, compileError
	}
	return engine.applyCompiled(resolvedSet, compiledPatches)
}

// RemoveTodos runs the built-in TODO removal patch. Unlike configured patches
// it matches case-sensitively so lowercase prose is left alone.
func (engine *Engine) RemoveTodos(resolvedSet *fileset.ResolvedFileSet) (Summary, error) {
	compiledPatches, compileError := compilePatches([]releaseconf.PatchRule{TodoRemovalRule()}, multilinePrefixConstant)
	if compileError != nil {
		return Summary{}, compileError
	}
	return engine.applyCompiled(resolvedSet, compiledPatches)
}

func compilePatches(patchRules []releaseconf.PatchRule, flagPrefix string) ([]compiledPatch, error) {
	compiledPatches := make([]compiledPatch, 0, len(patchRules))
	for patchIndex, patchRule := range patchRules {
		compiledExpression, compileError := regexp.Compile(flagPrefix + patchRule.Regex)
		if compileError != nil {
			return nil, fmt.Errorf(patchCompileErrorTemplateConstant, patchIndex, patchRule.Regex, compileError)
		}
		compiledPatches = append(compiledPatches, compiledPatch{
			glob:         patchRule.Glob,
			expression:   compiledExpression,
			substitution: patchRule.Subst,
		})
	}
	return compiledPatches, nil
}

func (engine *Engine) applyCompiled(resolvedSet *fileset.ResolvedFileSet, compiledPatches []compiledPatch) (Summary, error) {
	summary := Summary{}
	changedPaths := map[string]bool{}

	for patchIndex, currentPatch := range compiledPatches {
		patchTouchedFile := false

		for _, destinationPath := range resolvedSet.Paths() {
			if !doublestar.MatchUnvalidated(currentPatch.glob, destinationPath) {
				continue
			}

			entry, _ := resolvedSet.Lookup(destinationPath)
			originalContent, readError := entry.Provider()
			if readError != nil {
				return Summary{}, fmt.Errorf(patchReadErrorTemplateConstant, patchIndex, destinationPath, readError)
			}
			if isBinaryContent(originalContent) {
				engine.logger.Debug(skippingBinaryMessageConstant, zap.String(logFieldPathConstant, destinationPath))
				continue
			}

			patchedContent := currentPatch.expression.ReplaceAll(originalContent, []byte(currentPatch.substitution))
			if bytes.Equal(patchedContent, originalContent) {
				continue
			}

			entry.Provider = fileset.BytesProvider(patchedContent)
			resolvedSet.Put(entry)
			changedPaths[destinationPath] = true
			patchTouchedFile = true
			engine.logger.Debug(
				patchedFileMessageConstant,
				zap.String(logFieldPathConstant, destinationPath),
				zap.Int(logFieldPatchIndexConstant, patchIndex),
			)
		}

		if patchTouchedFile {
			summary.RulesApplied++
		}
	}

	summary.FilesChanged = len(changedPaths)
	return summary, nil
}

// isBinaryContent reports whether the content looks like a binary payload.
// NUL bytes and invalid UTF-8 both disqualify a file from text patching.
func isBinaryContent(content []byte) bool {
	return bytes.IndexByte(content, 0) >= 0 || !utf8.Valid(content)
}
