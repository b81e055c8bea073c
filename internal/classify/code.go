package classify

import (
	"context"
	"regexp"
	"strings"

	"github.com/berrythewa/clipvault/internal/types"
	"github.com/berrythewa/clipvault/pkg/utils"
)

// Score thresholds and ratios for the code heuristic. They were tuned
// against real clipboard samples; changing any of them changes which
// inputs classify as code.
const (
	singleLineThreshold = 2.5
	shortTextThreshold  = 3.5
	defaultThreshold    = 5.0
	keywordDensityRatio = 0.08

	// Keywords only count once some line looks structured: this dense in
	// structural characters, ending in ;{} or indented.
	structuredLineDensity = 0.1

	shortTextLines       = 3
	scanLines            = 10
	strongShortLines     = 4
	strongMatchRatio     = 0.3
	proseRejectThreshold = 3
)

var strongPatterns = []*regexp.Regexp{
	// import / export / include
	regexp.MustCompile(`^(import\s+[\w*{}\s,'"./@-]+|export\s+(default\s+)?(const|let|var|function|class|interface|type|async|\{)|from\s+[\w.]+\s+import\s+\w|#include\s*[<"]|package\s+[a-z_][\w.]*;?$|using\s+[\w.]+;$|require\(['"])`),
	// variable declarations
	regexp.MustCompile(`^((const|let|var)\s+[\w$]+\s*(:\s*[\w<>\[\]|, ]+)?\s*=|[\w$]+\s*:=|(int|float|double|char|bool|auto|String|long)\s+\w+\s*=)`),
	// function definitions
	regexp.MustCompile(`^((async\s+)?function\s*[\w$]*\s*\(|(def|fn|func|fun)\s+[\w$.()* ]+\(|(public|private|protected|static|internal)\s+[\w<>\[\], ]+\s+\w+\s*\(|[\w$]+\s*=\s*(async\s*)?\([^)]*\)\s*=>)`),
	// destructuring
	regexp.MustCompile(`^(const|let|var)\s*[{\[][^}\]]*[}\]]\s*=`),
	// method chains
	regexp.MustCompile(`(^\.[\w$]+\(|[\w$)\]]\.[\w$]+\([^()]*\)\.[\w$]+\()`),
	// control-flow headers
	regexp.MustCompile(`^((if|for|while|switch|catch)\s*\(.*\)\s*\{?$|\}?\s*else(\s+if\s*\(.*\))?\s*\{$|(try|do|finally)\s*\{$|(if|elif|for|while|with|def|class|try|except)\b[^.!?]*:$|else:$)`),
	// return statements
	regexp.MustCompile(`^return(\s+[^.!?]+)?;$|^return$`),
}

var prosePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d+[.)]\s+[A-Z]`),
	regexp.MustCompile(`\?\s*$`),
	regexp.MustCompile(`\b[A-Z][a-z]+\s+[A-Z][a-z]+\b`),
	regexp.MustCompile(`^(The|This|That|These|Those|I|We|You|He|She|They|It|My|Our|Your|Please|Thanks|Thank|Hello|Hi|Hey|Dear|However|Also|So|But|And|Then|When|What|Why|How|Where|Who)\s`),
}

var (
	sentenceRe   = regexp.MustCompile(`^[A-Z][^;{}=]*[.!?]$`)
	trailingRe   = regexp.MustCompile(`[;{}]\s*$`)
	indentRe     = regexp.MustCompile(`^(\t| {2,})\S`)
	wordRe       = regexp.MustCompile(`[A-Za-z_$][\w$]*`)
	structuralCh = "{}[]();=<>:"
)

var codeKeywords = map[string]bool{
	"function": true, "return": true, "const": true, "let": true, "var": true,
	"if": true, "else": true, "for": true, "while": true, "do": true,
	"switch": true, "case": true, "break": true, "continue": true, "default": true,
	"class": true, "def": true, "import": true, "export": true, "from": true,
	"public": true, "private": true, "protected": true, "static": true, "void": true,
	"int": true, "float": true, "double": true, "char": true, "bool": true, "boolean": true,
	"string": true, "true": true, "false": true, "null": true, "nil": true,
	"undefined": true, "None": true, "True": true, "False": true, "new": true,
	"this": true, "self": true, "async": true, "await": true, "try": true,
	"catch": true, "finally": true, "throw": true, "struct": true, "interface": true,
	"func": true, "package": true, "fn": true, "impl": true, "mut": true,
	"lambda": true, "elif": true, "typeof": true, "instanceof": true, "enum": true,
	"extends": true, "implements": true, "yield": true, "println": true, "printf": true,
	"console": true, "echo": true, "fi": true, "esac": true, "done": true,
}

// CodeClassifier decides code versus prose with a multi-signal score.
type CodeClassifier struct {
	text         *TextClassifier
	previewLines int
}

func NewCodeClassifier(text *TextClassifier, previewLines int) *CodeClassifier {
	return &CodeClassifier{text: text, previewLines: max(previewLines, 1)}
}

func (*CodeClassifier) Name() string { return "code" }

func (c *CodeClassifier) Classify(_ context.Context, in Input) (*Result, error) {
	if !LooksLikeCode(in.Text) {
		return nil, nil
	}

	text := strings.TrimRight(in.Text, "\r\n")
	lines := strings.Split(text, "\n")
	head := lines
	if len(head) > c.previewLines {
		head = head[:c.previewLines]
	}

	// Reuse the text storage rule, forcing a side-car when the preview
	// cannot show everything.
	_, full := c.text.storage(text, len(lines) > c.previewLines)
	payload := &types.CodePayload{
		Preview:        Highlight(strings.Join(head, "\n")),
		HasFullContent: full,
		RawLines:       len(lines),
	}
	res := &Result{Item: newItem(utils.HashString(in.Text), payload)}
	if full {
		res.FullText = text
	} else {
		payload.Text = text
	}
	return res, nil
}

// LooksLikeCode runs the heuristic on its own.
func LooksLikeCode(text string) bool {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, strings.TrimRight(l, "\r"))
		}
	}
	if len(lines) == 0 {
		return false
	}
	head := lines
	if len(head) > scanLines {
		head = head[:scanLines]
	}

	if strongMatch(head) {
		return true
	}
	if proseScore(head) >= proseRejectThreshold {
		return false
	}
	return codeScore(lines) >= threshold(len(lines))
}

func strongMatch(lines []string) bool {
	matches := 0
	for _, l := range lines {
		t := strings.TrimSpace(l)
		for _, re := range strongPatterns {
			if re.MatchString(t) {
				matches++
				break
			}
		}
	}
	if len(lines) <= strongShortLines {
		return matches >= 1
	}
	return float64(matches)/float64(len(lines)) >= strongMatchRatio
}

func proseScore(lines []string) int {
	score := 0
	for _, l := range lines {
		t := strings.TrimSpace(l)
		for _, re := range prosePatterns {
			score += len(re.FindAllStringIndex(t, -1))
		}
	}
	return score
}

func codeScore(lines []string) float64 {
	var score, keywords float64
	var indented float64
	words, hits := 0, 0
	structured := false

	for _, l := range lines {
		t := strings.TrimSpace(l)
		if indentRe.MatchString(l) {
			indented += 0.5
			structured = true
		}

		structural := 0
		for i := 0; i < len(t); i++ {
			if strings.IndexByte(structuralCh, t[i]) >= 0 {
				structural++
			}
		}
		density := float64(structural) / float64(len(t))
		switch {
		case density >= 0.15:
			score += 1.5
		case density >= 0.1:
			score += 1
		case density >= 0.05:
			score += 0.5
		}
		if density >= structuredLineDensity {
			structured = true
		}

		if trailingRe.MatchString(t) {
			score++
			structured = true
		}

		lineWords := wordRe.FindAllString(t, -1)
		lineHits := 0
		for _, w := range lineWords {
			if codeKeywords[w] {
				lineHits++
			}
		}
		words += len(lineWords)
		hits += lineHits
		if lineHits > 0 {
			if sentenceRe.MatchString(t) && len(lineWords) >= 4 {
				score--
			} else {
				keywords += 0.5 * float64(lineHits)
			}
		}
	}

	score += min(indented, 3)
	if !structured {
		// Plain words like "done" or "try again later" are not code.
		return score
	}
	score += keywords
	if words > 0 && float64(hits)/float64(words) >= keywordDensityRatio {
		score += 2
	}
	return score
}

func threshold(lines int) float64 {
	switch {
	case lines <= 1:
		return singleLineThreshold
	case lines <= shortTextLines:
		return shortTextThreshold
	default:
		return defaultThreshold
	}
}
