package scraper

import (
	"regexp"
	"strings"
)

// BotDetector recognises bot walls and challenge pages served instead of content.
type BotDetector struct {
	botPatterns     []*regexp.Regexp
	captchaPatterns []*regexp.Regexp
	blockPatterns   []*regexp.Regexp
}

// NewBotDetector creates a new bot detector
func NewBotDetector() *BotDetector {
	return &BotDetector{
		botPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)access denied`),
			regexp.MustCompile(`(?i)acesso negado`),
			regexp.MustCompile(`(?i)bot detected`),
			regexp.MustCompile(`(?i)please verify you are human`),
			regexp.MustCompile(`(?i)security check`),
			regexp.MustCompile(`(?i)checking your browser`),
			regexp.MustCompile(`(?i)verificando (se você é|seu navegador)`),
			regexp.MustCompile(`(?i)ddos protection`),
			regexp.MustCompile(`(?i)cf-chl`),
			regexp.MustCompile(`(?i)distil networks`),
			regexp.MustCompile(`(?i)perimeterx`),
			regexp.MustCompile(`(?i)too many requests`),
			regexp.MustCompile(`(?i)sorry, we just need to make sure you're not a robot`),
		},
		captchaPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)captcha`),
			regexp.MustCompile(`(?i)hcaptcha`),
			regexp.MustCompile(`(?i)turnstile`),
			regexp.MustCompile(`(?i)verify you are human`),
			regexp.MustCompile(`(?i)digite os caracteres`),
			regexp.MustCompile(`(?i)type the characters you see`),
		},
		blockPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)403 forbidden`),
			regexp.MustCompile(`(?i)429 too many requests`),
			regexp.MustCompile(`(?i)request blocked`),
		},
	}
}

// DetectBotWall checks if the page content indicates a bot wall.
// The score is capped at 1.0 and a page counts as a wall above 0.3.
func (bd *BotDetector) DetectBotWall(pageContent, pageTitle string) (bool, string, float64) {
	content := strings.ToLower(pageContent + " " + pageTitle)

	score := 0.0
	var reasons []string

	for _, pattern := range bd.botPatterns {
		if pattern.MatchString(content) {
			score += 0.3
			reasons = append(reasons, pattern.String())
		}
	}
	for _, pattern := range bd.captchaPatterns {
		if pattern.MatchString(content) {
			score += 0.5
			reasons = append(reasons, "CAPTCHA detected: "+pattern.String())
		}
	}
	for _, pattern := range bd.blockPatterns {
		if pattern.MatchString(content) {
			score += 0.4
			reasons = append(reasons, "HTTP error: "+pattern.String())
		}
	}

	// Challenge pages are small; a marker on a short page is a strong signal.
	if len(content) < 2000 && score > 0 {
		score += 0.2
		reasons = append(reasons, "short page with bot indicators")
	}

	if score > 1.0 {
		score = 1.0
	}
	return score > 0.3, strings.Join(reasons, "; "), score
}
