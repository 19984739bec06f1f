package github

import (
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

var (
	reInvisible   = regexp.MustCompile("[\u200B\u200C\u200D\uFEFF\u00AD]")
	reControl     = regexp.MustCompile("[\u0000-\u0008\u000B\u000C\u000E-\u001F\u007F-\u009F]")
	reBidi        = regexp.MustCompile("[\u202A-\u202E\u2066-\u2069]")
	reHTMLComment = regexp.MustCompile(`<!--[\s\S]*?-->`)

	reGitHubTokens = []*regexp.Regexp{
		regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36}\b`),
		regexp.MustCompile(`\bgithub_pat_[A-Za-z0-9_]{11,221}\b`),
	}
	// Telegram bot tokens look like 123456789:AA...
	reTelegramToken = regexp.MustCompile(`\d{6,12}:[A-Za-z0-9_-]{30,}`)
)

// SanitizeComment prepares text for a public issue comment. Hidden markup and
// invisible characters are dropped, token-shaped strings and every non-empty
// value in secrets are replaced with [REDACTED].
func SanitizeComment(s string, secrets []string) string {
	if s == "" {
		return s
	}
	for _, secret := range secrets {
		if secret != "" {
			s = strings.ReplaceAll(s, secret, redacted)
		}
	}
	s = reHTMLComment.ReplaceAllString(s, "")
	s = reInvisible.ReplaceAllString(s, "")
	s = reControl.ReplaceAllString(s, "")
	s = reBidi.ReplaceAllString(s, "")
	for _, re := range reGitHubTokens {
		s = re.ReplaceAllString(s, redacted)
	}
	s = reTelegramToken.ReplaceAllString(s, redacted)
	return strings.TrimSpace(s)
}
