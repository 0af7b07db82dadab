package docs

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxNameLength     = 100
	minSubjectLength  = 10
	defaultName       = "NoName"
	defaultSubject    = "NoSubject"
	documentURLFormat = "https://docs.google.com/document/d/%s/edit"
)

var (
	unsafeFileChars = regexp.MustCompile(`[\\/:*?"<>|]`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
	underscoreRun   = regexp.MustCompile(`_{2,}`)
)

var documentIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/document/d/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`docs\.google\.com/.*[?&]id=([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`^([a-zA-Z0-9_-]+)$`),
}

// SanitizeFileName replaces characters that are unsafe in file names and
// whitespace with underscores
func SanitizeFileName(text string) string {
	text = unsafeFileChars.ReplaceAllString(text, "_")
	text = whitespaceRun.ReplaceAllString(text, "_")
	text = underscoreRun.ReplaceAllString(text, "_")
	return strings.TrimSpace(text)
}

// DocumentName builds "NNN_name_subject". Names longer than 100 characters
// are shortened by truncating the subject, never below 10 characters.
func DocumentName(index int, name, subject string) string {
	if name == "" {
		name = defaultName
	}
	if subject == "" {
		subject = defaultSubject
	}
	prefix := fmt.Sprintf("%03d", index)
	safeName := []rune(SanitizeFileName(name))
	safeSubject := []rune(SanitizeFileName(subject))

	docName := prefix + "_" + string(safeName) + "_" + string(safeSubject)
	if len([]rune(docName)) <= maxNameLength {
		return docName
	}

	available := maxNameLength - (len(prefix) + len(safeName) + 2)
	keep := max(minSubjectLength, available)
	if keep < len(safeSubject) {
		safeSubject = safeSubject[:keep]
	}
	return prefix + "_" + string(safeName) + "_" + string(safeSubject)
}

// DocumentURL is the edit link of a document
func DocumentURL(id string) string {
	return fmt.Sprintf(documentURLFormat, id)
}

// DocumentID pulls the document id out of an edit link, an ?id= link or a
// bare id
func DocumentID(docURL string) (string, bool) {
	docURL = strings.TrimSpace(docURL)
	for _, re := range documentIDPatterns {
		if m := re.FindStringSubmatch(docURL); m != nil {
			return m[1], true
		}
	}
	return "", false
}
