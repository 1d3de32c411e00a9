package upload

import (
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// maxFilenameBytes is the longest sanitized base name kept, in bytes.
	maxFilenameBytes = 255
	// maxNameBytes bounds the whole "<unixMillis>_<safeName>" element so it
	// fits in one path component on common filesystems.
	maxNameBytes = 255
	// maxExtBytes is the longest extension kept intact when shortening.
	maxExtBytes = 16
)

var (
	// Filesystem-unsafe characters, control characters and reserved names.
	illegalRe         = regexp.MustCompile(`[/?<>\\:*|"]`)
	controlRe         = regexp.MustCompile(`[\x00-\x1f\x{80}-\x{9f}]`)
	reservedRe        = regexp.MustCompile(`^\.+$`)
	windowsReservedRe = regexp.MustCompile(`(?i)^(con|prn|aux|nul|com[0-9]|lpt[0-9])(\..*)?$`)
	windowsTrailingRe = regexp.MustCompile(`[. ]+$`)

	// Characters with meaning in URLs or object keys.
	keyUnsafeRe = regexp.MustCompile("[&?#%'\":;+\\[\\]{}<>\\\\^$!`~|=]")

	whitespaceRe = regexp.MustCompile(`[\s\v\p{Z}\x{FEFF}]+`)
)

// Normalizer turns untrusted filenames into storage-safe object names.
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer creates a Normalizer reading the time from now.
// If now is nil, time.Now is used.
func NewNormalizer(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now}
}

// Normalize returns "<unixMillis>_<safeName>" for raw. It never fails; a
// name that sanitizes to nothing yields "<unixMillis>_". The result is at
// most 255 bytes; long names lose the end of their stem, not the extension.
func (n *Normalizer) Normalize(raw string) string {
	prefix := strconv.FormatInt(n.now().UnixMilli(), 10) + "_"
	return prefix + shortenKeepExt(SanitizeFilename(raw), maxNameBytes-len(prefix))
}

// SanitizeFilename applies, in order: filesystem sanitization, replacement
// of URL/key-significant characters, whitespace collapsing, and removal of
// everything outside printable ASCII. Substitutions use "_".
func SanitizeFilename(raw string) string {
	name := sanitizeForFilesystem(raw)
	name = keyUnsafeRe.ReplaceAllString(name, "_")
	name = whitespaceRe.ReplaceAllString(name, "_")
	return stripNonPrintable(name)
}

// ObjectKey places name in the caller's namespace.
func ObjectKey(userID, name string) string {
	return "user_" + userID + "/" + name
}

// sanitizeForFilesystem replaces characters that are illegal in file names
// on common operating systems and truncates the result.
func sanitizeForFilesystem(s string) string {
	s = illegalRe.ReplaceAllString(s, "_")
	s = controlRe.ReplaceAllString(s, "_")
	s = reservedRe.ReplaceAllString(s, "_")
	s = windowsReservedRe.ReplaceAllString(s, "_")
	s = windowsTrailingRe.ReplaceAllString(s, "_")
	return truncateUTF8(s, maxFilenameBytes)
}

// shortenKeepExt cuts name to at most n bytes, keeping a short extension.
func shortenKeepExt(name string, n int) string {
	if len(name) <= n {
		return name
	}
	ext := path.Ext(name)
	if ext == name || len(ext) > maxExtBytes || len(ext) >= n {
		return truncateUTF8(name, n)
	}
	return truncateUTF8(strings.TrimSuffix(name, ext), n-len(ext)) + ext
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func stripNonPrintable(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return -1
		}
		return r
	}, s)
}
