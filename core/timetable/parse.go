package timetable

import (
	"regexp"
	"strings"
)

// ParseConfidence tags how a class detail was extracted, so callers never
// conflate a confident parse with a fallback.
type ParseConfidence int

const (
	ParsedUnknown ParseConfidence = iota
	ParsedHeuristic
	ParsedStrict
)

func (c ParseConfidence) String() string {
	switch c {
	case ParsedStrict:
		return "strict"
	case ParsedHeuristic:
		return "heuristic"
	default:
		return "unknown"
	}
}

const UnknownField = "Unknown"

// ClassDetail is the best-effort decomposition of a free-text class detail.
// Raw always preserves the original text verbatim.
type ClassDetail struct {
	Raw        string          `json:"raw"`
	CourseCode string          `json:"course_code"`
	Component  string          `json:"component"`
	Section    string          `json:"section"`
	Room       string          `json:"room"`
	Confidence ParseConfidence `json:"-"`
}

// strict shape: CODE-COMPONENT - SECTION -RoomNo-ROOM...
var strictDetailRegex = regexp.MustCompile(`^([A-Za-z0-9]+)-([A-Za-z]+)\s*-\s*(\S+)\s*-RoomNo-(\S+)`)

// ParseClassDetail extracts course code, component letter, section and room
// from a class detail string. Two-tier: the strict pattern first, then naive
// hyphen-splitting heuristics; when both fail every field is UnknownField.
// Never fails; a mismatch degrades, it does not error.
func ParseClassDetail(raw string) ClassDetail {
	detail := ClassDetail{
		Raw:        raw,
		CourseCode: UnknownField,
		Component:  UnknownField,
		Section:    UnknownField,
		Room:       UnknownField,
	}

	text := strings.TrimSpace(raw)
	if m := strictDetailRegex.FindStringSubmatch(text); m != nil {
		detail.CourseCode = m[1]
		detail.Component = m[2]
		detail.Section = m[3]
		detail.Room = m[4]
		detail.Confidence = ParsedStrict
		return detail
	}

	// fallback: hyphen-split heuristics
	if !strings.Contains(text, "-") {
		return detail
	}
	tokens := make([]string, 0, 8)
	for _, tok := range strings.Split(text, "-") {
		tokens = append(tokens, strings.TrimSpace(tok))
	}
	if len(tokens) == 0 || tokens[0] == "" {
		return detail
	}

	detail.CourseCode = tokens[0]
	detail.Section = "S-01" // default when nothing matches
	var sectionFound, roomFound bool
	for i := 1; i < len(tokens); i++ {
		switch {
		case !sectionFound && tokens[i] == "S" && i+1 < len(tokens):
			detail.Section = tokens[i+1]
			sectionFound = true
		case !sectionFound && strings.HasPrefix(tokens[i], "S") && tokens[i] != "S":
			detail.Section = tokens[i]
			sectionFound = true
		case !roomFound && tokens[i] == "RoomNo" && i+1 < len(tokens):
			detail.Room = tokens[i+1]
			roomFound = true
		}
	}
	detail.Confidence = ParsedHeuristic
	return detail
}
