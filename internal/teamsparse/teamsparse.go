// Package teamsparse turns whatever a client pasted into the "Teams input"
// field — an old-style meetup-join URL, a new-style /meet/ URL, a bare
// numeric conference id, or nothing at all — into a normalized ParsedTeams.
// The function is pure: it does no I/O and never touches the database.
// Deduplicating across equivalent inputs is the meeting repository's job.
package teamsparse

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	oldURLPattern  = regexp.MustCompile(`meetup-join/([^/]+)/\d+`)
	newURLPattern  = regexp.MustCompile(`/meet/([^?]+)`)
	numericPattern = regexp.MustCompile(`^\d[\d\s]*\d$|^\d$`)
)

// ParsedTeams is the normalized result of parsing a Teams input string.
// At least one of ThreadID, MeetingID, InviteURL is non-empty unless the
// original input was empty.
type ParsedTeams struct {
	ThreadID  string
	MeetingID string
	InviteURL string
}

// Empty reports whether every field of p is unset.
func (p ParsedTeams) Empty() bool {
	return p.ThreadID == "" && p.MeetingID == "" && p.InviteURL == ""
}

// Parse classifies raw into one of the five recognized input kinds, checked
// in this order:
//
//  1. An empty or whitespace-only string: everything is left zero-valued.
//  2. A pure numeric string (spaces allowed between digits): MeetingID is the
//     digits with spaces stripped.
//  3. An http(s) URL matching the old-style "…/meetup-join/<thread>/<digits>"
//     shape: ThreadID is the URL-decoded thread segment, InviteURL the raw
//     input.
//  4. An http(s) URL matching the new-style "…/meet/<meeting_id>[?...]"
//     shape: MeetingID is the path segment, InviteURL the raw input.
//  5. Anything else: InviteURL is the raw input, ids are left unset.
func Parse(raw string) ParsedTeams {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ParsedTeams{}
	}

	if numericPattern.MatchString(trimmed) {
		return ParsedTeams{MeetingID: strings.ReplaceAll(trimmed, " ", "")}
	}

	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		if m := oldURLPattern.FindStringSubmatch(trimmed); m != nil {
			thread := m[1]
			if decoded, err := url.QueryUnescape(thread); err == nil {
				thread = decoded
			}
			return ParsedTeams{ThreadID: thread, InviteURL: trimmed}
		}

		if m := newURLPattern.FindStringSubmatch(trimmed); m != nil {
			return ParsedTeams{MeetingID: m[1], InviteURL: trimmed}
		}
	}

	return ParsedTeams{InviteURL: trimmed}
}
