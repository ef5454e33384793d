package teamsparse

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want ParsedTeams
	}{
		{
			name: "empty",
			in:   "",
			want: ParsedTeams{},
		},
		{
			name: "whitespace_only",
			in:   "   ",
			want: ParsedTeams{},
		},
		{
			name: "pure_numeric_with_spaces",
			in:   "385 562 023 120 47",
			want: ParsedTeams{MeetingID: "38556202312047"},
		},
		{
			name: "pure_numeric_no_spaces",
			in:   "1234567890",
			want: ParsedTeams{MeetingID: "1234567890"},
		},
		{
			name: "old_meetup_join_url",
			in:   "https://teams.microsoft.com/l/meetup-join/19%3ameeting_abc%40thread.v2/1609459200000",
			want: ParsedTeams{ThreadID: "19:meeting_abc@thread.v2", InviteURL: "https://teams.microsoft.com/l/meetup-join/19%3ameeting_abc%40thread.v2/1609459200000"},
		},
		{
			name: "new_meet_url",
			in:   "https://teams.microsoft.com/meet/123456789?p=abc123",
			want: ParsedTeams{MeetingID: "123456789", InviteURL: "https://teams.microsoft.com/meet/123456789?p=abc123"},
		},
		{
			name: "new_meet_url_no_query",
			in:   "https://teams.microsoft.com/meet/987654321",
			want: ParsedTeams{MeetingID: "987654321", InviteURL: "https://teams.microsoft.com/meet/987654321"},
		},
		{
			name: "other_url",
			in:   "https://example.com/some/other/path",
			want: ParsedTeams{InviteURL: "https://example.com/some/other/path"},
		},
		{
			name: "non_url_garbage",
			in:   "not-a-url-or-number",
			want: ParsedTeams{InviteURL: "not-a-url-or-number"},
		},
		{
			name: "single_digit_is_numeric",
			in:   "5",
			want: ParsedTeams{MeetingID: "5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.in)
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestEmpty(t *testing.T) {
	if !(ParsedTeams{}).Empty() {
		t.Errorf("zero-value ParsedTeams should be Empty")
	}
	if (ParsedTeams{MeetingID: "1"}).Empty() {
		t.Errorf("ParsedTeams with MeetingID set should not be Empty")
	}
}
