package textnorm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeNil(t *testing.T) {
	assert.Equal(t, "", Normalize(nil))
	empty := ""
	assert.Equal(t, "", Normalize(&empty))
}

func TestNormalizeString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text",
			in:   "Replace the cartridge first",
			want: "Replace the cartridge first",
		},
		{
			name: "markdown link keeps anchor text",
			in:   "See [the manual](https://example.com/manual.pdf) for torque specs",
			want: "See the manual for torque specs",
		},
		{
			name: "bare url removed",
			in:   "Video here https://youtu.be/abc123 worked for me",
			want: "Video here worked for me",
		},
		{
			name: "whitespace collapsed",
			in:   "  line one\n\n\tline   two  ",
			want: "line one line two",
		},
		{
			name: "non ascii stripped",
			in:   "Café faucet \U0001F6B0 leak",
			want: "Caf faucet leak",
		},
		{
			name: "emphasis and lists",
			in:   "**Tools:**\n\n* wrench\n* plumber's tape",
			want: "Tools: wrench plumber's tape",
		},
		{
			name: "raw html tags dropped",
			in:   "Use <b>silicone</b> grease<script>alert(1)</script>",
			want: "Use silicone grease",
		},
		{
			name: "entities decoded",
			in:   "nuts &amp; bolts",
			want: "nuts & bolts",
		},
		{
			name: "only markup",
			in:   "https://example.com",
			want: "",
		},
		{
			name: "tags inside inline code keep their words",
			in:   "Call `List<String>` here",
			want: "Call List String here",
		},
		{
			name: "html inside inline code",
			in:   "Use the `<br>` tag to break lines",
			want: "Use the br tag to break lines",
		},
		{
			name: "escaped angle brackets",
			in:   "Type \\<div\\> literally",
			want: "Type div literally",
		},
		{
			name: "escaped emphasis",
			in:   "\\*really\\* tight and _snug_",
			want: "really tight and snug",
		},
		{
			name: "escaped link syntax",
			in:   "\\[see\\](the manual)",
			want: "(see)(the manual)",
		},
		{
			name: "double encoded entity decoded once",
			in:   "nuts &amp;amp; bolts",
			want: "nuts & amp; bolts",
		},
		{
			name: "escaped list marker",
			in:   "1\\. Shut off the water",
			want: "Shut off the water",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeString(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"hello",
		"# Heading\n\nbody text",
		"1. first\n2. second",
		"\\*escaped\\* stars and _underscores_",
		"&amp;amp; nested entity",
		"> quoted reply\n\nmore",
		"`code` and    spacing",
		"a < b > c",
		"<div><p>nested <a href=\"http://x.io\">link</a></p></div>",
		"Été — dash https://x.io/é tail",
		"- [ ] task\n- [x] done",
		"***",
		"| a | b |\n|---|---|\n| 1 | 2 |",
		"&" + strings.Repeat("amp;", 12) + "lt;b&gt;",
		"&amp;#60;script&amp;#62;",
		strings.Repeat("\\", 1024) + "*",
		strings.Repeat("\\", 7) + "`code`",
		"Call `List<String>` here",
		"\\# not a heading",
		"\\- \\- \\-",
		"\\+ \\1. \\## deep",
		"\\~~~ fenced",
		"\\[ref\\]: http://x.io/ref",
		"\\!\\[alt\\](pic.png)",
		"\\<https://x.io\\>",
	}

	for _, in := range inputs {
		once := NormalizeString(in)
		assert.Equal(t, once, NormalizeString(once), "input %q", in)
	}
}
