package markup

import "testing"

func TestStripper_StripMarkup(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"plain", "hello", "hello"},
		{"line breaks", "first<br>second<br />third", "first\nsecond\nthird"},
		{"quote link", `<a href="#p1" class="quotelink">&gt;&gt;1</a> yes`, ">>1 yes"},
		{"entities", "a &amp; b &lt;c&gt;", "a & b <c>"},
		{"nested", `<font color="#789922">&gt;quote</font><br>reply`, ">quote\nreply"},
		{"paragraphs", "<p>one</p><p>two</p>", "one\ntwo"},
		{"surrounding space", "  <b> bold </b>  ", "bold"},
	}
	stripper := Stripper{}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := stripper.StripMarkup(c.raw); got != c.want {
				t.Errorf("期待値: %q, 実際値: %q", c.want, got)
			}
		})
	}
}
