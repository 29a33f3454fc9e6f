package filters

import (
	"reflect"
	"testing"
)

func TestSplitParams(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a,b", []string{"a", "b"}},
		{`"a,b",c`, []string{"a,b", "c"}},
		{`'x','y'`, []string{"x", "y"}},
		{`"it\"s"`, []string{`it"s`}},
		{`[1,2],b`, []string{"[1,2]", "b"}},
		{` a , b `, []string{"a", "b"}},
	}
	for _, tc := range cases {
		if got := SplitParams(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("SplitParams(%q): got %#v want %#v", tc.in, got, tc.want)
		}
	}
}

func TestSplitPipes(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"selector:.title|upper|trim", []string{"selector:.title", "upper", "trim"}},
		{`x|replace:"a|b","c"`, []string{"x", `replace:"a|b","c"`}},
		{"plain", []string{"plain"}},
	}
	for _, tc := range cases {
		if got := SplitPipes(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("SplitPipes(%q): got %#v want %#v", tc.in, got, tc.want)
		}
	}
}

func TestUnquote(t *testing.T) {
	cases := []struct{ in, want string }{
		{`"x"`, "x"},
		{`'x'`, "x"},
		{`x`, "x"},
		{`"a\"b"`, `a"b`},
		{`"mismatched'`, `"mismatched'`},
	}
	for _, tc := range cases {
		if got := Unquote(tc.in); got != tc.want {
			t.Errorf("Unquote(%q): got %q want %q", tc.in, got, tc.want)
		}
	}
}

func TestPairs(t *testing.T) {
	cases := []struct {
		in   string
		want [][2]string
	}{
		{`"a","b"`, [][2]string{{"a", "b"}}},
		{`"a","b","c","d"`, [][2]string{{"a", "b"}, {"c", "d"}}},
		{`("a","b"),("c","d")`, [][2]string{{"a", "b"}, {"c", "d"}}},
		{`"only"`, [][2]string{{"only", ""}}},
	}
	for _, tc := range cases {
		if got := pairs(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("pairs(%q): got %#v want %#v", tc.in, got, tc.want)
		}
	}
}
