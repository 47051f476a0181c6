package jsondoc

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sample = `{
    "configurations": [
        {
            "name": "Linux",
            "includePath": [
                "/usr/src/linux-headers-${env:kernelRelease}/include"
            ],
            "cStandard": "gnu11",
            "compilerPath": "\/usr\/bin\/gcc-${env:compilerMajorVersion}"
        }
    ],
    "env": {
        "kernelRelease": "6.1.0-13-amd64",
        "compilerMajorVersion": "12",
        "extra": "a<b&c é"
    },
    "version": 4.0
}
`

func mustParse(t *testing.T, in string, opts ...Option) *Document {
	t.Helper()
	doc, err := Parse([]byte(in), opts...)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

func mustEnv(t *testing.T, doc *Document) *Object {
	t.Helper()
	env, err := doc.Env()
	if err != nil {
		t.Fatalf("Env: %v", err)
	}
	return env
}

func TestRoundTripIsByteExact(t *testing.T) {
	doc := mustParse(t, sample)
	if diff := cmp.Diff(sample, string(doc.Bytes())); diff != "" {
		t.Errorf("round trip changed document (-want +got):\n%s", diff)
	}
}

func TestSetExistingKeepsEverythingElse(t *testing.T) {
	doc := mustParse(t, sample)
	env := mustEnv(t, doc)
	env.Set("kernelRelease", "6.8.0-45-generic")
	env.Set("compilerMajorVersion", "13")

	want := strings.NewReplacer(
		`"6.1.0-13-amd64"`, `"6.8.0-45-generic"`,
		`"compilerMajorVersion": "12"`, `"compilerMajorVersion": "13"`,
	).Replace(sample)
	if diff := cmp.Diff(want, string(doc.Bytes())); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestAppendFollowsNeighbourLayout(t *testing.T) {
	doc := mustParse(t, "{\n  \"env\": {\n    \"arch\": \"x86\"\n  }\n}\n")
	env := mustEnv(t, doc)
	env.Set("kernelRelease", "6.1.0")
	env.Set("compilerMajorVersion", "12")

	want := `{
  "env": {
    "arch": "x86",
    "kernelRelease": "6.1.0",
    "compilerMajorVersion": "12"
  }
}
`
	if diff := cmp.Diff(want, string(doc.Bytes())); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"arch", "kernelRelease", "compilerMajorVersion"}, env.Keys()); diff != "" {
		t.Errorf("keys (-want +got):\n%s", diff)
	}
}

func TestAppendIntoEmptyObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		opts []Option
		want string
	}{
		{
			name: "multiline",
			in:   "{\n    \"env\": {},\n    \"version\": 4\n}\n",
			want: "{\n    \"env\": {\n        \"kernelRelease\": \"6.1.0\",\n        \"compilerMajorVersion\": \"12\"\n    },\n    \"version\": 4\n}\n",
		},
		{
			name: "unindented owner uses configured unit",
			in:   "{\n\"env\": {}\n}\n",
			opts: []Option{IndentUnit("\t")},
			want: "{\n\"env\": {\n\t\"kernelRelease\": \"6.1.0\",\n\t\"compilerMajorVersion\": \"12\"\n}\n}\n",
		},
		{
			name: "compact",
			in:   `{"env":{}}`,
			want: `{"env":{"kernelRelease":"6.1.0","compilerMajorVersion":"12"}}`,
		},
		{
			name: "inline with spaces",
			in:   `{"env": { }}`,
			want: `{"env": {"kernelRelease": "6.1.0", "compilerMajorVersion": "12"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, tt.in, tt.opts...)
			env := mustEnv(t, doc)
			env.Set("kernelRelease", "6.1.0")
			env.Set("compilerMajorVersion", "12")
			if diff := cmp.Diff(tt.want, string(doc.Bytes())); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestDuplicateKeys(t *testing.T) {
	doc := mustParse(t, `{"env":{"a":"1","b":"2","a":"3"}}`)
	env := mustEnv(t, doc)
	if v, _ := env.Get("a"); v != "3" {
		t.Errorf("Get(a) = %q, want last occurrence 3", v)
	}
	env.Set("a", "9")
	if got, want := string(doc.Bytes()), `{"env":{"a":"9","b":"2","a":"9"}}`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestLastEnvWins(t *testing.T) {
	doc := mustParse(t, `{"env":{"x":"first"},"env":{"x":"second"}}`)
	if v, _ := mustEnv(t, doc).Get("x"); v != "second" {
		t.Errorf("Get(x) = %q, want second", v)
	}
}

func TestGetNonString(t *testing.T) {
	env := mustEnv(t, mustParse(t, `{"env":{"n":1}}`))
	if _, ok := env.Get("n"); ok {
		t.Error("Get reported a number as a string")
	}
	if _, ok := env.Get("missing"); ok {
		t.Error("Get reported a missing key")
	}
}

func TestEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"no env", `{"configurations":[]}`, ErrNoEnv},
		{"env is string", `{"env":"x"}`, ErrEnvNotObject},
		{"env is array", `{"env":[]}`, ErrEnvNotObject},
		{"env is null", `{"env":null}`, ErrEnvNotObject},
		{"root is array", `[{"env":{}}]`, ErrNotObject},
		{"nested env only", `{"a":{"env":{}}}`, ErrNoEnv},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, tt.in)
			if _, err := doc.Env(); !errors.Is(err, tt.want) {
				t.Errorf("Env() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	for _, in := range []string{
		``,
		`   `,
		`{`,
		`{"a":1`,
		`{"a":1} {"b":2}`,
		`{"a":1} x`,
		`{a:1}`,
	} {
		for _, lenient := range []bool{false, true} {
			if _, err := Parse([]byte(in), Lenient(lenient)); err == nil {
				t.Errorf("Parse(%q, lenient=%v) succeeded, want error", in, lenient)
			}
		}
	}
}

func TestStrictRejectsJSONC(t *testing.T) {
	for _, in := range []string{
		`{"a":1,}`,
		"// comment\n{\"a\":1}",
		`{"a":/* c */1}`,
	} {
		if _, err := Parse([]byte(in)); !errors.Is(err, ErrNonStandard) {
			t.Errorf("Parse(%q) error = %v, want ErrNonStandard", in, err)
		}
	}
}

func TestParseAllowsTrailingWhitespace(t *testing.T) {
	if _, err := Parse([]byte("{\"env\":{}}\n\n  ")); err != nil {
		t.Errorf("Parse: %v", err)
	}
}

func TestLenientKeepsComments(t *testing.T) {
	in := `{
    // kernel module workspace
    "env": {
        "kernelRelease": "old", // refreshed by vscenv
        "arch": "x86",
    },
}
`
	doc := mustParse(t, in, Lenient(true))
	mustEnv(t, doc).Set("kernelRelease", "6.8.0")

	want := strings.Replace(in, `"old"`, `"6.8.0"`, 1)
	if diff := cmp.Diff(want, string(doc.Bytes())); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestAppendAfterLineComment(t *testing.T) {
	in := "{\n    \"env\": {\n        \"arch\": \"x86\" // target\n    }\n}\n"
	doc := mustParse(t, in, Lenient(true))
	mustEnv(t, doc).Set("kernelRelease", "6.8.0")

	out := doc.Bytes()
	if !strings.Contains(string(out), "// target\n") {
		t.Errorf("comment lost or joined with the next token:\n%s", out)
	}
	again, err := Parse(out, Lenient(true))
	if err != nil {
		t.Fatalf("re-parse: %v\n%s", err, out)
	}
	if v, _ := mustEnv(t, again).Get("kernelRelease"); v != "6.8.0" {
		t.Errorf("kernelRelease = %q after re-parse", v)
	}
}

func TestSetDoesNotEscapeHTML(t *testing.T) {
	doc := mustParse(t, `{"env":{}}`)
	mustEnv(t, doc).Set("p", "a<b>&c é")
	if got, want := string(doc.Bytes()), `{"env":{"p":"a<b>&c é"}}`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}
