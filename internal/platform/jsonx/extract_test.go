package jsonx

import (
	"errors"
	"testing"
)

func TestExtractIgnoresBracesInsideStrings(t *testing.T) {
	got, err := Extract(`prefix {"a": "b{c}"} suffix`)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 1 || got["a"] != "b{c}" {
		t.Fatalf("unexpected object: %#v", got)
	}
}

func TestExtractNoBrace(t *testing.T) {
	_, err := Extract("the model declined to answer")
	if !errors.Is(err, ErrNoJSON) {
		t.Fatalf("expected ErrNoJSON, got %v", err)
	}
}

func TestExtractObject(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		err  bool
	}{
		{name: "bare", in: `{"x":1}`, want: `{"x":1}`},
		{name: "nested", in: `Sure! {"a":{"b":{"c":[1,2]}}} hope this helps`, want: `{"a":{"b":{"c":[1,2]}}}`},
		{name: "escaped quote", in: `{"q":"say \"}\" now"} trailing`, want: `{"q":"say \"}\" now"}`},
		{name: "escaped backslash before quote", in: `{"p":"C:\\"} {"other":2}`, want: `{"p":"C:\\"}`},
		{name: "first object only", in: `{"first":true} {"second":true}`, want: `{"first":true}`},
		{name: "code fence", in: "```json\n{\"title\":\"T\"}\n```", want: `{"title":"T"}`},
		{name: "stray closing brace before object", in: `} oops {"k":"v"}`, want: `{"k":"v"}`},
		{name: "unbalanced", in: `{"a": {"b": 1}`, err: true},
		{name: "invalid first object does not resume", in: `{not json} {"valid":true}`, err: true},
		{name: "empty", in: "", err: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := ExtractObject(tc.in)
			if tc.err {
				if !errors.Is(err, ErrNoJSON) {
					t.Fatalf("expected ErrNoJSON, got raw=%q err=%v", raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractObject: %v", err)
			}
			if string(raw) != tc.want {
				t.Fatalf("got %q want %q", raw, tc.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	var out struct {
		Title   string `json:"title"`
		Modules []struct {
			Title string `json:"title"`
		} `json:"modules"`
	}
	in := "Here is your course:\n{\"title\":\"Go\",\"modules\":[{\"title\":\"Intro {basics}\"}]}\nEnjoy."
	if err := Decode(in, &out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Title != "Go" || len(out.Modules) != 1 || out.Modules[0].Title != "Intro {basics}" {
		t.Fatalf("unexpected decode: %+v", out)
	}
}
