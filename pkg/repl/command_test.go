package repl

import (
	"errors"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Command
		err  error
	}{
		{"hello there", Say{Text: "hello there"}, nil},
		{"  spaced out  ", Say{Text: "spaced out"}, nil},
		{"/exit", Exit{}, nil},
		{"/quit", Exit{}, nil},
		{"/reset", Reset{}, nil},
		{"/help", Help{}, nil},
		{"/agent vision", SetAgent{Name: "vision"}, nil},
		{"/agent", nil, ErrUsage},
		{"/instruction answer in haiku", SetInstruction{Text: "answer in haiku"}, nil},
		{"/instruction", nil, ErrUsage},
		{`/load "h.json"`, Load{Path: "h.json"}, nil},
		{"/load h.json", Load{Path: "h.json"}, nil},
		{"/load", nil, ErrUsage},
		{"/image cat.jpg what breed is this?", AskImage{Paths: []string{"cat.jpg"}, Question: "what breed is this?"}, nil},
		{"/image cat.jpg", nil, ErrUsage},
		{"/image", nil, ErrUsage},
		{"/teleport home", nil, ErrUnknownCommand},
		{"", nil, ErrEmpty},
		{"   ", nil, ErrEmpty},
	}

	for _, tc := range cases {
		got, err := Parse(tc.in)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Fatalf("Parse(%q): expected %v, got %v", tc.in, tc.err, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", tc.in, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Parse(%q) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}
