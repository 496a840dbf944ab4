package main

import (
	"flag"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"

	"github.com/samvad-hq/samvad-query-probe/pkg/query"
)

func TestParseParams(t *testing.T) {
	got, err := parseParams([]string{"a=1", " b =x=y", "empty="})
	if err != nil {
		t.Fatalf("parseParams: %v", err)
	}
	if got["a"] != "1" || got["b"] != "x=y" || got["empty"] != "" || len(got) != 3 {
		t.Fatalf("unexpected params %#v", got)
	}

	for _, bad := range []string{"novalue", "=1"} {
		if _, err := parseParams([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}

	if got, err := parseParams(nil); got != nil || err != nil {
		t.Fatalf("nil input = %#v, %v", got, err)
	}
}

// newFlagContext parses args against the real flag definitions.
func newFlagContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	flags := cliFlags()
	set := flag.NewFlagSet("adhoc", flag.ContinueOnError)
	for _, f := range flags {
		if err := f.Apply(set); err != nil {
			t.Fatalf("apply flag %v: %v", f.Names(), err)
		}
	}
	if err := set.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return cli.NewContext(&cli.App{Flags: flags}, set, nil)
}

func TestAdHocRequest(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "zero from index and false translated are sent",
			args: []string{"--search-query", " stad ", "--query-mode", "exact", "--from-index", "0", "--query-translated=false"},
			want: "/hitlist?fromIndex=0&queryMode=exact&queryTranslated=false&searchQuery=stad",
		},
		{
			name: "unset from index and translated are omitted",
			args: []string{"--search-query", "stad", "--sort-order", "desc"},
			want: "/hitlist?searchQuery=stad&sortOrder=desc",
		},
		{
			name: "extra params",
			args: []string{"--param", "lang=sv", "--param", "searchQuery=ignored", "--search-query", "by"},
			want: "/hitlist?lang=sv&searchQuery=by",
		},
		{
			name: "no params",
			want: "/hitlist",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := adHocRequest(newFlagContext(t, tc.args...), query.EndpointHitList)
			if err != nil {
				t.Fatalf("adHocRequest: %v", err)
			}
			if got := req.String(); got != tc.want {
				t.Fatalf("request = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAdHocRequestRejectsBadInput(t *testing.T) {
	cases := map[string][]string{
		"query mode": {"--query-mode", "fuzzy"},
		"sort order": {"--sort-order", "up"},
		"from index": {"--from-index", "-5"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := adHocRequest(newFlagContext(t, args...), query.EndpointBarChart)
			if !errors.Is(err, query.ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}

	_, err := adHocRequest(newFlagContext(t, "--param", "novalue"), query.EndpointBarChart)
	if err == nil {
		t.Fatalf("expected error for malformed --param")
	}
}
