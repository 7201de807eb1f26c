package features

import (
	"reflect"
	"testing"
)

func TestHas(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want bool
	}{
		{"flag form", []string{"--openblas"}, true},
		{"bare form", []string{"openblas"}, true},
		{"unrelated token", []string{"build"}, false},
		{"substring is not a match", []string{"--openblas-static"}, false},
		{"case sensitive", []string{"--OpenBLAS"}, false},
		{"position independent", []string{"--dev", "x", "cuda", "--openblas"}, true},
		{"empty", nil, false},
		{"single dash is not a flag", []string{"-openblas"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Parse(tc.args).Has("openblas"); got != tc.want {
				t.Fatalf("Has(openblas) on %v = %v, want %v", tc.args, got, tc.want)
			}
		})
	}
}

func TestAction(t *testing.T) {
	cases := map[string]struct {
		args []string
		want Action
	}{
		"build":        {[]string{"--build"}, ActionBuild},
		"dev":          {[]string{"--dev", "--openblas"}, ActionDev},
		"not first":    {[]string{"--openblas", "--build"}, ActionNone},
		"bare build":   {[]string{"build"}, ActionNone},
		"no arguments": {nil, ActionNone},
	}
	for name, tc := range cases {
		if got := Parse(tc.args).Action(); got != tc.want {
			t.Fatalf("%s: Action() = %v, want %v", name, got, tc.want)
		}
	}
	if ActionDev.SubCommand() != "dev" || ActionBuild.SubCommand() != "build" || ActionNone.SubCommand() != "" {
		t.Fatal("unexpected sub-commands")
	}
}

func TestParseCopiesArgs(t *testing.T) {
	args := []string{"--cuda"}
	set := Parse(args)
	args[0] = "--openblas"
	if !set.Has("cuda") || set.Has("openblas") {
		t.Fatal("Parse must copy the argument slice")
	}
}

func TestEnabled(t *testing.T) {
	got := Parse([]string{"--build", "--openblas", "cuda", "--openblas", "--"}).Enabled()
	want := []string{"openblas", "cuda"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Enabled() = %v, want %v", got, want)
	}
}
