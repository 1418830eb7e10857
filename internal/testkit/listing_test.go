package testkit

import (
	"strings"
	"testing"
)

func TestCheckListingInvariants(t *testing.T) {
	good := []string{
		".class public auto ansi beforefieldinit Program",
		"{",
		"    .method public hidebysig static void Main() cil managed",
		"    {",
		"        .entrypoint",
		"        .maxstack 1",
		"        ret",
		"    }",
		"    .method public hidebysig newslot virtual instance int32 Invoke(int32) runtime managed",
		"    {",
		"    }",
		"}",
	}
	if err := CheckListingInvariants(good); err != nil {
		t.Fatal(err)
	}

	cases := map[string]struct {
		edit func([]string) []string
		want string
	}{
		"no ret": {
			edit: func(l []string) []string { return append(append([]string{}, l[:6]...), l[7:]...) },
			want: "want ret",
		},
		"no maxstack": {
			edit: func(l []string) []string { return append(append([]string{}, l[:5]...), l[6:]...) },
			want: "missing .maxstack",
		},
		"open brace": {
			edit: func(l []string) []string { return l[:len(l)-1] },
			want: "left open",
		},
		"runtime body": {
			edit: func(l []string) []string {
				out := append([]string{}, l[:10]...)
				out = append(out, "        ret")
				return append(out, l[10:]...)
			},
			want: "runtime method has a body",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := CheckListingInvariants(tc.edit(good))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want %q", err, tc.want)
			}
		})
	}
}
