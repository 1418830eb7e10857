// Package testkit holds structural checks shared by backend and driver tests.
package testkit

import (
	"fmt"
	"strings"
)

// CheckListingInvariants runs a minimal set of structural checks on an
// ILAsm listing:
// 1) braces balance and never close more than they open
// 2) every managed method body declares .maxstack and ends with ret
// 3) runtime-implemented methods have empty bodies
// 4) at most one method is marked .entrypoint
func CheckListingInvariants(lines []string) error {
	depth := 0
	entries := 0
	var (
		method   string
		runtime  bool
		body     []string
		inMethod bool
	)
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		switch {
		case line == "{":
			depth++
		case line == "}":
			depth--
			if depth < 0 {
				return fmt.Errorf("line %d: unbalanced closing brace", i+1)
			}
			if inMethod && depth == 1 {
				if err := checkBody(method, runtime, body); err != nil {
					return fmt.Errorf("line %d: %w", i+1, err)
				}
				inMethod, body = false, nil
			}
		case strings.HasPrefix(line, ".method "):
			if inMethod {
				return fmt.Errorf("line %d: method %q opened inside %q", i+1, line, method)
			}
			method, runtime, inMethod = line, strings.HasSuffix(line, " runtime managed"), true
		case inMethod:
			if line == ".entrypoint" {
				entries++
			}
			body = append(body, line)
		}
	}
	if depth != 0 {
		return fmt.Errorf("unbalanced braces: %d left open", depth)
	}
	if entries > 1 {
		return fmt.Errorf("%d entry points", entries)
	}
	return nil
}

func checkBody(method string, runtime bool, body []string) error {
	if runtime {
		if len(body) != 0 {
			return fmt.Errorf("%s: runtime method has a body", method)
		}
		return nil
	}
	hasMaxStack := false
	last := ""
	for _, l := range body {
		if strings.HasPrefix(l, ".maxstack ") {
			hasMaxStack = true
			continue
		}
		if strings.HasPrefix(l, ".") {
			continue
		}
		last = l
	}
	if !hasMaxStack {
		return fmt.Errorf("%s: missing .maxstack", method)
	}
	if last != "ret" {
		return fmt.Errorf("%s: body ends with %q, want ret", method, last)
	}
	return nil
}
