package hostlib

import "testing"

func TestCatalogReferencesResolve(t *testing.T) {
	known := map[string]bool{}
	for _, td := range Catalog() {
		if known[td.Name] {
			t.Fatalf("duplicate host type %s", td.Name)
		}
		known[td.Name] = true
	}
	check := func(owner, name string) {
		t.Helper()
		if !known[name] {
			t.Fatalf("%s references unknown type %q", owner, name)
		}
	}
	for _, td := range Catalog() {
		if td.Base != "" {
			check(td.Name, td.Base)
		}
		for _, f := range td.Fields {
			check(td.Name, f.Type)
		}
		for _, c := range td.Ctors {
			for _, prm := range c.Params {
				check(td.Name, prm)
			}
		}
		for _, m := range td.Methods {
			check(td.Name, m.Return)
			for _, prm := range m.Params {
				check(td.Name, prm)
			}
		}
	}
	for alias, target := range Aliases() {
		check(alias, target)
	}
}

func TestKey(t *testing.T) {
	got := Key("System.Console", "WriteLine", []string{"System.Int32"})
	if got != "System.Console::WriteLine(System.Int32)" {
		t.Fatalf("Key = %q", got)
	}
}
