package vault

import (
	"errors"
	"testing"
)

func TestParseRef(t *testing.T) {
	path, key, err := ParseRef("vault:secret/safari/db#url")
	if err != nil {
		t.Fatalf("ParseRef error: %v", err)
	}
	if path != "secret/safari/db" || key != "url" {
		t.Fatalf("got (%q, %q)", path, key)
	}

	for _, bad := range []string{
		"secret/safari/db#url", // no prefix
		"vault:secret/safari/db",
		"vault:secret#url", // no mount separator
		"vault:#url",
		"vault:secret/db#",
	} {
		if _, _, err := ParseRef(bad); !errors.Is(err, ErrBadRef) {
			t.Errorf("ParseRef(%q) err = %v, want ErrBadRef", bad, err)
		}
	}
}

func TestSplitMount(t *testing.T) {
	mount, rel := splitMount("secret/safari/db")
	if mount != "secret" || rel != "safari/db" {
		t.Fatalf("got (%q, %q)", mount, rel)
	}
}
