package checksum

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSumFileMatchesSum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.md")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := SumFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != Sum([]byte("hello")) {
		t.Errorf("SumFile = %s, Sum = %s", got, Sum([]byte("hello")))
	}
	if got != "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824" {
		t.Errorf("unexpected digest %s", got)
	}
	if _, err := SumFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}
