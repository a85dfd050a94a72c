package scenarios

import (
	"path/filepath"
	"testing"
)

func TestScenarios(t *testing.T) {
	files, err := filepath.Glob("testdata/*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no scenario files found")
	}
	for _, path := range files {
		sc, err := Load(path)
		if err != nil {
			t.Fatalf("load %s: %v", path, err)
		}
		t.Run(sc.Name, func(t *testing.T) {
			RunScenario(t, sc)
		})
	}
}

func TestLoadRejectsEmptyScenario(t *testing.T) {
	if _, err := Load("testdata/missing.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
