package help

import (
	"strings"
	"testing"
)

func TestHelpRendersKeys(t *testing.T) {
	m := New(80, 60)
	content := m.Content()
	for _, want := range []string{"ctrl+n", "enter", "shift+tab"} {
		if !strings.Contains(content, want) {
			t.Errorf("help missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "\x1b[") {
		t.Fatal("help content still carries ANSI escapes")
	}
}

func TestSetSizeClampsToMinimum(t *testing.T) {
	m := New(10, 2)
	if m.width != 32 || m.height != 8 {
		t.Fatalf("size = %dx%d, want 32x8", m.width, m.height)
	}
}
