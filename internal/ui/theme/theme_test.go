package theme

import "testing"

func TestByName(t *testing.T) {
	for _, name := range []string{"nord", "gruvbox"} {
		if _, ok := ByName(name); !ok {
			t.Errorf("Expected theme %q", name)
		}
	}
	if _, ok := ByName("dracula"); ok {
		t.Error("Unexpected theme dracula")
	}
}

func TestNextCycles(t *testing.T) {
	defer SetTheme(Nord)

	SetTheme(Nord)
	if got := Next(); got.Name != "gruvbox" {
		t.Errorf("Next after nord = %s", got.Name)
	}
	SetTheme(Gruvbox)
	if got := Next(); got.Name != "nord" {
		t.Errorf("Next after gruvbox = %s", got.Name)
	}
}
