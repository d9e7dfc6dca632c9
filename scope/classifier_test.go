package scope

import "testing"

func TestClassifier_Classify(t *testing.T) {
	app := New("app", nil)
	home := New("home", app)
	plugin := New("plugin", app)
	sibling := New("sibling", nil)

	c := NewClassifier(home)

	tests := []struct {
		name  string
		scope *Scope
		want  Lifetime
	}{
		{"nil stands for bootstrap", nil, Immortal},
		{"bootstrap anchor", Bootstrap(), Immortal},
		{"platform anchor", Platform(), Immortal},
		{"system anchor", System(), Immortal},
		{"home scope", home, Immortal},
		{"ancestor of home", app, Immortal},
		{"child of an ancestor", plugin, Ephemeral},
		{"unrelated scope", sibling, Ephemeral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.scope); got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifier_Deterministic(t *testing.T) {
	c := NewClassifier(nil)
	plugin := New("plugin", nil)

	first := c.Classify(plugin)
	for i := 0; i < 100; i++ {
		if got := c.Classify(plugin); got != first {
			t.Fatalf("classification changed on call %d: %s != %s", i, got, first)
		}
	}
	if c.Home() != System() {
		t.Error("expected nil home to default to the system scope")
	}
}
