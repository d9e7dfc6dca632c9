package scope

// Lifetime labels a scope relative to the cache that classifies it.
type Lifetime uint8

const (
	// Immortal scopes outlive the cache.
	Immortal Lifetime = iota + 1
	// Ephemeral scopes may become unreachable while the cache lives on.
	Ephemeral
)

func (l Lifetime) String() string {
	switch l {
	case Immortal:
		return "immortal"
	case Ephemeral:
		return "ephemeral"
	default:
		return "unknown"
	}
}

// Classifier labels scopes Immortal or Ephemeral. The immortal set is fixed at
// construction: the three anchors plus the home scope and all of its ancestors.
type Classifier struct {
	home     *Scope
	immortal map[*Scope]struct{}
}

// NewClassifier builds a classifier for a cache defined in home. A nil home
// means System.
func NewClassifier(home *Scope) *Classifier {
	if home == nil {
		home = system
	}
	immortal := map[*Scope]struct{}{
		bootstrap: {},
		platform:  {},
		system:    {},
	}
	for s := home; s != nil; s = s.parent {
		if _, ok := immortal[s]; ok {
			break
		}
		immortal[s] = struct{}{}
	}
	return &Classifier{home: home, immortal: immortal}
}

// Home returns the scope the classifier was built for.
func (c *Classifier) Home() *Scope { return c.home }

// Classify returns Immortal for members of the immortal set, Ephemeral otherwise.
// A nil scope stands for the bootstrap scope.
func (c *Classifier) Classify(s *Scope) Lifetime {
	if s == nil {
		return Immortal
	}
	if _, ok := c.immortal[s]; ok {
		return Immortal
	}
	return Ephemeral
}
