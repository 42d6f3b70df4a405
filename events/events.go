package events

const (
	TypeServerInfo     = "server.info"
	TypeSessionCreated = "session.created"
	TypeSessionStarted = "session.started"
	TypeSessionClosed  = "session.closed"
	TypeStreamAdded    = "stream.added"
)

type Event struct {
	Type string
	Data any
}

// NewFilter builds a predicate from include/exclude type lists. An empty
// include list passes everything not excluded.
func NewFilter(include, exclude []string) func(Event) bool {
	if len(include) == 0 && len(exclude) == 0 {
		return nil
	}
	includeSet := toSet(include)
	excludeSet := toSet(exclude)
	return func(e Event) bool {
		if _, blocked := excludeSet[e.Type]; blocked {
			return false
		}
		if len(includeSet) == 0 {
			return true
		}
		_, allowed := includeSet[e.Type]
		return allowed
	}
}

func toSet(types []string) map[string]struct{} {
	if len(types) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return set
}
