package taint

// Configuration lists the fully-qualified call names this pass treats as
// tainted sources, dangerous sinks, and sanitizing boundaries. Names are
// exact matches against the syntactic callee text built by calleeName,
// never against an alias-resolved form: a configured name has to name the
// call the way it appears at the call site.
//
// Loading this from a config file is out of scope; callers construct it in
// memory (see scan.WithTaintConfig).
type Configuration struct {
	Sources    map[string]bool
	Sinks      map[string]bool
	Sanitizers map[string]bool
}

// NewConfiguration builds a Configuration from plain name lists.
func NewConfiguration(sources, sinks, sanitizers []string) *Configuration {
	return &Configuration{
		Sources:    toSet(sources),
		Sinks:      toSet(sinks),
		Sanitizers: toSet(sanitizers),
	}
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
