// Package alias resolves import aliases and simple re-assignment aliases
// (e.g. `run = subprocess.run`) to their fully-qualified target, so a call
// through an alias is recognized as a sink just as readily as a call
// through the original dotted path. Calls that resolve to a known
// OS-command-execution target are tagged "sink" (plus "alias" when an
// alias hop was actually crossed).
package alias

import "github.com/nsss/nsss/internal/ir"

var systemCallTargets = map[string]bool{
	"os.system": true, "os.popen": true,
	"subprocess.call": true, "subprocess.run": true,
	"subprocess.Popen": true, "subprocess.check_output": true,
}

const (
	TagSink  = "sink"
	TagAlias = "alias"
)

// scope holds the alias and known-target maps for one scope id.
type scope struct {
	aliases      map[string]string
	knownTargets map[string]bool
}

// Resolver accumulates per-scope alias state in a single pass while walking
// a graph's nodes in order.
type Resolver struct {
	byScope map[string]*scope
}

// Resolve walks g's nodes once, recording import/assignment aliases as it
// goes and tagging any Call node whose resolved callee is a known
// OS-command-execution target.
func Resolve(g *ir.Graph) {
	r := &Resolver{byScope: map[string]*scope{}}
	for i := range g.Nodes {
		n := &g.Nodes[i]
		scopeID := n.ScopeID
		if scopeID == "" {
			scopeID = ir.ModuleScopeID
		}
		switch n.Kind {
		case ir.KindImport:
			r.recordImport(n, scopeID)
		case ir.KindAssign:
			r.recordAssignmentAlias(n, scopeID, g)
		case ir.KindCall:
			r.resolveCall(n, scopeID, g)
		}
	}
}

func (r *Resolver) scopeFor(id string) *scope {
	s, ok := r.byScope[id]
	if !ok {
		s = &scope{aliases: map[string]string{}, knownTargets: map[string]bool{}}
		r.byScope[id] = s
	}
	return s
}

func (r *Resolver) recordImport(n *ir.Node, scopeID string) {
	names, _ := n.Attrs["names"].([]string)
	aliases, _ := n.Attrs["aliases"].([]string)
	module, _ := n.Attrs["module"].(string)
	if len(names) == 0 || len(names) != len(aliases) {
		return
	}
	s := r.scopeFor(scopeID)
	if module != "" {
		for i, name := range names {
			target := module + "." + name
			s.knownTargets[target] = true
			if aliases[i] != "" {
				s.aliases[aliases[i]] = target
			} else {
				s.aliases[name] = target
			}
		}
		return
	}
	for i, name := range names {
		s.knownTargets[name] = true
		if aliases[i] != "" {
			s.aliases[aliases[i]] = name
		}
	}
}

func (r *Resolver) recordAssignmentAlias(n *ir.Node, scopeID string, g *ir.Graph) {
	target, _ := n.Attrs["target_text"].(string)
	valueID, _ := n.Attrs["value_id"].(string)
	if target == "" || valueID == "" {
		return
	}
	valueNode, ok := g.Node(valueID)
	if !ok {
		return
	}
	resolved := r.resolveValueNode(valueNode, scopeID, g)
	if resolved == "" {
		return
	}
	if !r.isKnownTarget(resolved, scopeID) {
		return
	}
	s := r.scopeFor(scopeID)
	s.aliases[target] = resolved
	s.knownTargets[resolved] = true
}

func (r *Resolver) resolveValueNode(n *ir.Node, scopeID string, g *ir.Graph) string {
	switch n.Kind {
	case ir.KindName:
		name, _ := n.Attrs["name"].(string)
		if name == "" {
			return ""
		}
		return r.resolveName(name, scopeID)
	case ir.KindAttribute:
		return r.resolveAttributePath(n, scopeID, g)
	default:
		return ""
	}
}

func (r *Resolver) resolveCall(n *ir.Node, scopeID string, g *ir.Graph) {
	calleeID, _ := n.Attrs["callee_id"].(string)
	if calleeID == "" {
		return
	}
	callee, ok := g.Node(calleeID)
	if !ok {
		return
	}

	var resolved string
	aliasUsed := false
	switch callee.Kind {
	case ir.KindName:
		name, _ := callee.Attrs["name"].(string)
		if name == "" {
			return
		}
		if a := r.lookupAlias(name, scopeID); a != "" {
			resolved, aliasUsed = a, true
		}
	case ir.KindAttribute:
		resolved, aliasUsed = r.resolveAttributeCall(callee, scopeID, g)
	}

	if resolved != "" && systemCallTargets[resolved] {
		n.Attrs["resolved_callee"] = resolved
		n.AddTag(TagSink)
		if aliasUsed {
			n.AddTag(TagAlias)
		}
	}
}

func (r *Resolver) resolveAttributeCall(callee *ir.Node, scopeID string, g *ir.Graph) (string, bool) {
	valueID, _ := callee.Attrs["object_id"].(string)
	attr, _ := callee.Attrs["attr"].(string)
	if valueID == "" || attr == "" {
		return "", false
	}
	base, ok := g.Node(valueID)
	if !ok {
		return "", false
	}
	basePath, aliasUsed := r.resolveAttributeBase(base, scopeID, g)
	if basePath == "" {
		return "", false
	}
	return basePath + "." + attr, aliasUsed
}

func (r *Resolver) resolveAttributePath(n *ir.Node, scopeID string, g *ir.Graph) string {
	valueID, _ := n.Attrs["object_id"].(string)
	attr, _ := n.Attrs["attr"].(string)
	if valueID == "" || attr == "" {
		return ""
	}
	base, ok := g.Node(valueID)
	if !ok {
		return ""
	}
	basePath, _ := r.resolveAttributeBase(base, scopeID, g)
	if basePath == "" {
		return ""
	}
	return basePath + "." + attr
}

func (r *Resolver) resolveAttributeBase(n *ir.Node, scopeID string, g *ir.Graph) (string, bool) {
	switch n.Kind {
	case ir.KindName:
		name, _ := n.Attrs["name"].(string)
		if name == "" {
			return "", false
		}
		if a := r.lookupAlias(name, scopeID); a != "" {
			return a, a != name
		}
		return name, false
	case ir.KindAttribute:
		valueID, _ := n.Attrs["object_id"].(string)
		attr, _ := n.Attrs["attr"].(string)
		if valueID == "" || attr == "" {
			return "", false
		}
		base, ok := g.Node(valueID)
		if !ok {
			return "", false
		}
		basePath, aliasUsed := r.resolveAttributeBase(base, scopeID, g)
		if basePath == "" {
			return "", false
		}
		return basePath + "." + attr, aliasUsed
	default:
		return "", false
	}
}

func (r *Resolver) resolveName(name, scopeID string) string {
	if a := r.lookupAlias(name, scopeID); a != "" {
		return a
	}
	for _, s := range r.scopeChain(scopeID) {
		if scp := r.byScope[s]; scp != nil && scp.knownTargets[name] {
			return name
		}
	}
	return ""
}

func (r *Resolver) lookupAlias(name, scopeID string) string {
	for _, s := range r.scopeChain(scopeID) {
		if scp := r.byScope[s]; scp != nil {
			if target, ok := scp.aliases[name]; ok {
				return target
			}
		}
	}
	return ""
}

func (r *Resolver) scopeChain(scopeID string) []string {
	if scopeID == ir.ModuleScopeID {
		return []string{ir.ModuleScopeID}
	}
	return []string{scopeID, ir.ModuleScopeID}
}

func (r *Resolver) isKnownTarget(path, scopeID string) bool {
	for _, prefix := range pathPrefixes(path) {
		for _, s := range r.scopeChain(scopeID) {
			if scp := r.byScope[s]; scp != nil && scp.knownTargets[prefix] {
				return true
			}
		}
	}
	return false
}

func pathPrefixes(path string) []string {
	var parts []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '.' {
			parts = append(parts, path[start:i])
			start = i + 1
		}
	}
	prefixes := make([]string, 0, len(parts))
	acc := ""
	for i, p := range parts {
		if i == 0 {
			acc = p
		} else {
			acc = acc + "." + p
		}
		prefixes = append(prefixes, acc)
	}
	return prefixes
}
