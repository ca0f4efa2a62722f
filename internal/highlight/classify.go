// Package highlight decides which visual role every node and key of a
// snapshot plays in one step.
//
// The step producer attaches only sparse hints: the signatures of the nodes
// involved, an optional target key, an accumulated result set, and a message.
// Messages are translated once into event Tags; everything downstream works on
// the resulting Mode. Recovering intent from free text is inherently fragile
// and the substring rules below are kept as they are observed, not tightened.
package highlight

import (
	"strings"

	"github.com/matsen/btreeplay/internal/catalog"
)

// KeyRef addresses one key inside one node of a snapshot.
type KeyRef struct {
	Node catalog.Signature
	Key  string
}

// Classification is the role assignment for one step. Maps are sparse:
// anything absent has RoleNone.
type Classification struct {
	Tags      Tags
	Mode      Mode
	NodeRoles map[catalog.Signature]Role
	KeyRoles  map[KeyRef]Role

	// Focus is the node the viewport should be centred on, valid when
	// HasFocus is set.
	Focus    catalog.Signature
	HasFocus bool

	// Ambiguous lists signatures carried by more than one node of the
	// snapshot. Roles for those nodes cannot be told apart.
	Ambiguous []catalog.Signature
}

// NodeRole returns the role of the node with the given signature.
func (c Classification) NodeRole(sig catalog.Signature) Role {
	return c.NodeRoles[sig]
}

// KeyRole returns the role of key id inside the node with the given signature.
func (c Classification) KeyRole(sig catalog.Signature, id string) Role {
	return c.KeyRoles[KeyRef{Node: sig, Key: id}]
}

type visit struct {
	node  *catalog.TreeNode
	sig   catalog.Signature
	depth int
}

// Classify resolves roles for step. target is the key highlighted across the
// whole session, or "" for none. The result depends only on its arguments.
func Classify(step catalog.Step, target string) Classification {
	tags := TagsFor(step)
	c := Classification{
		Tags:      tags,
		Mode:      ModeOf(tags),
		NodeRoles: make(map[catalog.Signature]Role),
		KeyRoles:  make(map[KeyRef]Role),
	}

	highlighted := make(map[catalog.Signature]bool, len(step.Highlights))
	for _, sig := range step.Signatures() {
		highlighted[sig] = true
	}
	found := make(map[string]bool, len(step.FoundKeys))
	for _, id := range step.FoundKeys {
		found[id] = true
	}

	var visits []visit
	seen := make(map[catalog.Signature]int)
	step.Tree.Walk(func(n *catalog.TreeNode, depth int) {
		sig := n.Signature()
		visits = append(visits, visit{node: n, sig: sig, depth: depth})
		seen[sig]++
		if seen[sig] == 2 {
			c.Ambiguous = append(c.Ambiguous, sig)
		}
	})

	nodeRole := c.Mode.nodeRole()
	for _, v := range visits {
		if !highlighted[v.sig] {
			continue
		}
		c.NodeRoles[v.sig] = nodeRole
		if !c.HasFocus {
			c.Focus, c.HasFocus = v.sig, true
		}
	}

	ghosts := c.pairGhosts(visits, highlighted, step.Message)

	targetFocused := false
	for _, v := range visits {
		for _, k := range v.node.Keys {
			ref := KeyRef{Node: v.sig, Key: k.ID}
			role := RoleNone
			switch {
			case ghosts[ref] != RoleNone:
				role = ghosts[ref]
			case target != "" && k.ID == target:
				role = RoleFound
				if c.Mode.Delete {
					role = RoleDeleteTarget
				}
				if !targetFocused {
					c.Focus, c.HasFocus = v.sig, true
					targetFocused = true
				}
			case found[k.ID]:
				role = RoleFinalResult
			case c.Mode.Median && strings.Contains(step.Message, k.ID):
				role = RoleMedian
			case c.Mode.Range && strings.Contains(step.Message, k.ID):
				role = RoleRangeMatch
			}
			if role != RoleNone {
				c.KeyRoles[ref] = role
			}
		}
	}
	return c
}

// nodeRole is the role shared by every highlighted node of a step.
func (m Mode) nodeRole() Role {
	switch {
	case m.Overflow:
		return RoleOverflow
	case m.Batch:
		return RoleBatchActive
	case m.Delete:
		return RoleDeleteActive
	case m.Insert:
		return RoleInsertActive
	default:
		return RoleSearchActive
	}
}

// pairGhosts handles a value copied into an ancestor: among the highlighted
// nodes holding the message's subject key, the shallowest holds the copy and
// every deeper one holds the original, now a ghost.
func (c Classification) pairGhosts(visits []visit, highlighted map[catalog.Signature]bool, message string) map[KeyRef]Role {
	if !c.Mode.Ghost {
		return nil
	}
	subject := Subject(message)
	if subject == "" {
		return nil
	}

	var holders []visit
	for _, v := range visits {
		if highlighted[v.sig] && v.node.Contains(subject) {
			holders = append(holders, v)
		}
	}
	if len(holders) == 0 {
		return nil
	}

	copyAt := holders[0]
	for _, h := range holders[1:] {
		if h.depth < copyAt.depth {
			copyAt = h
		}
	}

	roles := make(map[KeyRef]Role, len(holders))
	roles[KeyRef{Node: copyAt.sig, Key: subject}] = RoleDeleteTarget
	for _, h := range holders {
		if h.depth > copyAt.depth {
			roles[KeyRef{Node: h.sig, Key: subject}] = RoleGhost
		}
	}
	return roles
}
