// Package layout runs the force-directed placement behind the investor
// network: a d3-style velocity Verlet integrator stepped on a scheduler,
// plus the reheat and drag policy that drives it.
package layout

import (
	"github.com/alfredjeanlab/unicorns/internal/model"
)

// NodeKind tags which variant a Node carries.
type NodeKind int

const (
	CompanyNode NodeKind = iota
	InvestorNode
)

func (k NodeKind) String() string {
	switch k {
	case CompanyNode:
		return "company"
	case InvestorNode:
		return "investor"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind as its name.
func (k NodeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Node is a simulation-owned copy of a company or investor. Exactly one of
// Company or Investor is set, matching Kind.
type Node struct {
	ID       string          `json:"id"`
	Kind     NodeKind        `json:"kind"`
	Company  *model.Company  `json:"-"`
	Investor *model.Investor `json:"-"`

	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"-"`
	VY float64 `json:"-"`

	// FX and FY pin the node when set.
	FX *float64 `json:"-"`
	FY *float64 `json:"-"`

	index  int
	placed bool
}

// NewCompanyNode wraps c as a company node.
func NewCompanyNode(c *model.Company) *Node {
	return &Node{ID: c.ID, Kind: CompanyNode, Company: c}
}

// NewInvestorNode wraps i as an investor node.
func NewInvestorNode(i *model.Investor) *Node {
	return &Node{ID: i.ID, Kind: InvestorNode, Investor: i}
}

// IsCompany reports whether the node is the company variant.
func (n *Node) IsCompany() bool { return n.Kind == CompanyNode }

// IsInvestor reports whether the node is the investor variant.
func (n *Node) IsInvestor() bool { return n.Kind == InvestorNode }

// Place sets the node position. Placed nodes keep their position when the
// simulation initialises its node set.
func (n *Node) Place(x, y float64) {
	n.X, n.Y = x, y
	n.placed = true
}

// Placed reports whether the node has a position.
func (n *Node) Placed() bool { return n.placed }

// Pin fixes the node at (x, y) until Unpin.
func (n *Node) Pin(x, y float64) {
	n.FX, n.FY = &x, &y
}

// Unpin releases a pinned node.
func (n *Node) Unpin() {
	n.FX, n.FY = nil, nil
}

// Pinned reports whether the node is fixed.
func (n *Node) Pinned() bool { return n.FX != nil && n.FY != nil }

// Position is a point in layout coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Position returns the node's current position.
func (n *Node) Position() Position { return Position{n.X, n.Y} }

// Link joins an investor node (source) to a company node (target).
type Link struct {
	Source *Node `json:"-"`
	Target *Node `json:"-"`
}

// MarshalJSON encodes the link by node ids and current endpoints.
func (l Link) MarshalJSON() ([]byte, error) {
	return marshalLink(l)
}
