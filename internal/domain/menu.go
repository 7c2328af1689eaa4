package domain

// MenuKind distinguishes navigable menu records from pure permission markers.
type MenuKind string

const (
	MenuKindDirectory MenuKind = "DIRECTORY"
	MenuKindMenu      MenuKind = "MENU"
	MenuKindButton    MenuKind = "BUTTON"
)

// MenuStatus enumerates menu lifecycle states.
type MenuStatus string

const (
	MenuStatusNormal   MenuStatus = "NORMAL"
	MenuStatusDisabled MenuStatus = "DISABLED"
)

// MenuNode is a flat menu record. ParentID == 0 marks a root; the parent-id
// graph is expected to be a forest, but consumers must tolerate malformed
// references (orphans attach at the root, never error).
type MenuNode struct {
	ID        int64
	ParentID  int64
	Name      string
	Path      string
	Component string
	Query     string
	Perms     string
	Icon      string
	OrderNum  int
	Kind      MenuKind
	Visible   bool
	Status    MenuStatus
	IsFrame   bool
	IsCache   bool
	Children  []*MenuNode
}

// IsButton reports whether the node is a pure permission marker with no
// navigable target.
func (m *MenuNode) IsButton() bool {
	return m.Kind == MenuKindButton
}
