package menu

import (
	"strings"

	"github.com/spec-kit/backoffice-service/internal/domain"
)

// Meta carries display metadata for a front-end route.
type Meta struct {
	Title   string `json:"title"`
	Icon    string `json:"icon"`
	NoCache bool   `json:"noCache"`
	Link    string `json:"link,omitempty"`
}

// Route is a navigation-tree node consumed by the front-end renderer. Field
// names match the existing consumer contract.
type Route struct {
	Name       string   `json:"name"`
	Path       string   `json:"path"`
	Hidden     bool     `json:"hidden"`
	Redirect   string   `json:"redirect,omitempty"`
	Component  string   `json:"component,omitempty"`
	Query      string   `json:"query,omitempty"`
	AlwaysShow bool     `json:"alwaysShow,omitempty"`
	Meta       *Meta    `json:"meta,omitempty"`
	Children   []*Route `json:"children,omitempty"`
}

const componentLayout = "Layout"

// BuildRoutes maps a menu forest to route descriptors. Button nodes are pure
// permission markers and never appear in the output; they still count toward
// permission sets elsewhere.
func (b *Builder) BuildRoutes(forest []*domain.MenuNode) []*Route {
	routes := make([]*Route, 0, len(forest))
	for _, node := range forest {
		if node.IsButton() {
			continue
		}
		routes = append(routes, b.route(node, true))
	}
	return routes
}

func (b *Builder) route(node *domain.MenuNode, topLevel bool) *Route {
	r := &Route{
		Name:      routeName(node),
		Path:      routePath(node, topLevel),
		Hidden:    !node.Visible,
		Component: node.Component,
		Query:     node.Query,
		Meta: &Meta{
			Title:   node.Name,
			Icon:    node.Icon,
			NoCache: !node.IsCache,
		},
	}
	if node.IsFrame {
		r.Meta.Link = node.Path
	}

	if node.Kind == domain.MenuKindDirectory {
		if r.Component == "" {
			r.Component = componentLayout
		}
		r.Redirect = "noRedirect"
		r.AlwaysShow = true
	}

	for _, child := range node.Children {
		if child.IsButton() {
			continue
		}
		r.Children = append(r.Children, b.route(child, false))
	}
	return r
}

func routeName(node *domain.MenuNode) string {
	path := node.Path
	if path == "" {
		return ""
	}
	return strings.ToUpper(path[:1]) + path[1:]
}

func routePath(node *domain.MenuNode, topLevel bool) string {
	if topLevel && !node.IsFrame && !strings.HasPrefix(node.Path, "/") {
		return "/" + node.Path
	}
	return node.Path
}
