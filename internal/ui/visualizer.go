package ui

import (
	"fmt"
	"strings"

	"umlforge/local-app/internal/app"
)

// Tree prints an element tree with box drawing branches
func (u *UI) Tree(root app.TreeNode) {
	var lines []string
	lines = append(lines, u.treeLine(root))
	var walk func(nodes []app.TreeNode, prefix string)
	walk = func(nodes []app.TreeNode, prefix string) {
		for i, n := range nodes {
			last := i == len(nodes)-1
			branch, indent := "├── ", "│   "
			if last {
				branch, indent = "└── ", "    "
			}
			lines = append(lines, prefix+u.styles.branch.Render(branch)+u.treeLine(n))
			walk(n.Children, prefix+u.styles.branch.Render(indent))
		}
	}
	walk(root.Children, "")
	u.Println(strings.Join(lines, "\n"))
}

func (u *UI) treeLine(n app.TreeNode) string {
	return fmt.Sprintf("%s %s %s",
		u.styles.name.Render(n.Label),
		u.styles.kind.Render("("+n.Type+")"),
		u.styles.id.Render("["+n.ID+"]"))
}

// Properties prints a title followed by aligned name/value rows
func (u *UI) Properties(p app.Properties) {
	width := 0
	for _, row := range p.Rows {
		width = max(width, len(row.Name))
	}
	u.Println(u.styles.title.Render(p.Title))
	for _, row := range p.Rows {
		name := row.Name + strings.Repeat(" ", width-len(row.Name))
		u.Println("  " + u.styles.field.Render(name) + "  " + u.styles.text.Render(row.Value))
	}
}

// Result prints whatever a command handler returned
func (u *UI) Result(result interface{}) {
	switch r := result.(type) {
	case nil:
	case string:
		u.Success(r)
	case []string:
		u.Lines(r)
	case app.TreeNode:
		u.Tree(r)
	case app.Properties:
		u.Properties(r)
	default:
		u.Println(fmt.Sprint(r))
	}
}
