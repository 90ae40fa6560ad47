// Package menu selects the navigation tree a client renders for a role.
//
// Menus are display data only. Nothing here grants or checks access; the API enforces
// authorization from the verified token on every route.
package menu

import "strings"

type Role int

const (
	RoleStaff Role = iota
	RoleAdmin
)

func (r Role) String() string {
	if r == RoleAdmin {
		return "admin"
	}
	return "staff"
}

// ParseRole maps a role value to a Role. Anything other than "admin", including an
// empty value from a failed lookup, is RoleStaff.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), "admin") {
		return RoleAdmin
	}
	return RoleStaff
}

type Item struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Path     string `json:"path,omitempty"`
	Icon     string `json:"icon,omitempty"`
	Children []Item `json:"children,omitempty"`
}

type Tree []Item

var staffTree = Tree{
	{Key: "dashboard", Label: "Dashboard", Path: "/dashboard", Icon: "home"},
	{Key: "tasks", Label: "My Tasks", Path: "/tasks", Icon: "check-square"},
	{Key: "work", Label: "Work Assignments", Path: "/work", Icon: "briefcase"},
	{Key: "schedule", Label: "Schedule", Icon: "calendar", Children: []Item{
		{Key: "calls", Label: "Calls", Path: "/calls"},
		{Key: "meetings", Label: "Meetings", Path: "/meetings"},
		{Key: "calendar", Label: "Calendar", Path: "/calendar"},
	}},
	{Key: "leave", Label: "Leave & WFH", Icon: "sun", Children: []Item{
		{Key: "leave-requests", Label: "My Requests", Path: "/leaves"},
		{Key: "leave-summary", Label: "Yearly Summary", Path: "/leaves/summary"},
		{Key: "holidays", Label: "Holidays", Path: "/holidays"},
	}},
	{Key: "attendance", Label: "Attendance", Path: "/attendance", Icon: "clock"},
	{Key: "teams", Label: "My Teams", Path: "/my-teams", Icon: "users"},
	{Key: "notifications", Label: "Notifications", Path: "/notifications", Icon: "bell"},
}

var adminTree = Tree{
	{Key: "dashboard", Label: "Dashboard", Path: "/dashboard", Icon: "home"},
	{Key: "crm", Label: "CRM", Icon: "address-book", Children: []Item{
		{Key: "leads", Label: "Leads", Path: "/admin/leads"},
		{Key: "contacts", Label: "Contacts", Path: "/admin/contacts"},
		{Key: "companies", Label: "Companies", Path: "/admin/companies"},
	}},
	{Key: "tasks", Label: "Tasks", Path: "/admin/tasks", Icon: "check-square"},
	{Key: "work", Label: "Work Assignments", Path: "/admin/work", Icon: "briefcase"},
	{Key: "schedule", Label: "Schedule", Icon: "calendar", Children: []Item{
		{Key: "calls", Label: "Calls", Path: "/calls"},
		{Key: "meetings", Label: "Meetings", Path: "/meetings"},
		{Key: "calendar", Label: "Calendar", Path: "/calendar"},
	}},
	{Key: "leave", Label: "Leave & WFH", Icon: "sun", Children: []Item{
		{Key: "leave-approvals", Label: "Approvals", Path: "/admin/leaves"},
		{Key: "leave-summaries", Label: "Yearly Summaries", Path: "/admin/leaves/summaries"},
		{Key: "allocations", Label: "Allocations", Path: "/admin/leaves/allocations"},
		{Key: "holidays", Label: "Holidays", Path: "/admin/holidays"},
	}},
	{Key: "staff", Label: "Staff", Icon: "id-badge", Children: []Item{
		{Key: "staff-list", Label: "Staff", Path: "/admin/staff"},
		{Key: "attendance", Label: "Attendance", Path: "/admin/attendance"},
		{Key: "teams", Label: "Teams", Path: "/admin/teams"},
	}},
	{Key: "documents", Label: "Documents", Path: "/admin/documents", Icon: "file"},
	{Key: "trash", Label: "Trash", Path: "/admin/trash", Icon: "trash"},
}

// For returns a copy of the menu tree of role, safe for the caller to modify.
func For(role Role) Tree {
	if role == RoleAdmin {
		return clone(adminTree)
	}
	return clone(staffTree)
}

func clone(t Tree) Tree {
	out := make(Tree, len(t))
	for i, it := range t {
		out[i] = it
		if it.Children != nil {
			out[i].Children = clone(it.Children)
		}
	}
	return out
}

// Keys flattens the tree into its item keys, depth first.
func (t Tree) Keys() []string {
	var keys []string
	for _, it := range t {
		keys = append(keys, it.Key)
		keys = append(keys, Tree(it.Children).Keys()...)
	}
	return keys
}
