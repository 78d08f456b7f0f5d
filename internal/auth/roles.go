package auth

import (
	"regexp"
	"strings"
)

const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleAdminUser  = "admin_user"
	RoleBlockAdmin = "block_admin"
	RoleTeacher    = "teacher"
)

var (
	adminRoles    = []string{RoleAdmin, RoleSuperAdmin, RoleAdminUser, RoleBlockAdmin, "100"}
	educatorRoles = []string{RoleTeacher, "101"}
)

var organizationRoutes = []string{
	"/organizations",
	"/organizations/details/:id",
}

// restrictedRoutes lists the UI pages each role may not open.
var restrictedRoutes = map[string][]string{
	RoleSuperAdmin: {},
	RoleAdmin:      {},
	RoleAdminUser:  organizationRoutes,
	RoleBlockAdmin: organizationRoutes,
	RoleTeacher: append(append([]string{}, organizationRoutes...),
		"/regions",
		"/regions/:id/details",
		"/schools",
		"/schools/:id/details",
		"/schools/:id/edit",
		"/schools/add",
		"/users",
		"/users/details/:id",
		"/users/edit/:id",
		"/users/add",
		"/questions",
		"/questions/:id",
		"/questions/:id/edit",
		"/questions/add",
		"/uploadHistory",
	),
}

var (
	uuidSegment     = regexp.MustCompile(`(?i)/[\da-f]{8}-[\da-f]{4}-[\da-f]{4}-[\da-f]{4}-[\da-f]{12}(/|$)`)
	questionSegment = regexp.MustCompile(`(?i)/Q\d+(/|$)`)
)

func IsAdminRole(role string) bool {
	return contains(adminRoles, role)
}

func IsEducatorRole(role string) bool {
	return contains(educatorRoles, role)
}

func RestrictedRoutes(role string) []string {
	return append([]string{}, restrictedRoutes[role]...)
}

// NormalizeRoute replaces uuid and question-code segments with :id.
func NormalizeRoute(route string) string {
	if i := strings.IndexByte(route, '?'); i >= 0 {
		route = route[:i]
	}
	for _, re := range []*regexp.Regexp{uuidSegment, questionSegment} {
		for re.MatchString(route) {
			route = re.ReplaceAllString(route, "/:id$1")
		}
	}
	return route
}

// CanAccess reports whether role may open the UI page at route.
func CanAccess(role, route string) bool {
	normalized := NormalizeRoute(route)
	for _, r := range restrictedRoutes[role] {
		if r == normalized {
			return false
		}
	}
	return true
}

func contains(list []string, v string) bool {
	v = strings.TrimSpace(v)
	for _, it := range list {
		if it == v {
			return true
		}
	}
	return false
}
