package rbac

// departmentGrants is the fixed department to grant table.
var departmentGrants = map[Department][]Grant{
	DepartmentGestion: {
		{PermissionCreate, ResourceUser},
		{PermissionCreate, ResourceContract},
		{PermissionRead, ResourceEvent},
		{PermissionRead, ResourceUser},
		{PermissionRead, ResourceContract},
		{PermissionUpdate, ResourceUser},
		{PermissionUpdate, ResourceContract},
		{PermissionUpdate, ResourceEvent},
		{PermissionDelete, ResourceUser},
	},
	DepartmentCommercial: {
		{PermissionCreate, ResourceClient},
		{PermissionCreate, ResourceEvent},
		{PermissionRead, ResourceEvent},
		{PermissionRead, ResourceClient},
		{PermissionRead, ResourceContract},
		{PermissionUpdate, ResourceClient},
		{PermissionUpdate, ResourceContract},
	},
	DepartmentSupport: {
		{PermissionRead, ResourceEvent},
		{PermissionRead, ResourceClient},
		{PermissionRead, ResourceContract},
		{PermissionUpdate, ResourceEvent},
	},
}

// ResolveGrants returns the grant set held by members of dept. The result is
// a fresh set the caller may modify. An unknown department resolves to the
// empty set.
func ResolveGrants(dept Department) GrantSet {
	return NewGrantSet(departmentGrants[dept]...)
}

// AllGrants returns every (permission type, resource type) pair of the
// catalog, whether or not a department holds it.
func AllGrants() []Grant {
	grants := make([]Grant, 0, len(PermissionTypes())*len(ResourceTypes()))
	for _, p := range PermissionTypes() {
		for _, r := range ResourceTypes() {
			grants = append(grants, Grant{Permission: p, Resource: r})
		}
	}
	return grants
}
