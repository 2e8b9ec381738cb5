package navigation

// Keys of the host entries the hub positions itself against.
const (
	KeyHome      = "home"
	KeyMyCourses = "mycourses"
	KeySiteAdmin = "siteadminnode"
	KeyHub       = "aiprojecthub"
)

// DefaultRegistry builds the navigation with the host entries and the AI
// Project Hub item placed before site administration, then seals it.
func DefaultRegistry() *Registry {
	registry := NewRegistry(
		Entry{Key: KeyHome, Label: "Home", Path: "/"},
		Entry{Key: KeyMyCourses, Label: "My courses", Path: "/my/courses"},
		Entry{Key: KeySiteAdmin, Label: "Site administration", Path: "/admin", RequiredRole: "admin"},
	)
	_ = registry.Register(Entry{
		Key:          KeyHub,
		Label:        "AI Project Hub",
		Path:         "/hub",
		Icon:         "robot",
		RequiredRole: "teacher",
		InsertBefore: KeySiteAdmin,
	})
	registry.Seal()
	return registry
}
