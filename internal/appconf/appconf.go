package appconf

// Environment describes the context the application is running in. The feed
// index behaves differently in tests, where it must never touch the filesystem.
type Environment int

const (
	Development Environment = iota
	Test
	Production
)

// EnvFromString maps a flag value to an Environment, defaulting to Development.
func EnvFromString(env string) Environment {
	switch env {
	case "test":
		return Test
	case "production":
		return Production
	default:
		return Development
	}
}
