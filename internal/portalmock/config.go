package portalmock

// Config holds configuration for the mock portal.
type Config struct {
	// Port is the port on which the mock portal listens.
	Port int

	// FixedCode, when set, is the challenge answer for every visitor instead
	// of a random code.
	FixedCode string

	// Cases are the records the portal knows about. Nil means SampleCases.
	Cases []Case
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port: 9999,
	}
}
