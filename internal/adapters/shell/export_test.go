package shell

// ResolveEnvironment exposes environment resolution for white-box testing.
func (e *Executor) ResolveEnvironment(sysEnv []string, cmdEnv map[string]string) []string {
	return e.resolveEnvironment(sysEnv, cmdEnv)
}

// LookPath exposes lookPath for testing.
var LookPath = lookPath
