package detector

// DetectServerFrom exposes server detection over a custom environment.
func DetectServerFrom(env map[string]string) Server {
	return detectServer(mapLookup(env))
}

// DetectModeFrom exposes mode detection over a custom environment.
func DetectModeFrom(isTTY bool, env map[string]string) OutputMode {
	return detectMode(isTTY, mapLookup(env))
}

func mapLookup(env map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}
