package config

// mergeFixtureEntities merges built-in and user-defined fixture entity
// configurations. User-defined entities override built-in entities with the
// same entity type key.
func mergeFixtureEntities(builtin, user map[string]FixtureEntityConfig) map[string]FixtureEntityConfig {
	result := make(map[string]FixtureEntityConfig, len(builtin)+len(user))

	for entityType, entry := range builtin {
		result[entityType] = entry
	}

	for entityType, entry := range user {
		if entry.CheckAPI == "" {
			entry.CheckAPI = entry.FixtureAPI
		}
		if entry.IDField == "" {
			entry.IDField = "id"
		}
		result[entityType] = entry
	}

	return result
}
