package config

// mergeModelCosts merges built-in and user-defined per-model cost
// tables. User-defined entries override built-in entries with the
// same model name, mirroring the teacher's mergeAgents/mergeMCPServers
// "built-in copied first, user entries override by key" pattern.
func mergeModelCosts(builtin, user map[string]ModelCost) map[string]ModelCost {
	result := make(map[string]ModelCost, len(builtin)+len(user))
	for name, cost := range builtin {
		result[name] = cost
	}
	for name, cost := range user {
		result[name] = cost
	}
	return result
}

// mergeTemperatureAgents merges built-in and user-defined per-agent
// temperature overrides, user entries winning by agent name.
func mergeTemperatureAgents(builtin, user map[string]float64) map[string]float64 {
	result := make(map[string]float64, len(builtin)+len(user))
	for name, t := range builtin {
		result[name] = t
	}
	for name, t := range user {
		result[name] = t
	}
	return result
}

// mergeLinearParamsByMethod merges built-in and user-defined
// time-estimation linear coefficients, user entries winning by method
// name (e.g. "flash", "pro", "ultra").
func mergeLinearParamsByMethod(builtin, user map[string]LinearParams) map[string]LinearParams {
	result := make(map[string]LinearParams, len(builtin)+len(user))
	for method, p := range builtin {
		result[method] = p
	}
	for method, p := range user {
		result[method] = p
	}
	return result
}
