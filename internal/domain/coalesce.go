package domain

// CoalesceStr returns the first non-empty string from vals.
func CoalesceStr(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// ResolveModel picks the model for one invocation: the command-line flag,
// then the template's own model property, then the configured default.
func ResolveModel(cli, template, configured string) string {
	return CoalesceStr(cli, template, configured)
}
