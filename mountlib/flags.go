package mountlib

import "strings"

// MergeFlags parses a whitespace-separated
// list of "-flag" or "-flag=value" tokens from explicit, dedupes it
// against builderFlags by first token (the part before "="), and return
// explicit flags ahead of any builder-derived flag that didn't collide.
//
// Explicit flags win over builder-derived ones that share a first token,
// since a caller who spells out -ovolname=foo is overriding whatever the
// builder would have derived from SetVolumeName.
func MergeFlags(explicit string, builderFlags []string) []string {
	explicitTokens := splitFlags(explicit)

	seen := make(map[string]bool, len(explicitTokens))
	merged := make([]string, 0, len(explicitTokens)+len(builderFlags))
	for _, tok := range explicitTokens {
		merged = append(merged, tok)
		seen[flagKey(tok)] = true
	}
	for _, tok := range builderFlags {
		if seen[flagKey(tok)] {
			continue
		}
		merged = append(merged, tok)
		seen[flagKey(tok)] = true
	}
	return merged
}

func splitFlags(s string) []string {
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if strings.HasPrefix(f, "-") {
			out = append(out, f)
		}
	}
	return out
}

func flagKey(flag string) string {
	if idx := strings.IndexByte(flag, '='); idx >= 0 {
		return flag[:idx]
	}
	return flag
}
