package extract

// IdentifierLength is the number of digits in a pallet identifier.
const IdentifierLength = 18

// ExtractIdentifiers returns every maximal run of exactly IdentifierLength ASCII
// digits in text, deduplicated in first-occurrence order. Runs that are shorter
// or longer are ignored entirely, so a 19-digit run yields nothing.
// The result is never nil.
func ExtractIdentifiers(text string) []string {
	ids := make([]string, 0)
	seen := make(map[string]struct{})

	for i := 0; i < len(text); {
		if !isDigit(text[i]) {
			i++
			continue
		}
		start := i
		for i < len(text) && isDigit(text[i]) {
			i++
		}
		if i-start != IdentifierLength {
			continue
		}
		id := text[start:i]
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// IsIdentifier reports whether s is exactly IdentifierLength ASCII digits.
func IsIdentifier(s string) bool {
	if len(s) != IdentifierLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
