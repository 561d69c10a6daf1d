// Package agent holds the fixed alphabet of agent personas used throughout
// the orchestrator: each letter A..Z maps to exactly one display name.
package agent

// names is the fixed letter-to-name table. Index 0 is 'A'.
var names = [26]string{
	"Aaron", "Betty", "Carlos", "Diana", "Edgar", "Fiona", "Gustav", "Hannah",
	"Irene", "Julian", "Kara", "Leo", "Mira", "Nadia", "Oscar", "Priya",
	"Quinn", "Rosa", "Silas", "Tara", "Ulric", "Vera", "Wade", "Ximena",
	"Yusuf", "Zara",
}

// UnknownName is returned by Name for an initial outside A..Z.
const UnknownName = "unknown"

// Name returns the display name bound to an uppercase initial, or
// UnknownName if the initial is not in A..Z.
func Name(initial byte) string {
	if initial < 'A' || initial > 'Z' {
		return UnknownName
	}
	return names[initial-'A']
}

// Initials returns the first n letters of the alphabet, in order. Used to
// build the default agent list for --max-agents N when no explicit list is
// configured.
func Initials(n int) []byte {
	if n > len(names) {
		n = len(names)
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = byte('A' + i)
	}
	return out
}
