package auth

// Identity is the canonical caller identity consumed by the rest of the
// gateway. Claims are opaque here: they are carried through for downstream
// audit headers and rate limiting, never interpreted.
type Identity struct {
	Subject string         `json:"subject"`
	Source  string         `json:"source"` // "jwt" | "agent" | "service"
	Claims  map[string]any `json:"claims,omitempty"`
}
