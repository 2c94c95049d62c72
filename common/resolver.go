package common

// Resolver discovers domain names served behind a raw host:port, typically
// by reading the TLS leaf certificate. A failed handshake is an expected
// outcome and yields an empty set, never an error.
type Resolver interface {
	Name() string
	Resolve(host string, port int) []string
}

// Augmenter rewrites an endpoint set, typically substituting discovered
// domains for raw IP hosts while keeping the originals.
type Augmenter interface {
	Augment(endpoints *Endpoints) *Endpoints
}
