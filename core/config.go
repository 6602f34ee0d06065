package core

// ChainConfig is the configuration of one chain and the builder of its endpoint.
type ChainConfig interface {
	// Validate reports every problem of the configuration at once
	Validate() error
	// Build connects to the chain and returns its endpoint
	Build(rt *Runtime, homePath string) (ChainEndpoint, error)
}
