package registry

// Service is the interface for every component started by a boot session.
type Service interface {
	Start() error
	Stop() error
}
