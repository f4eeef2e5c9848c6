package discovery

const (
	DefaultServiceType = "_http._tcp"
	DefaultDomain      = "local"
)

// ServiceInfo describes the advertised signaling endpoint.
type ServiceInfo struct {
	Name   string // instance name
	Type   string // service type, e.g. "_http._tcp"
	Domain string // domain, e.g. "local"
	Port   int
}
