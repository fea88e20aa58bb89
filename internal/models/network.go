package models

type NetworkName string

const (
	Ethereum NetworkName = "Ethereum"
	Polygon  NetworkName = "Polygon"
	BSC      NetworkName = "BSC"
	Arbitrum NetworkName = "Arbitrum"
)

func (n NetworkName) String() string {
	return string(n)
}

// EndpointStatus is the health state of a single RPC endpoint.
type EndpointStatus string

const (
	StatusConnected    EndpointStatus = "connected"
	StatusDisconnected EndpointStatus = "disconnected"
	StatusError        EndpointStatus = "error"
)
