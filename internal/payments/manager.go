package payments

import "fmt"

// Manager is the provider registry. The active gateway is resolved once at
// startup from configuration; handlers never dispatch by provider name.
type Manager struct {
	gateways map[string]Gateway
}

func NewManager() *Manager {
	return &Manager{gateways: make(map[string]Gateway)}
}

func (m *Manager) RegisterGateway(name string, gateway Gateway) {
	m.gateways[name] = gateway
}

func (m *Manager) Gateway(name string) (Gateway, error) {
	gateway, ok := m.gateways[name]
	if !ok {
		return nil, fmt.Errorf("gateway not registered: %s", name)
	}
	return gateway, nil
}
