package ports

import (
	"errors"
	"fmt"
	"net"
)

// ErrInterfaceNotFound is returned by StaticResolver for unknown names or
// indexes.
var ErrInterfaceNotFound = errors.New("ports: no such interface")

// Resolver translates between interface names and kernel interface indexes.
type Resolver interface {
	IndexByName(name string) (int, error)
	NameByIndex(index int) (string, error)
}

// SystemResolver asks the kernel through the net package.
type SystemResolver struct{}

func (SystemResolver) IndexByName(name string) (int, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return 0, fmt.Errorf("ports: resolve %q: %w", name, err)
	}
	return ifi.Index, nil
}

func (SystemResolver) NameByIndex(index int) (string, error) {
	ifi, err := net.InterfaceByIndex(index)
	if err != nil {
		return "", fmt.Errorf("ports: resolve index %d: %w", index, err)
	}
	return ifi.Name, nil
}

// StaticResolver is a fixed name → index table.
type StaticResolver map[string]int

func (s StaticResolver) IndexByName(name string) (int, error) {
	if idx, ok := s[name]; ok {
		return idx, nil
	}
	return 0, fmt.Errorf("ports: resolve %q: %w", name, ErrInterfaceNotFound)
}

func (s StaticResolver) NameByIndex(index int) (string, error) {
	for name, idx := range s {
		if idx == index {
			return name, nil
		}
	}
	return "", fmt.Errorf("ports: resolve index %d: %w", index, ErrInterfaceNotFound)
}
