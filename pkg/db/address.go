package db

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// AddressKind classifies a store address.
type AddressKind int

const (
	// KindFile is a plain filesystem path.
	KindFile AddressKind = iota
	// KindMemory is an in-memory store (":memory:").
	KindMemory
	// KindURI is a "file:" URI handed to the engine verbatim.
	KindURI
	// KindRemote is a libsql server reached over the network.
	KindRemote
)

func (k AddressKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindMemory:
		return "memory"
	case KindURI:
		return "uri"
	case KindRemote:
		return "remote"
	default:
		return fmt.Sprintf("AddressKind(%d)", int(k))
	}
}

var remoteSchemes = []string{"libsql://", "http://", "https://", "ws://", "wss://"}

// Address is a parsed store address.
type Address struct {
	Raw  string
	Kind AddressKind
}

// FileBacked reports whether the address names a plain file on disk.
func (a Address) FileBacked() bool {
	return a.Kind == KindFile
}

// ParseAddress classifies addr. Only plain paths are file-backed.
func ParseAddress(addr string) (Address, error) {
	if strings.TrimSpace(addr) == "" {
		return Address{}, errors.New("database address is empty")
	}

	switch {
	case strings.HasPrefix(addr, ":memory:"):
		return Address{Raw: addr, Kind: KindMemory}, nil
	case strings.HasPrefix(addr, "file:"):
		return Address{Raw: addr, Kind: KindURI}, nil
	}

	lower := strings.ToLower(addr)
	for _, scheme := range remoteSchemes {
		if strings.HasPrefix(lower, scheme) {
			return Address{Raw: addr, Kind: KindRemote}, nil
		}
	}

	return Address{Raw: addr, Kind: KindFile}, nil
}

// DeleteFile removes the store file at addr. It reports false without error
// when there is nothing to delete: the file is absent, is a directory, or
// addr is not file-backed.
func DeleteFile(addr string) (bool, error) {
	a, err := ParseAddress(addr)
	if err != nil || !a.FileBacked() {
		return false, nil
	}

	info, err := os.Stat(a.Raw)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat database file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return false, nil
	}

	if err := os.Remove(a.Raw); err != nil {
		return false, fmt.Errorf("failed to delete database file: %w", err)
	}
	return true, nil
}
