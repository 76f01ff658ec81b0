package plugin

import (
	"fmt"
	"sort"
	"sync"

	"github.com/joseaugustine1/pcap-sip-vision/internal/core"
)

// ParserFactory creates a parser instance.
type ParserFactory func() Parser

type parserRegistry struct {
	mu        sync.RWMutex
	factories map[string]ParserFactory
}

var parserReg = &parserRegistry{factories: make(map[string]ParserFactory)}

func (r *parserRegistry) register(name string, f ParserFactory) {
	if name == "" {
		panic("plugin: parser name must not be empty")
	}
	if f == nil {
		panic(fmt.Sprintf("plugin: nil factory for parser %q", name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[name]; dup {
		panic(fmt.Sprintf("plugin: parser %q registered twice", name))
	}
	r.factories[name] = f
}

func (r *parserRegistry) get(name string) (ParserFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("parser %q: %w", name, core.ErrPluginNotFound)
	}
	return f, nil
}

func (r *parserRegistry) list() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// reset removes every registration. Tests only.
func (r *parserRegistry) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = make(map[string]ParserFactory)
}

// RegisterParser registers a parser factory under name. It panics on an
// empty name, a nil factory or a duplicate name.
func RegisterParser(name string, f ParserFactory) {
	parserReg.register(name, f)
}

// GetParserFactory returns the factory registered under name, or an error
// wrapping core.ErrPluginNotFound.
func GetParserFactory(name string) (ParserFactory, error) {
	return parserReg.get(name)
}

// ListParsers returns the registered parser names, sorted.
func ListParsers() []string {
	return parserReg.list()
}

// NewParsers instantiates the named parsers in the given order. Order is
// significant: a classifier offers each payload to the parsers in turn.
func NewParsers(names ...string) ([]Parser, error) {
	parsers := make([]Parser, 0, len(names))
	for _, name := range names {
		f, err := GetParserFactory(name)
		if err != nil {
			return nil, err
		}
		parsers = append(parsers, f())
	}
	return parsers, nil
}
