package core

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Manifest defines the structure of a module manifest (inspired by subgraph manifests)
type Manifest struct {
	Name        string                 `yaml:"name"`
	Version     string                 `yaml:"version"`
	Type        string                 `yaml:"type,omitempty"` // Module kind, e.g. "augustus"
	Description string                 `yaml:"description,omitempty"`
	Repository  string                 `yaml:"repository,omitempty"`
	DataSources []DataSource           `yaml:"dataSources"`
	Context     map[string]interface{} `yaml:"context,omitempty"` // Module-specific context
}

// DataSource defines a contract or set of contracts to watch
type DataSource struct {
	Kind    string                 `yaml:"kind"`    // "ethereum/contract"
	Name    string                 `yaml:"name"`    // Friendly name
	Network string                 `yaml:"network"` // "mainnet"
	Source  DataSourceSource       `yaml:"source"`
	Mapping DataSourceMapping      `yaml:"mapping"`
	Context map[string]interface{} `yaml:"context,omitempty"` // Additional context
}

// DataSourceSource defines the contract source information
type DataSourceSource struct {
	Address    *string `yaml:"address,omitempty"`    // Contract address (optional for templates)
	ABI        string  `yaml:"abi"`                  // ABI name
	StartBlock *uint64 `yaml:"startBlock,omitempty"` // Block to start indexing from
}

// DataSourceMapping defines how to handle events from this data source
type DataSourceMapping struct {
	Kind          string         `yaml:"kind"`                 // "ethereum/events"
	APIVersion    string         `yaml:"apiVersion,omitempty"` // "0.0.1"
	Language      string         `yaml:"language,omitempty"`   // "go"
	Entities      []string       `yaml:"entities"`             // List of entities this mapping creates
	EventHandlers []EventHandler `yaml:"eventHandlers,omitempty"`
	BlockHandlers []BlockHandler `yaml:"blockHandlers,omitempty"`
	CallHandlers  []CallHandler  `yaml:"callHandlers,omitempty"`
}

// EventHandler defines how to handle a specific event
type EventHandler struct {
	Event     string              `yaml:"event"`               // Event signature (e.g., "Transfer(indexed address,indexed address,uint256)")
	Handler   string              `yaml:"handler"`             // Handler function name
	Filter    *EventHandlerFilter `yaml:"filter,omitempty"`    // Optional event filter
	FeeScheme string              `yaml:"feeScheme,omitempty"` // Optional fee-share rule ("none", "v2", "v3")
}

// EventHandlerFilter provides additional filtering for events
type EventHandlerFilter struct {
	MinBlock *uint64 `yaml:"minBlock,omitempty"`
}

// BlockHandler defines how to handle blocks (optional)
type BlockHandler struct {
	Handler string                 `yaml:"handler"`
	Filter  map[string]interface{} `yaml:"filter,omitempty"`
}

// CallHandler defines how to handle contract calls (optional)
type CallHandler struct {
	Function string                 `yaml:"function"` // Method signature (e.g., "swapOnUniswap(uint256,uint256,address[])")
	Handler  string                 `yaml:"handler"`
	Filter   map[string]interface{} `yaml:"filter,omitempty"`
}

// ValidateManifest validates a manifest structure
func (m *Manifest) ValidateManifest() error {
	if m.Name == "" {
		return ErrInvalidManifest{Field: "name", Reason: "name is required"}
	}

	if m.Version == "" {
		return ErrInvalidManifest{Field: "version", Reason: "version is required"}
	}

	if len(m.DataSources) == 0 {
		return ErrInvalidManifest{Field: "dataSources", Reason: "at least one data source is required"}
	}

	for i, ds := range m.DataSources {
		if err := ds.validate(); err != nil {
			return ErrInvalidManifest{Field: "dataSources[" + strconv.Itoa(i) + "]", Reason: err.Error()}
		}
	}

	return nil
}

func (ds *DataSource) validate() error {
	if ds.Kind == "" {
		return ErrInvalidManifest{Field: "kind", Reason: "kind is required"}
	}

	if ds.Name == "" {
		return ErrInvalidManifest{Field: "name", Reason: "name is required"}
	}

	if ds.Source.ABI == "" {
		return ErrInvalidManifest{Field: "source.abi", Reason: "ABI is required"}
	}

	if len(ds.Mapping.EventHandlers) == 0 && len(ds.Mapping.CallHandlers) == 0 {
		return ErrInvalidManifest{Field: "mapping", Reason: "at least one event or call handler is required"}
	}

	for _, h := range ds.Mapping.EventHandlers {
		if h.Handler == "" {
			return ErrInvalidManifest{Field: "mapping.eventHandlers", Reason: "handler is required for " + h.Event}
		}
	}
	for _, h := range ds.Mapping.CallHandlers {
		if h.Handler == "" {
			return ErrInvalidManifest{Field: "mapping.callHandlers", Reason: "handler is required for " + h.Function}
		}
	}

	return nil
}

// DecodeContext copies the manifest context block into out, which should be
// a pointer to a struct with yaml tags.
func (m *Manifest) DecodeContext(out interface{}) error {
	if m.Context == nil {
		return nil
	}
	contextBytes, err := yaml.Marshal(m.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal context of %s: %w", m.Name, err)
	}
	if err := yaml.Unmarshal(contextBytes, out); err != nil {
		return fmt.Errorf("failed to parse context of %s: %w", m.Name, err)
	}
	return nil
}

// StartBlock returns the lowest start block across data sources.
func (m *Manifest) StartBlock() uint64 {
	var start uint64
	found := false
	for _, ds := range m.DataSources {
		if ds.Source.StartBlock == nil {
			continue
		}
		if !found || *ds.Source.StartBlock < start {
			start = *ds.Source.StartBlock
			found = true
		}
	}
	return start
}

// ErrInvalidManifest is returned when a manifest is invalid
type ErrInvalidManifest struct {
	Field  string
	Reason string
}

func (e ErrInvalidManifest) Error() string {
	return "invalid manifest field " + e.Field + ": " + e.Reason
}
