package core

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// EventHandlerFunc is the function signature for event handlers
type EventHandlerFunc func(ctx context.Context, event *ParsedEvent) error

// CallHandlerFunc is the function signature for call handlers
type CallHandlerFunc func(ctx context.Context, call *ParsedCall) error

// ParsedEvent represents a decoded event log
type ParsedEvent struct {
	// Raw log data
	Log *types.Log

	// Event information
	EventName string
	Address   common.Address

	// Parsed event data
	Args map[string]interface{}

	// Transaction context
	TransactionHash  common.Hash
	TransactionIndex uint
	BlockNumber      uint64
	BlockHash        common.Hash
	LogIndex         uint

	// Additional context
	Timestamp *big.Int
}

// ParsedCall represents decoded call input
type ParsedCall struct {
	Call       *Call
	MethodName string
	Args       map[string]interface{}
}

// EventParser handles parsing of event logs and call input using ABI definitions
type EventParser struct {
	contracts map[common.Address]*abi.ABI
	events    map[common.Hash]*abi.Event // topic0 -> event
	methods   map[[4]byte]*abi.Method    // selector -> method
}

// NewEventParser creates a new event parser
func NewEventParser() *EventParser {
	return &EventParser{
		contracts: make(map[common.Address]*abi.ABI),
		events:    make(map[common.Hash]*abi.Event),
		methods:   make(map[[4]byte]*abi.Method),
	}
}

// AddContract adds a contract ABI for parsing
func (p *EventParser) AddContract(address common.Address, contractABI *abi.ABI) {
	p.contracts[address] = contractABI

	// Index events by topic hash
	for _, event := range contractABI.Events {
		p.events[event.ID] = &event
	}

	// Index methods by selector
	for _, method := range contractABI.Methods {
		var sel [4]byte
		copy(sel[:], method.ID)
		p.methods[sel] = &method
	}
}

// Event returns the ABI event registered for topic0.
func (p *EventParser) Event(topic common.Hash) (*abi.Event, bool) {
	ev, ok := p.events[topic]
	return ev, ok
}

// Method returns the ABI method registered for a selector.
func (p *EventParser) Method(selector [4]byte) (*abi.Method, bool) {
	m, ok := p.methods[selector]
	return m, ok
}

// ParseEvent parses a log into a ParsedEvent
func (p *EventParser) ParseEvent(log *types.Log) (*ParsedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, ErrInvalidEvent{Reason: "no topics in log"}
	}

	// Find the event by topic0 (event signature)
	eventABI, exists := p.events[log.Topics[0]]
	if !exists {
		return nil, ErrUnknownEvent{Topic: log.Topics[0].Hex()}
	}

	args := make(map[string]interface{})

	// Parse indexed parameters (topics[1:])
	topicIndex := 1 // Start from topics[1] since topics[0] is the event signature
	for _, input := range eventABI.Inputs {
		if !input.Indexed {
			continue
		}
		if topicIndex >= len(log.Topics) {
			return nil, ErrInvalidEvent{Reason: "missing indexed topic for " + eventABI.Name + "." + input.Name}
		}
		args[input.Name] = p.parseIndexedArg(log.Topics[topicIndex], input.Type)
		topicIndex++
	}

	// Parse non-indexed parameters (data field)
	nonIndexedInputs := eventABI.Inputs.NonIndexed()
	if len(nonIndexedInputs) > 0 {
		nonIndexedArgs, err := nonIndexedInputs.Unpack(log.Data)
		if err != nil {
			return nil, ErrEventParsing{Event: eventABI.Name, Err: err}
		}

		// Map non-indexed args to parameter names
		for i, input := range nonIndexedInputs {
			if i < len(nonIndexedArgs) {
				args[input.Name] = nonIndexedArgs[i]
			}
		}
	}

	return &ParsedEvent{
		Log:              log,
		EventName:        eventABI.Name,
		Address:          log.Address,
		Args:             args,
		TransactionHash:  log.TxHash,
		TransactionIndex: log.TxIndex,
		BlockNumber:      log.BlockNumber,
		BlockHash:        log.BlockHash,
		LogIndex:         log.Index,
	}, nil
}

// ParseCall decodes the input of a call into named arguments
func (p *EventParser) ParseCall(call *Call) (*ParsedCall, error) {
	sel, ok := call.Selector()
	if !ok {
		return nil, ErrInvalidCall{Reason: "input shorter than a selector"}
	}

	method, exists := p.methods[sel]
	if !exists {
		return nil, ErrUnknownMethod{Selector: "0x" + hex.EncodeToString(sel[:])}
	}

	args := make(map[string]interface{})
	if err := method.Inputs.UnpackIntoMap(args, call.Input[4:]); err != nil {
		return nil, ErrCallParsing{Method: method.RawName, Err: err}
	}

	return &ParsedCall{
		Call:       call,
		MethodName: method.RawName,
		Args:       args,
	}, nil
}

// parseIndexedArg converts a topic hash to the appropriate Go type
func (p *EventParser) parseIndexedArg(topic common.Hash, argType abi.Type) interface{} {
	switch argType.T {
	case abi.AddressTy:
		return common.BytesToAddress(topic.Bytes())
	case abi.IntTy, abi.UintTy:
		return new(big.Int).SetBytes(topic.Bytes())
	case abi.BoolTy:
		return topic.Big().Cmp(common.Big0) != 0
	case abi.BytesTy, abi.FixedBytesTy:
		return topic.Bytes()
	case abi.StringTy, abi.HashTy:
		return topic.Hex()
	default:
		// For complex types, return the raw hash
		return topic.Hex()
	}
}

// CanonicalSignature normalises a manifest signature such as
// "Swapped(address,indexed address,uint256)" into "Swapped(address,address,uint256)".
func CanonicalSignature(sig string) (string, error) {
	sig = strings.TrimSpace(sig)
	parenIdx := strings.Index(sig, "(")
	if parenIdx <= 0 || !strings.HasSuffix(sig, ")") {
		return "", ErrInvalidEventSignature{Signature: sig}
	}

	name := sig[:parenIdx]
	params := strings.TrimSpace(sig[parenIdx+1 : len(sig)-1])
	if params == "" {
		return name + "()", nil
	}

	typeNames, err := canonicalTypes(params)
	if err != nil {
		return "", ErrInvalidEventSignature{Signature: sig}
	}

	return name + "(" + strings.Join(typeNames, ",") + ")", nil
}

// canonicalTypes normalises a comma separated parameter list. Tuple
// parameters such as "(address,uint256)[]" are normalised component by
// component.
func canonicalTypes(params string) ([]string, error) {
	parts, err := splitTopLevel(params)
	if err != nil {
		return nil, err
	}

	typeNames := make([]string, 0, len(parts))
	for _, param := range parts {
		param = strings.TrimSpace(param)
		param = strings.TrimPrefix(param, "indexed ")

		if strings.HasPrefix(param, "(") {
			end := strings.LastIndex(param, ")")
			// Keep array brackets, drop a trailing parameter name
			rest, suffix := param[end+1:], ""
			switch {
			case strings.HasPrefix(rest, "["):
				suffix = strings.Fields(rest)[0]
			case rest != "" && rest[0] != ' ':
				return nil, fmt.Errorf("invalid tuple suffix %q", rest)
			}
			inner, err := canonicalTypes(param[1:end])
			if err != nil {
				return nil, err
			}
			typeNames = append(typeNames, "("+strings.Join(inner, ",")+")"+suffix)
			continue
		}

		// Drop parameter names ("uint256 amount")
		if fields := strings.Fields(param); len(fields) > 0 {
			param = fields[0]
		}
		argType, err := abi.NewType(param, "", nil)
		if err != nil {
			return nil, err
		}
		typeNames = append(typeNames, argType.String())
	}
	return typeNames, nil
}

// splitTopLevel splits on commas that are not nested inside parentheses
func splitTopLevel(params string) ([]string, error) {
	var parts []string
	depth, start := 0, 0
	for i, r := range params {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced parentheses in %q", params)
			}
		case ',':
			if depth == 0 {
				parts = append(parts, params[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses in %q", params)
	}
	return append(parts, params[start:]), nil
}

// EventTopic returns topic0 for an event signature
func EventTopic(sig string) (common.Hash, error) {
	canonical, err := CanonicalSignature(sig)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash([]byte(canonical)), nil
}

// MethodSelector returns the 4-byte selector for a method signature
func MethodSelector(sig string) ([4]byte, error) {
	var sel [4]byte
	canonical, err := CanonicalSignature(sig)
	if err != nil {
		return sel, err
	}
	copy(sel[:], crypto.Keccak256([]byte(canonical))[:4])
	return sel, nil
}

// Error types
type ErrInvalidEvent struct {
	Reason string
}

func (e ErrInvalidEvent) Error() string {
	return "invalid event: " + e.Reason
}

type ErrUnknownEvent struct {
	Topic string
}

func (e ErrUnknownEvent) Error() string {
	return "unknown event topic: " + e.Topic
}

type ErrEventParsing struct {
	Event string
	Err   error
}

func (e ErrEventParsing) Error() string {
	return "failed to parse event " + e.Event + ": " + e.Err.Error()
}

func (e ErrEventParsing) Unwrap() error { return e.Err }

type ErrInvalidEventSignature struct {
	Signature string
}

func (e ErrInvalidEventSignature) Error() string {
	return "invalid event signature: " + e.Signature
}

type ErrInvalidCall struct {
	Reason string
}

func (e ErrInvalidCall) Error() string {
	return "invalid call: " + e.Reason
}

type ErrUnknownMethod struct {
	Selector string
}

func (e ErrUnknownMethod) Error() string {
	return "unknown method selector: " + e.Selector
}

type ErrCallParsing struct {
	Method string
	Err    error
}

func (e ErrCallParsing) Error() string {
	return "failed to parse call " + e.Method + ": " + e.Err.Error()
}

func (e ErrCallParsing) Unwrap() error { return e.Err }
