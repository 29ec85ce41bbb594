package core

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStateStore struct {
	mu     sync.Mutex
	states map[string]*ModuleState
}

func newMemStateStore() *memStateStore {
	return &memStateStore{states: make(map[string]*ModuleState)}
}

func (s *memStateStore) InitModuleState(_ context.Context, name, version string, startBlock uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[name]; ok {
		st.Version = version
		return nil
	}
	s.states[name] = &ModuleState{ModuleName: name, Version: version, Status: string(StatusActive)}
	return nil
}

func (s *memStateStore) GetModuleState(_ context.Context, name string) (*ModuleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[name]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *st
	return &cp, nil
}

func (s *memStateStore) SetModuleStatus(_ context.Context, name string, status ModuleStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[name].Status = string(status)
	return nil
}

func (s *memStateStore) SetModuleBlock(_ context.Context, name string, blockNumber uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[name].LastProcessedBlock = blockNumber
	return nil
}

func (s *memStateStore) SetBackfillRange(_ context.Context, name string, fromBlock, toBlock *uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[name].BackfillFromBlock = fromBlock
	s.states[name].BackfillToBlock = toBlock
	return nil
}

type stubModule struct {
	manifest   *Manifest
	startBlock uint64
	filters    []EventFilter
	calls      []CallFilter
	failWith   error

	mu        sync.Mutex
	events    []*types.Log
	handled   []*Call
	backfills [][2]uint64
}

func newStubModule(name string) *stubModule {
	addr := "0x0000000000000000000000000000000000000001"
	return &stubModule{manifest: &Manifest{
		Name:    name,
		Version: "1.0.0",
		DataSources: []DataSource{{
			Kind:   "ethereum/contract",
			Name:   name,
			Source: DataSourceSource{Address: &addr, ABI: "stub"},
			Mapping: DataSourceMapping{
				EventHandlers: []EventHandler{{Event: "Ping()", Handler: "handlePing"}},
			},
		}},
	}}
}

func (m *stubModule) Name() string { return m.manifest.Name }
func (m *stubModule) Version() string { return m.manifest.Version }
func (m *stubModule) Manifest() *Manifest { return m.manifest }
func (m *stubModule) Initialize(ctx context.Context) error { return nil }
func (m *stubModule) GetEventFilters() []EventFilter { return m.filters }
func (m *stubModule) GetCallFilters() []CallFilter { return m.calls }
func (m *stubModule) GetStartBlock() uint64 { return m.startBlock }

func (m *stubModule) HandleEvent(ctx context.Context, log *types.Log) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, log)
	return m.failWith
}

func (m *stubModule) HandleCall(ctx context.Context, call *Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handled = append(m.handled, call)
	return m.failWith
}

func (m *stubModule) Backfill(ctx context.Context, fromBlock, toBlock uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backfills = append(m.backfills, [2]uint64{fromBlock, toBlock})
	return m.failWith
}

func (m *stubModule) GetSyncState(ctx context.Context) (uint64, error) { return 0, nil }
func (m *stubModule) UpdateSyncState(ctx context.Context, blockNumber uint64) error { return nil }

var (
	augustusA   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	augustusB   = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	sharedTopic = common.HexToHash("0x1234")
)

func newTestRegistry(t *testing.T, modules ...*stubModule) (*ModuleRegistry, *memStateStore) {
	t.Helper()
	store := newMemStateStore()
	r := NewModuleRegistry(store, zerolog.Nop())
	for _, m := range modules {
		require.NoError(t, r.RegisterModule(m))
	}
	require.NoError(t, r.Start())
	t.Cleanup(func() { _ = r.Stop() })
	return r, store
}

func TestRegistryRoutesByAddressAndTopic(t *testing.T) {
	a := newStubModule("augustus-a")
	a.filters = []EventFilter{{Address: augustusA.Hex(), Topic0: sharedTopic.Hex()}}
	b := newStubModule("augustus-b")
	b.filters = []EventFilter{{Address: augustusB.Hex(), Topic0: sharedTopic.Hex()}}

	r, _ := newTestRegistry(t, a, b)

	require.NoError(t, r.ProcessEvent(context.Background(), &types.Log{
		Address: augustusA,
		Topics:  []common.Hash{sharedTopic},
	}))
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 0)

	require.NoError(t, r.ProcessEvent(context.Background(), &types.Log{
		Address: augustusB,
		Topics:  []common.Hash{common.HexToHash("0x9999")},
	}))
	assert.Len(t, b.events, 0)

	assert.Len(t, r.EventFilters(), 2)
	assert.Equal(t, []string{"augustus-a", "augustus-b"}, r.ListModules())
}

func TestRegistrySkipsBeforeStartBlock(t *testing.T) {
	m := newStubModule("late")
	m.startBlock = 100
	m.filters = []EventFilter{{Topic0: sharedTopic.Hex()}}
	r, _ := newTestRegistry(t, m)

	require.NoError(t, r.ProcessEvent(context.Background(), &types.Log{Topics: []common.Hash{sharedTopic}, BlockNumber: 99}))
	require.NoError(t, r.ProcessEvent(context.Background(), &types.Log{Topics: []common.Hash{sharedTopic}, BlockNumber: 100}))
	assert.Len(t, m.events, 1)
}

func TestRegistryMarksErroredModule(t *testing.T) {
	m := newStubModule("broken")
	m.filters = []EventFilter{{Topic0: sharedTopic.Hex()}}
	m.failWith = errors.New("db down")
	r, store := newTestRegistry(t, m)

	err := r.ProcessEvent(context.Background(), &types.Log{Topics: []common.Hash{sharedTopic}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.Equal(t, StatusError, r.ModuleStatus("broken"))
	assert.Equal(t, string(StatusError), store.states["broken"].Status)

	// errored modules are skipped until resumed
	require.NoError(t, r.ProcessEvent(context.Background(), &types.Log{Topics: []common.Hash{sharedTopic}}))
	assert.Len(t, m.events, 1)

	m.failWith = nil
	require.NoError(t, r.SetModuleStatus(context.Background(), "broken", StatusActive))
	require.NoError(t, r.ProcessEvent(context.Background(), &types.Log{Topics: []common.Hash{sharedTopic}}))
	assert.Len(t, m.events, 2)
}

func TestRegistryProcessCall(t *testing.T) {
	m := newStubModule("calls")
	m.calls = []CallFilter{{Address: augustusA.Hex(), Selector: "0xa9059cbb"}}
	r, _ := newTestRegistry(t, m)

	input := []byte{0xa9, 0x05, 0x9c, 0xbb, 0x00}
	require.NoError(t, r.ProcessCall(context.Background(), &Call{To: augustusA, Input: input}))
	require.NoError(t, r.ProcessCall(context.Background(), &Call{To: augustusB, Input: input}))
	require.NoError(t, r.ProcessCall(context.Background(), &Call{To: augustusA, Input: []byte{0xa9}}))
	assert.Len(t, m.handled, 1)
	assert.Equal(t, []CallFilter{{Address: "0x00000000000000000000000000000000000000aa", Selector: "0xa9059cbb"}}, r.CallFilters())
}

func TestRegistryIgnoresInputWhenStopped(t *testing.T) {
	m := newStubModule("idle")
	m.filters = []EventFilter{{Topic0: sharedTopic.Hex()}}
	store := newMemStateStore()
	r := NewModuleRegistry(store, zerolog.Nop())
	require.NoError(t, r.RegisterModule(m))

	require.NoError(t, r.ProcessEvent(context.Background(), &types.Log{Topics: []common.Hash{sharedTopic}}))
	assert.Empty(t, m.events)
}

func TestRegistryRejectsDuplicatesAndBadManifests(t *testing.T) {
	m := newStubModule("dup")
	r, _ := newTestRegistry(t, m)
	assert.Error(t, r.RegisterModule(newStubModule("dup")))

	bad := newStubModule("bad")
	bad.manifest.DataSources = nil
	assert.Error(t, r.RegisterModule(bad))

	require.NoError(t, r.UnregisterModule("dup"))
	assert.Error(t, r.UnregisterModule("dup"))
}

func TestRegistryBackfill(t *testing.T) {
	m := newStubModule("history")
	r, store := newTestRegistry(t, m)

	require.NoError(t, r.Backfill(context.Background(), "history", 10, 20))
	assert.Equal(t, [][2]uint64{{10, 20}}, m.backfills)
	assert.Equal(t, StatusActive, r.ModuleStatus("history"))
	assert.Nil(t, store.states["history"].BackfillFromBlock)

	m.failWith = errors.New("boom")
	assert.Error(t, r.Backfill(context.Background(), "history", 21, 30))
	assert.Equal(t, StatusError, r.ModuleStatus("history"))
	require.NotNil(t, store.states["history"].BackfillToBlock)
	assert.Equal(t, uint64(30), *store.states["history"].BackfillToBlock)

	assert.Error(t, r.Backfill(context.Background(), "missing", 0, 1))
}
