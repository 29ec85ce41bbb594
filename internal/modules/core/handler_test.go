package core

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const erc20ABI = `[
	{"anonymous":false,"inputs":[
		{"indexed":true,"name":"from","type":"address"},
		{"indexed":true,"name":"to","type":"address"},
		{"indexed":false,"name":"value","type":"uint256"}
	],"name":"Transfer","type":"event"},
	{"inputs":[
		{"name":"to","type":"address"},
		{"name":"amount","type":"uint256"}
	],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

func loadERC20(t *testing.T) *abi.ABI {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	require.NoError(t, err)
	return &parsed
}

func TestEventTopicAndSelector(t *testing.T) {
	topic, err := EventTopic("Transfer(indexed address,indexed address,uint256)")
	require.NoError(t, err)
	assert.Equal(t, "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef", topic.Hex())

	// parameter names are dropped
	named, err := EventTopic("Transfer(address indexed from, address indexed to, uint256 value)")
	require.NoError(t, err)
	assert.Equal(t, topic, named)

	sel, err := MethodSelector("transfer(address,uint256)")
	require.NoError(t, err)
	assert.Equal(t, [4]byte{0xa9, 0x05, 0x9c, 0xbb}, sel)

	canonical, err := CanonicalSignature("swapOnUniswap(uint256,uint256,address[])")
	require.NoError(t, err)
	assert.Equal(t, "swapOnUniswap(uint256,uint256,address[])", canonical)

	tuple, err := CanonicalSignature("swap((address to, uint256 amount, (bytes32,uint256)[] legs) data, bool)")
	require.NoError(t, err)
	assert.Equal(t, "swap((address,uint256,(bytes32,uint256)[]),bool)", tuple)

	for _, bad := range []string{"Transfer", "(address)", "Transfer(address", "Transfer(notatype)", "swap((address,uint256)", "swap((address)x)"} {
		_, err := EventTopic(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseEvent(t *testing.T) {
	erc20 := loadERC20(t)
	token := common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")

	data, err := erc20.Events["Transfer"].Inputs.NonIndexed().Pack(big.NewInt(12345))
	require.NoError(t, err)

	parser := NewEventParser()
	parser.AddContract(token, erc20)

	log := &types.Log{
		Address: token,
		Topics: []common.Hash{
			erc20.Events["Transfer"].ID,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data:        data,
		BlockNumber: 42,
		TxHash:      common.HexToHash("0xabc"),
		Index:       3,
	}

	pe, err := parser.ParseEvent(log)
	require.NoError(t, err)
	assert.Equal(t, "Transfer", pe.EventName)
	assert.Equal(t, from, pe.Args["from"])
	assert.Equal(t, to, pe.Args["to"])
	assert.Equal(t, big.NewInt(12345), pe.Args["value"])
	assert.Equal(t, uint64(42), pe.BlockNumber)
	assert.Equal(t, uint(3), pe.LogIndex)

	t.Run("unknown topic", func(t *testing.T) {
		_, err := parser.ParseEvent(&types.Log{Topics: []common.Hash{common.HexToHash("0x01")}})
		var unknown ErrUnknownEvent
		assert.ErrorAs(t, err, &unknown)
	})

	t.Run("missing indexed topic", func(t *testing.T) {
		short := *log
		short.Topics = log.Topics[:2]
		_, err := parser.ParseEvent(&short)
		var invalid ErrInvalidEvent
		assert.ErrorAs(t, err, &invalid)
	})

	t.Run("truncated data", func(t *testing.T) {
		bad := *log
		bad.Data = data[:10]
		_, err := parser.ParseEvent(&bad)
		var parsing ErrEventParsing
		assert.ErrorAs(t, err, &parsing)
	})

	t.Run("no topics", func(t *testing.T) {
		_, err := parser.ParseEvent(&types.Log{})
		assert.Error(t, err)
	})
}

func TestParseCall(t *testing.T) {
	erc20 := loadERC20(t)
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")

	input, err := erc20.Pack("transfer", to, big.NewInt(99))
	require.NoError(t, err)

	parser := NewEventParser()
	parser.AddContract(common.Address{}, erc20)

	pc, err := parser.ParseCall(&Call{Input: input})
	require.NoError(t, err)
	assert.Equal(t, "transfer", pc.MethodName)
	assert.Equal(t, to, pc.Args["to"])
	assert.Equal(t, big.NewInt(99), pc.Args["amount"])

	_, err = parser.ParseCall(&Call{Input: []byte{0x01}})
	var invalid ErrInvalidCall
	assert.ErrorAs(t, err, &invalid)

	_, err = parser.ParseCall(&Call{Input: []byte{0xde, 0xad, 0xbe, 0xef}})
	var unknown ErrUnknownMethod
	assert.ErrorAs(t, err, &unknown)
	assert.Contains(t, err.Error(), "0xdeadbeef")

	_, err = parser.ParseCall(&Call{Input: input[:20]})
	var parsing ErrCallParsing
	assert.ErrorAs(t, err, &parsing)
}
