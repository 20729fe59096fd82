package params

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[exchange]
chain_id = 5
protocol_fee_bps = 100
fee_receiver = "0x00000000000000000000000000000000000000fe"

[node]
api_addr = ":9090"

[[genesis]]
account = "0x00000000000000000000000000000000000000b1"
class = "WETH"
contract = "0x000000000000000000000000000000000000eeee"
value = "1000"

[[genesis]]
account = "0x00000000000000000000000000000000000000b2"
class = "ERC721"
contract = "0x0000000000000000000000000000000000000721"
token_id = "7"
`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, int64(5), cfg.Exchange.ChainID)
	require.Equal(t, uint64(100), cfg.Exchange.ProtocolFeeBps)
	require.Equal(t, common.HexToAddress("0xfe"), cfg.Exchange.FeeReceiverAddress())
	require.Equal(t, ":9090", cfg.Node.APIAddr)
	require.Len(t, cfg.Genesis, 2)
	require.Equal(t, "1000", cfg.Genesis[0].Value)
	require.Equal(t, "7", cfg.Genesis[1].TokenID)
	// untouched keys keep defaults
	require.Equal(t, "Exchange", cfg.Exchange.DomainName)
	require.Equal(t, "data/fills", cfg.Node.DataDir)
	require.NoError(t, cfg.Exchange.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("EXCHANGE_PROTOCOL_FEE_BPS", "250")
	t.Setenv("EXCHANGE_OWNER", "0x00000000000000000000000000000000000000aa")
	t.Setenv("NODE_DATA_DIR", "/tmp/fills")

	cfg := LoadFromEnv(Default(), filepath.Join(t.TempDir(), "missing.env"))
	require.Equal(t, uint64(250), cfg.Exchange.ProtocolFeeBps)
	require.Equal(t, common.HexToAddress("0xaa"), cfg.Exchange.OwnerAddress())
	require.Equal(t, "/tmp/fills", cfg.Node.DataDir)
}

func TestValidate(t *testing.T) {
	e := Default().Exchange
	e.ProtocolFeeBps = 10001
	require.Error(t, e.Validate())

	e = Default().Exchange
	e.FeeReceiver = "not-an-address"
	require.Error(t, e.Validate())
}

func TestDomain(t *testing.T) {
	d := Default().Exchange.Domain()
	require.Equal(t, "Exchange", d.Name)
	require.Equal(t, int64(1337), d.ChainID.Int64())
}
