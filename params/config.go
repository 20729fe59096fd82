package params

import (
	"fmt"
	"math/big"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	hcrypto "github.com/uhyunpark/hyperswap/pkg/crypto"
)

// Exchange holds the administrator-set settlement parameters.
// Addresses are hex strings so the file and env forms stay readable.
type Exchange struct {
	DomainName         string `toml:"domain_name"`
	DomainVersion      string `toml:"domain_version"`
	ChainID            int64  `toml:"chain_id"`
	VerifyingContract  string `toml:"verifying_contract"`
	ProtocolFeeBps     uint64 `toml:"protocol_fee_bps"`
	FeeReceiver        string `toml:"fee_receiver"`
	AllowanceAuthority string `toml:"allowance_authority"`
	WrappedNative      string `toml:"wrapped_native"`
	Owner              string `toml:"owner"`
}

type Node struct {
	DataDir    string `toml:"data_dir"`
	APIAddr    string `toml:"api_addr"`
	LogFile    string `toml:"log_file"`
	RelayerKey string `toml:"relayer_key"`
	// RPCURL enables on-chain resolution of contract makers and royalties.
	// Empty means in-process registries only.
	RPCURL string `toml:"rpc_url"`
}

// Allocation seeds the node's in-process vault at startup. Class is ETH,
// WETH, ERC20 or ERC721; ERC721 allocations mint TokenID to Account.
type Allocation struct {
	Account  string `toml:"account"`
	Class    string `toml:"class"`
	Contract string `toml:"contract"`
	TokenID  string `toml:"token_id"`
	Value    string `toml:"value"`
}

type Config struct {
	Exchange Exchange     `toml:"exchange"`
	Node     Node         `toml:"node"`
	Genesis  []Allocation `toml:"genesis"`
}

func Default() Config {
	return Config{
		Exchange: Exchange{
			DomainName:     "Exchange",
			DomainVersion:  "2",
			ChainID:        1337,
			ProtocolFeeBps: 0,
		},
		Node: Node{
			DataDir: "data/fills",
			APIAddr: ":8080",
			LogFile: "logs/node.log",
		},
	}
}

// LoadFile reads a TOML config over the defaults
func LoadFile(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if _, err := toml.Decode(string(raw), &cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > base
func LoadFromEnv(base Config, envPath string) Config {
	cfg := base

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if fee := os.Getenv("EXCHANGE_PROTOCOL_FEE_BPS"); fee != "" {
		if bps, err := strconv.ParseUint(fee, 10, 64); err == nil {
			cfg.Exchange.ProtocolFeeBps = bps
		}
	}
	if id := os.Getenv("EXCHANGE_CHAIN_ID"); id != "" {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil {
			cfg.Exchange.ChainID = n
		}
	}
	cfg.Exchange.VerifyingContract = getEnv("EXCHANGE_VERIFYING_CONTRACT", cfg.Exchange.VerifyingContract)
	cfg.Exchange.FeeReceiver = getEnv("EXCHANGE_FEE_RECEIVER", cfg.Exchange.FeeReceiver)
	cfg.Exchange.AllowanceAuthority = getEnv("EXCHANGE_ALLOWANCE_AUTHORITY", cfg.Exchange.AllowanceAuthority)
	cfg.Exchange.WrappedNative = getEnv("EXCHANGE_WRAPPED_NATIVE", cfg.Exchange.WrappedNative)
	cfg.Exchange.Owner = getEnv("EXCHANGE_OWNER", cfg.Exchange.Owner)

	cfg.Node.DataDir = getEnv("NODE_DATA_DIR", cfg.Node.DataDir)
	cfg.Node.APIAddr = getEnv("NODE_API_ADDR", cfg.Node.APIAddr)
	cfg.Node.LogFile = getEnv("NODE_LOG_FILE", cfg.Node.LogFile)
	cfg.Node.RelayerKey = getEnv("NODE_RELAYER_KEY", cfg.Node.RelayerKey)
	cfg.Node.RPCURL = getEnv("NODE_RPC_URL", cfg.Node.RPCURL)

	return cfg
}

// Validate checks that every address field parses and the fee is in range
func (e Exchange) Validate() error {
	if e.ProtocolFeeBps > 10000 {
		return fmt.Errorf("protocol_fee_bps %d exceeds 10000", e.ProtocolFeeBps)
	}
	for name, v := range map[string]string{
		"verifying_contract":  e.VerifyingContract,
		"fee_receiver":        e.FeeReceiver,
		"allowance_authority": e.AllowanceAuthority,
		"wrapped_native":      e.WrappedNative,
		"owner":               e.Owner,
	} {
		if v != "" && !common.IsHexAddress(v) {
			return fmt.Errorf("%s: invalid address %q", name, v)
		}
	}
	return nil
}

// Domain returns the EIP-712 domain orders are signed under
func (e Exchange) Domain() hcrypto.EIP712Domain {
	return hcrypto.EIP712Domain{
		Name:              e.DomainName,
		Version:           e.DomainVersion,
		ChainID:           big.NewInt(e.ChainID),
		VerifyingContract: common.HexToAddress(e.VerifyingContract),
	}
}

func (e Exchange) FeeReceiverAddress() common.Address { return common.HexToAddress(e.FeeReceiver) }
func (e Exchange) AuthorityAddress() common.Address   { return common.HexToAddress(e.AllowanceAuthority) }
func (e Exchange) WrappedAddress() common.Address     { return common.HexToAddress(e.WrappedNative) }
func (e Exchange) OwnerAddress() common.Address       { return common.HexToAddress(e.Owner) }

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
