package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/uhyunpark/hyperswap/params"
	"github.com/uhyunpark/hyperswap/pkg/api"
	"github.com/uhyunpark/hyperswap/pkg/asset"
	"github.com/uhyunpark/hyperswap/pkg/auth"
	"github.com/uhyunpark/hyperswap/pkg/crypto"
	"github.com/uhyunpark/hyperswap/pkg/exchange"
	"github.com/uhyunpark/hyperswap/pkg/ledger"
	"github.com/uhyunpark/hyperswap/pkg/metrics"
	"github.com/uhyunpark/hyperswap/pkg/order"
	"github.com/uhyunpark/hyperswap/pkg/royalty"
	"github.com/uhyunpark/hyperswap/pkg/storage"
	"github.com/uhyunpark/hyperswap/pkg/transfer"
	"github.com/uhyunpark/hyperswap/pkg/util"
)

func main() {
	configPath := flag.String("config", "", "TOML config file (defaults when empty)")
	envPath := flag.String("env", "", ".env file (default: .env in current directory)")
	flag.Parse()

	// Load config: defaults < TOML file < .env < environment
	cfg := params.Default()
	if *configPath != "" {
		var err error
		if cfg, err = params.LoadFile(*configPath); err != nil {
			log.Fatalf("config: %v", err)
		}
	}
	cfg = params.LoadFromEnv(cfg, *envPath)

	// Setup logging (write to both console and file)
	logger, err := util.NewLoggerWithFile(util.LogFile{Path: cfg.Node.LogFile})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile)

	if err := cfg.Exchange.Validate(); err != nil {
		sugar.Fatalw("config_invalid", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Fill ledger ----
	store, err := storage.NewFillStore(cfg.Node.DataDir)
	if err != nil {
		sugar.Fatalw("fill_store_open_failed", "data_dir", cfg.Node.DataDir, "err", err)
	}
	defer store.Close()
	if n, err := store.Count(); err == nil {
		sugar.Infow("fill_store_opened", "data_dir", cfg.Node.DataDir, "records", n)
	}

	// ---- Relayer ----
	relayer, err := loadRelayer(cfg.Node.RelayerKey, sugar)
	if err != nil {
		sugar.Fatalw("relayer_key_invalid", "err", err)
	}

	// ---- Collaborators: in-process by default, chain-backed with an RPC URL ----
	var (
		resolver  auth.Resolver    = auth.NewStaticResolver()
		royalties royalty.Registry = royalty.NewMemoryRegistry()
	)
	if cfg.Node.RPCURL != "" {
		client, err := ethclient.DialContext(ctx, cfg.Node.RPCURL)
		if err != nil {
			sugar.Fatalw("rpc_dial_failed", "url", cfg.Node.RPCURL, "err", err)
		}
		defer client.Close()
		resolver = auth.NewChainResolver(client)
		royalties = royalty.NewChainRegistry(client)
		sugar.Infow("rpc_connected", "url", cfg.Node.RPCURL)
	}

	vault := transfer.NewVault()
	if err := seedVault(vault, cfg.Genesis); err != nil {
		sugar.Fatalw("genesis_invalid", "err", err)
	}
	sugar.Infow("vault_seeded", "allocations", len(cfg.Genesis))

	// ---- Exchange ----
	hasher, err := order.NewHasher(cfg.Exchange.Domain())
	if err != nil {
		sugar.Fatalw("domain_invalid", "err", err)
	}
	ex, err := exchange.New(
		common.HexToAddress(cfg.Exchange.VerifyingContract),
		exchange.Settings{
			ProtocolFeeBps:     cfg.Exchange.ProtocolFeeBps,
			FeeReceiver:        cfg.Exchange.FeeReceiverAddress(),
			AllowanceAuthority: cfg.Exchange.AuthorityAddress(),
			WrappedNative:      cfg.Exchange.WrappedAddress(),
			Owner:              cfg.Exchange.OwnerAddress(),
		},
		hasher,
		resolver,
		ledger.New(store),
		royalties,
		vault,
	)
	if err != nil {
		sugar.Fatalw("exchange_init_failed", "err", err)
	}
	collector := metrics.NewCollector("")
	ex.Metrics = collector
	ex.Logger = sugar

	sugar.Infow("node_starting",
		"chain_id", cfg.Exchange.ChainID,
		"exchange", ex.Address().Hex(),
		"relayer", relayer.Address().Hex(),
		"protocol_fee_bps", cfg.Exchange.ProtocolFeeBps)

	// ---- API Server ----
	apiServer := api.NewServer(ex, relayer.Address(), collector)
	apiServer.Logger = sugar
	if err := apiServer.Start(ctx, cfg.Node.APIAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Fatalw("api_server_failed", "err", err)
	}
	sugar.Info("node_stopped")
}

func loadRelayer(hexKey string, sugar *zap.SugaredLogger) (*crypto.Signer, error) {
	if hexKey != "" {
		return crypto.FromPrivateKeyHex(hexKey)
	}
	signer, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	sugar.Warnw("relayer_key_generated", "address", signer.Address().Hex())
	return signer, nil
}

// seedVault credits genesis allocations
func seedVault(v *transfer.Vault, allocs []params.Allocation) error {
	for i, a := range allocs {
		if !common.IsHexAddress(a.Account) {
			return fmt.Errorf("genesis[%d]: invalid account %q", i, a.Account)
		}
		account := common.HexToAddress(a.Account)
		value := a.Value
		if value == "" {
			value = "1"
		}
		as, err := api.AssetJSON{Class: a.Class, Contract: a.Contract, TokenID: a.TokenID, Value: value}.ToAsset()
		if err != nil {
			return fmt.Errorf("genesis[%d]: %w", i, err)
		}
		if as.Type.Class == asset.ERC721 {
			contract, id, err := as.Type.Token()
			if err != nil {
				return fmt.Errorf("genesis[%d]: %w", i, err)
			}
			v.Mint(contract, id, account)
			continue
		}
		if err := v.Deposit(as.Type, account, as.Value); err != nil {
			return fmt.Errorf("genesis[%d]: %w", i, err)
		}
	}
	return nil
}
