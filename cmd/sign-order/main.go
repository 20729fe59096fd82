package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/fatih/color"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/hyperswap/params"
	"github.com/uhyunpark/hyperswap/pkg/api"
	"github.com/uhyunpark/hyperswap/pkg/crypto"
	"github.com/uhyunpark/hyperswap/pkg/order"
)

var (
	title = color.New(color.FgCyan, color.Bold).SprintFunc()
	good  = color.New(color.FgGreen).SprintFunc()
	bad   = color.New(color.FgRed, color.Bold).SprintFunc()
)

// side describes one asset of the order on the command line
type side struct {
	class, contract, tokenID, amount string
	decimals                         int
}

func (s *side) register(prefix string) {
	flag.StringVar(&s.class, prefix+"-class", "", "asset class: ETH, WETH, ERC20, ERC721")
	flag.StringVar(&s.contract, prefix+"-contract", "", "token contract")
	flag.StringVar(&s.tokenID, prefix+"-token", "", "ERC721 token id")
	flag.StringVar(&s.amount, prefix+"-amount", "1", "amount in whole units")
	flag.IntVar(&s.decimals, prefix+"-decimals", 18, "decimals of the fungible token")
}

func (s *side) asset() (api.AssetJSON, error) {
	a := api.AssetJSON{Class: strings.ToUpper(s.class), Contract: s.contract, TokenID: s.tokenID, Value: "1"}
	if a.Class != "ERC721" {
		v, err := toBaseUnits(s.amount, s.decimals)
		if err != nil {
			return api.AssetJSON{}, err
		}
		a.Value = v
	}
	return a, nil
}

// toBaseUnits converts a human amount such as "1.5" to integer base units
func toBaseUnits(amount string, decimals int) (string, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "", fmt.Errorf("amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("amount %q is negative", amount)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return "", fmt.Errorf("amount %q has more than %d decimals", amount, decimals)
	}
	if _, overflow := uint256.FromBig(scaled.BigInt()); overflow {
		return "", fmt.Errorf("amount %q overflows uint256", amount)
	}
	return scaled.BigInt().String(), nil
}

// output is what the tool prints: a signed order ready for /api/v1/match
type output struct {
	Hash   string              `json:"hash"`
	Signed api.SignedOrderJSON `json:"signed"`
}

func main() {
	var makeSide, takeSide side
	makeSide.register("make")
	takeSide.register("take")
	configPath := flag.String("config", "", "node TOML config providing the EIP-712 domain")
	keyHex := flag.String("key", "", "maker private key (hex); generated when empty")
	authorityHex := flag.String("authority-key", "", "allowance authority private key (hex); no allowance when empty")
	ttl := flag.Duration("allowance-ttl", 5*time.Minute, "match allowance lifetime")
	taker := flag.String("taker", "", "restrict the order to one counter-party")
	salt := flag.String("salt", "", "order salt; random when empty, 0 for self-submitted orders")
	end := flag.Uint64("end", 0, "expiry (unix seconds), 0 = none")
	flag.Parse()

	if err := run(makeSide, takeSide, *configPath, *keyHex, *authorityHex, *ttl, *taker, *salt, *end); err != nil {
		fmt.Fprintln(os.Stderr, bad("Error:"), err)
		os.Exit(1)
	}
}

func run(makeSide, takeSide side, configPath, keyHex, authorityHex string, ttl time.Duration, taker, salt string, end uint64) error {
	cfg := params.Default()
	if configPath != "" {
		var err error
		if cfg, err = params.LoadFile(configPath); err != nil {
			return err
		}
	}

	// Step 1: Generate or load key
	var (
		signer *crypto.Signer
		err    error
	)
	if keyHex != "" {
		signer, err = crypto.FromPrivateKeyHex(keyHex)
	} else {
		signer, err = crypto.GenerateKey()
		if err == nil {
			fmt.Fprintln(os.Stderr, title("Generated maker key"))
			fmt.Fprintf(os.Stderr, "  Address: %s\n", signer.Address().Hex())
			fmt.Fprintf(os.Stderr, "  Private Key: %s (KEEP SECRET!)\n\n", signer.PrivateKeyHex())
		}
	}
	if err != nil {
		return err
	}

	// Step 2: Build order
	if salt == "" {
		s, err := crypto.GenerateSalt()
		if err != nil {
			return err
		}
		salt = s.Dec()
	}
	makeAsset, err := makeSide.asset()
	if err != nil {
		return fmt.Errorf("make: %w", err)
	}
	takeAsset, err := takeSide.asset()
	if err != nil {
		return fmt.Errorf("take: %w", err)
	}
	oj := api.OrderJSON{
		Maker:     signer.Address().Hex(),
		MakeAsset: makeAsset,
		Taker:     taker,
		TakeAsset: takeAsset,
		Salt:      salt,
		End:       end,
	}
	o, err := oj.ToOrder()
	if err != nil {
		return err
	}

	// Step 3: Sign with EIP-712
	hasher, err := order.NewHasher(cfg.Exchange.Domain())
	if err != nil {
		return err
	}
	hash := hasher.Hash(o)
	out := output{Hash: hash.Hex(), Signed: api.SignedOrderJSON{Order: oj}}
	if !o.SelfSubmitted() {
		sig, err := signer.Sign(hash)
		if err != nil {
			return fmt.Errorf("sign order: %w", err)
		}
		out.Signed.Signature = hexutil.Encode(sig)
		if crypto.VerifySignature(signer.Address(), hash, sig) {
			fmt.Fprintln(os.Stderr, good("✓ Signature VALID"))
		} else {
			return fmt.Errorf("signature does not recover to maker")
		}
	}

	// Step 4: Optional match allowance
	if authorityHex != "" {
		authority, err := crypto.FromPrivateKeyHex(authorityHex)
		if err != nil {
			return fmt.Errorf("authority key: %w", err)
		}
		expiry := uint64(time.Now().Add(ttl).Unix())
		sig, err := authority.Sign(hasher.AllowanceHash(order.MatchAllowance{OrderHash: hash, ExpirationTime: expiry}))
		if err != nil {
			return fmt.Errorf("sign allowance: %w", err)
		}
		out.Signed.AllowanceExpiry = expiry
		out.Signed.AllowanceSignature = hexutil.Encode(sig)
		fmt.Fprintf(os.Stderr, "%s expires %s\n", good("✓ Allowance signed"), time.Unix(int64(expiry), 0).UTC().Format(time.RFC3339))
	}

	// Step 5: Print JSON for POST /api/v1/match
	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, title("Signed order"))
	fmt.Println(string(raw))
	return nil
}
