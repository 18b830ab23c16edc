package address

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// Seed tags for every derived account kind
const (
	SeedUser              = "user"
	SeedVault             = "vault"
	SeedTreasury          = "treasury"
	SeedWallet            = "wallet"
	SeedMarket            = "market"
	SeedMarketEscrowVault = "market_escrow_vault"
	SeedBet               = "bet"
)

const derivationMarker = "ProgramDerivedAddress"

// DefaultProgramID is used when no program ID is configured
var DefaultProgramID = FromSeed("skillstreak_program")

// FromSeed hashes an arbitrary string into an address. Handy for fixtures.
func FromSeed(seed string) Address {
	var a Address
	sum := sha3.Sum256([]byte(seed))
	copy(a[:], sum[:])
	return a
}

// Derive computes the address owned by program for the given seeds.
// Each seed is length-prefixed, so ("ab", "c") and ("a", "bc") never collide.
func Derive(program Address, seeds ...[]byte) Address {
	h := sha3.New256()
	var prefix [4]byte
	for _, seed := range seeds {
		binary.BigEndian.PutUint32(prefix[:], uint32(len(seed)))
		h.Write(prefix[:])
		h.Write(seed)
	}
	h.Write(program[:])
	h.Write([]byte(derivationMarker))

	var out Address
	copy(out[:], h.Sum(nil))
	return out
}

// Deriver derives every account address for one program
type Deriver struct {
	program Address
}

// NewDeriver creates a deriver bound to a program ID
func NewDeriver(program Address) *Deriver {
	return &Deriver{program: program}
}

// Program returns the program ID; program-owned token accounts use it as owner
func (d *Deriver) Program() Address {
	return d.program
}

// UserAccount returns the staking record address for an owner
func (d *Deriver) UserAccount(owner Address) Address {
	return Derive(d.program, []byte(SeedUser), owner[:])
}

// Vault returns the global staking vault address
func (d *Deriver) Vault() Address {
	return Derive(d.program, []byte(SeedVault))
}

// Treasury returns the fee sink address
func (d *Deriver) Treasury() Address {
	return Derive(d.program, []byte(SeedTreasury))
}

// Wallet returns the token account an owner spends from and is paid into
func (d *Deriver) Wallet(owner Address) Address {
	return Derive(d.program, []byte(SeedWallet), owner[:])
}

// Market returns the address of a market created by creator about subject
func (d *Deriver) Market(creator, subject Address, nonce uint64) Address {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], nonce)
	return Derive(d.program, []byte(SeedMarket), creator[:], subject[:], n[:])
}

// MarketEscrow returns the escrow vault holding a market's pooled bets
func (d *Deriver) MarketEscrow(market Address) Address {
	return Derive(d.program, []byte(SeedMarketEscrowVault), market[:])
}

// Bet returns the bet record address for a bettor on a market
func (d *Deriver) Bet(market, bettor Address) Address {
	return Derive(d.program, []byte(SeedBet), market[:], bettor[:])
}
