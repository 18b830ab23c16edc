package address

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive_Deterministic(t *testing.T) {
	d := NewDeriver(DefaultProgramID)
	owner := FromSeed("alice")

	assert.Equal(t, d.UserAccount(owner), d.UserAccount(owner))
	assert.Equal(t, d.Vault(), NewDeriver(DefaultProgramID).Vault())
}

func TestDerive_SeedBoundaries(t *testing.T) {
	p := DefaultProgramID

	a := Derive(p, []byte("ab"), []byte("c"))
	b := Derive(p, []byte("a"), []byte("bc"))
	c := Derive(p, []byte("abc"))

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, b, c)
}

func TestDerive_DistinctTags(t *testing.T) {
	d := NewDeriver(DefaultProgramID)
	alice := FromSeed("alice")
	bob := FromSeed("bob")
	market := d.Market(alice, bob, 1)

	seen := map[Address]string{}
	for name, addr := range map[string]Address{
		"user":     d.UserAccount(alice),
		"wallet":   d.Wallet(alice),
		"vault":    d.Vault(),
		"treasury": d.Treasury(),
		"market":   market,
		"market2":  d.Market(alice, bob, 2),
		"swapped":  d.Market(bob, alice, 1),
		"escrow":   d.MarketEscrow(market),
		"bet":      d.Bet(market, alice),
		"bet_bob":  d.Bet(market, bob),
	} {
		if prev, ok := seen[addr]; ok {
			t.Fatalf("%s collides with %s", name, prev)
		}
		seen[addr] = name
	}
}

func TestDerive_ProgramScoped(t *testing.T) {
	owner := FromSeed("alice")
	a := NewDeriver(FromSeed("program-a")).UserAccount(owner)
	b := NewDeriver(FromSeed("program-b")).UserAccount(owner)
	assert.NotEqual(t, a, b)
}

func TestAddress_RoundTrip(t *testing.T) {
	addr := FromSeed("carol")

	parsed, err := Parse(addr.String())
	require.NoError(t, err)
	assert.Equal(t, addr, parsed)

	data, err := json.Marshal(struct {
		Owner Address `json:"owner"`
	}{Owner: addr})
	require.NoError(t, err)
	assert.Contains(t, string(data), addr.String())
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse("0OIl")
	assert.Error(t, err)

	_, err = Parse("3mJr7AoUXx2Wqd")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expected 32 bytes")
}

func TestAddress_Scan(t *testing.T) {
	addr := FromSeed("dave")

	var scanned Address
	require.NoError(t, scanned.Scan(addr.String()))
	assert.Equal(t, addr, scanned)

	assert.Error(t, scanned.Scan(nil))
	assert.Error(t, scanned.Scan(42))
}
