package chain

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Validate checks the genesis can seed a working node
func (g Genesis) Validate() error {
	if g.Property.Moderator == "" {
		return errors.New("genesis moderator is required")
	}
	if g.Property.ResolveDelay <= 0 {
		return fmt.Errorf("genesis resolve_delay must be positive, got %s", g.Property.ResolveDelay)
	}
	if g.Property.MinBetStake <= 0 {
		return fmt.Errorf("genesis min_bet_stake must be positive, got %d", g.Property.MinBetStake)
	}
	for account, amount := range g.Accounts {
		if amount < 0 {
			return fmt.Errorf("genesis balance of %s is negative", account)
		}
	}
	return nil
}

// DecodeGenesis reads a YAML genesis document
func DecodeGenesis(r io.Reader) (Genesis, error) {
	var genesis Genesis
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&genesis); err != nil {
		return Genesis{}, fmt.Errorf("decode genesis: %w", err)
	}
	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}
	return genesis, nil
}

// LoadGenesis reads a YAML genesis file
func LoadGenesis(path string) (Genesis, error) {
	f, err := os.Open(path)
	if err != nil {
		return Genesis{}, fmt.Errorf("open genesis: %w", err)
	}
	defer f.Close()

	return DecodeGenesis(f)
}
