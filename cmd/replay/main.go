// Command replay runs a YAML scenario of blocks through an in-memory node
// and prints every block result and the final state as JSON.
//
//	replay -scenario scenario.yaml [-state]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/cypherlabdev/betting-node/internal/chain"
	"github.com/cypherlabdev/betting-node/internal/observability"
	"github.com/cypherlabdev/betting-node/internal/repository"
)

type scenario struct {
	Genesis chain.Genesis `yaml:"genesis"`
	Blocks  []chain.Block `yaml:"blocks"`
}

type report struct {
	Head   chain.BlockHead        `json:"head"`
	Blocks []*chain.BlockResult   `json:"blocks"`
	State  *repository.StoreState `json:"state,omitempty"`
}

func main() {
	scenarioPath := flag.String("scenario", "", "path to the scenario YAML file")
	withState := flag.Bool("state", false, "include the final store state in the output")
	verbose := flag.Bool("v", false, "log block processing to stderr")
	flag.Parse()

	if *scenarioPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	logger := zerolog.Nop()
	if *verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	f, err := os.Open(*scenarioPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open scenario: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	out, err := replay(context.Background(), f, *withState, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "encode report: %v\n", err)
		os.Exit(1)
	}
}

func replay(ctx context.Context, r io.Reader, withState bool, logger zerolog.Logger) (*report, error) {
	var sc scenario
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := sc.Genesis.Validate(); err != nil {
		return nil, err
	}

	metrics := observability.NewMetricsWithRegistry(prometheus.NewRegistry())
	store := repository.NewMemoryStore()
	node := chain.NewBettingNode(store, nil, metrics, logger)
	if err := node.InitGenesis(sc.Genesis); err != nil {
		return nil, err
	}

	out := &report{Blocks: make([]*chain.BlockResult, 0, len(sc.Blocks))}
	for i := range sc.Blocks {
		result, err := node.ApplyBlock(ctx, &sc.Blocks[i])
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", sc.Blocks[i].Height, err)
		}
		out.Blocks = append(out.Blocks, result)
	}

	out.Head = node.Head()
	if withState {
		out.State = store.Export()
	}
	return out, nil
}
