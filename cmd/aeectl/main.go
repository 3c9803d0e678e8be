// Command aeectl drives a single anti-entropy exchange between two
// in-memory replicas and reports the resulting repair set, the way the
// teacher repo's single-purpose cmd/ binaries wire a handful of packages
// together behind a cobra command and a viper-loaded config.
package main

import (
	"crypto/rand"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/meshkv/aee/exchange"
	"github.com/meshkv/aee/hashtree"
	"github.com/meshkv/aee/transport/local"
	"github.com/meshkv/aee/vclock"
)

var (
	cfgFile    string
	logLevel   string
	blueKeys   int
	pinkKeys   int
	divergence int
	replicaID  string
)

func init() {
	runCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML/JSON config file overriding exchange defaults")
	runCmd.PersistentFlags().StringVar(&logLevel, "level", "info", "logging level")
	runCmd.PersistentFlags().IntVar(&blueKeys, "blue-keys", 2000, "number of keys to seed into the blue replica")
	runCmd.PersistentFlags().IntVar(&pinkKeys, "pink-keys", 2000, "number of keys shared with the blue replica before diverging")
	runCmd.PersistentFlags().IntVar(&divergence, "divergent-keys", 5, "number of additional keys present only on the pink replica")
	runCmd.PersistentFlags().StringVar(&replicaID, "replica-id", "aeectl", "replica identifier ticked into seeded write clocks")
}

var rootCmd = &cobra.Command{
	Use:   "aeectl",
	Short: "drive an anti-entropy exchange against two in-memory replicas",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "seed two diverging replicas and run one exchange to completion",
	RunE:  runExchange,
}

func main() {
	rootCmd.AddCommand(runCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (exchange.Config, error) {
	cfg := exchange.DefaultConfig()
	if cfgFile == "" {
		return cfg, nil
	}
	v := viper.New()
	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("aeectl: reading config: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("aeectl: decoding config: %w", err)
	}
	return cfg, nil
}

func newLogger() (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(strings.ToLower(logLevel))
	if err != nil {
		return nil, fmt.Errorf("aeectl: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	return zcfg.Build()
}

func runExchange(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	blueStore, pinkStore := seedReplicas()

	tree := hashtree.Ops{}
	blueReplica := local.NewReplica(tree, local.VNode{Name: "blue-0", Store: blueStore})
	pinkReplica := local.NewReplica(tree, local.VNode{Name: "pink-0", Store: pinkStore})

	done := make(chan struct{})
	var repairSet []exchange.KeyClock
	var terminal exchange.Phase

	// ex is assigned once Start returns; the Target closures below don't
	// read it until a reply actually arrives, by which time Start has
	// returned and ex holds its final value.
	var ex *exchange.Exchange
	reply := func(colour exchange.Colour, result exchange.Result) { ex.Reply(colour, result) }
	blueTarget := blueReplica.Target(reply, exchange.Preflist{"blue-0"})
	pinkTarget := pinkReplica.Target(reply, exchange.Preflist{"pink-0"})

	ex, err = exchange.Start(
		[]exchange.Target{blueTarget},
		[]exchange.Target{pinkTarget},
		tree,
		func(rs []exchange.KeyClock) { repairSet = rs },
		func(p exchange.Phase) { terminal = p; close(done) },
		exchange.WithConfig(cfg),
		exchange.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	budget := time.Duration(cfg.ScanTimeoutMS)*time.Millisecond*2 + time.Duration(cfg.CacheTimeoutMS)*time.Millisecond*4
	select {
	case <-done:
	case <-time.After(budget):
		return fmt.Errorf("aeectl: exchange did not complete in time")
	}

	fmt.Printf("terminal phase: %s\n", terminal)
	fmt.Printf("repair set size: %d\n", len(repairSet))
	for _, kc := range repairSet {
		fmt.Printf("  key=%q clock=%s\n", kc.Key, kc.Clock)
	}
	return nil
}

func seedReplicas() (*local.MapStore, *local.MapStore) {
	blue := local.NewMapStore()
	pink := local.NewMapStore()

	clock := vclock.New().Tick(replicaID)

	shared := pinkKeys
	if shared > blueKeys {
		shared = blueKeys
	}
	for i := 0; i < shared; i++ {
		key := []byte(fmt.Sprintf("key-%06d", i))
		val := randomValue()
		blue.Put(key, val, clock)
		pink.Put(key, val, clock)
	}
	for i := shared; i < blueKeys; i++ {
		key := []byte(fmt.Sprintf("key-%06d", i))
		blue.Put(key, randomValue(), clock)
	}
	for i := 0; i < divergence; i++ {
		key := []byte(fmt.Sprintf("divergent-%06d", i))
		pink.Put(key, randomValue(), clock.Tick(replicaID))
	}
	return blue, pink
}

func randomValue() []byte {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return buf
}
