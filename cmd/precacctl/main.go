package main

/*------------------------------------------------------------------
 *
 * Purpose:	Operator front-end for the zero-CAC pre-CAC engine: enable,
 *		disable, override the CAC timeout, and dump the pre-CAC
 *		forest state for a single simulated radio.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/doismellburning/precacd/internal/config"
	"github.com/doismellburning/precacd/internal/dfsengine"
)

func main() {
	var (
		enable        = pflag.BoolP("enable", "e", false, "Enable pre-CAC on startup.")
		agile         = pflag.BoolP("agile", "g", false, "Use agile pre-CAC instead of legacy.")
		overrideSec   = pflag.IntP("override-timeout", "o", -1, "Override CAC timeout in seconds. -1 for regulatory default.")
		printList     = pflag.BoolP("print", "p", false, "Print the pre-CAC forest state and exit.")
		channelsFile  = pflag.StringP("channels-file", "c", "", "Path to a channels.yaml regulatory table. Empty uses the built-in search list.")
		verbose       = pflag.BoolP("verbose", "v", false, "Enable debug logging.")
		help          = pflag.BoolP("help", "h", false, "Display help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - operator front-end for the pre-CAC engine.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nUsage: precacctl [options]\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(1)
	}

	logger := log.Default()
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	table, err := loadTable(*channelsFile)
	if err != nil {
		logger.Error("loading channel table", "err", err)
		os.Exit(1)
	}

	domain := &dfsengine.StaticDomain{Domain: dfsengine.DomainETSI, Channels: table.DFSChannels()}

	ctx := context.Background()

	forest, err := dfsengine.NewForest(ctx, domain, logger)
	if err != nil {
		logger.Error("building forest", "err", err)
		os.Exit(1)
	}

	engine := dfsengine.NewEngine(dfsengine.EngineConfig{ //nolint:exhaustruct
		Forest:        forest,
		Regulatory:    domain,
		Logger:        logger,
		LegacyCapable: !*agile,
		AgileCapable:  *agile,
	})

	engine.OverridePrecacTimeout(int32(*overrideSec)) //nolint:gosec

	if *enable {
		if err := engine.SetPrecacEnable(ctx, true); err != nil {
			logger.Error("enabling pre-CAC", "err", err)
			os.Exit(1)
		}
	}

	if *printList {
		for _, line := range engine.PrintPrecacLists() {
			fmt.Println(line)
		}
	}
}

func loadTable(path string) (*config.RegulatoryTable, error) {
	if path == "" {
		return config.Load()
	}

	fp, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer fp.Close()

	return config.Parse(fp)
}
