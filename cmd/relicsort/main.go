// Command relicsort ranks three- or six-slot relic combinations for a
// vessel against a user-supplied wish list of desired and undesired
// effects.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/relicsort/engine/internal/aggregate"
	"github.com/relicsort/engine/internal/catalog"
	"github.com/relicsort/engine/internal/config"
	"github.com/relicsort/engine/internal/engineerr"
	"github.com/relicsort/engine/internal/inventory"
	"github.com/relicsort/engine/internal/log"
	"github.com/relicsort/engine/internal/monitor"
	"github.com/relicsort/engine/internal/resultdoc"
	"github.com/relicsort/engine/internal/spec"
	"github.com/relicsort/engine/internal/validate"
)

// candidatesUnset marks that --candidates was not given, so the
// mode-aware default from config.DefaultForMode survives instead of
// being clobbered by a single flat default (section 6).
const candidatesUnset = -1

type flags struct {
	input       string
	output      string
	character   string
	vessel      string
	deep        bool
	combined    bool
	color       string
	types       string
	effects     string
	effectsData string
	itemsData   string
	vesselsData string
	top         int
	candidates  int
	maxPairs    int
	monitorAddr string
}

func main() {
	loadEnvFile()
	log.Initialize()

	f := parseFlags()

	types := strings.Split(f.types, ",")
	mode := config.ModeSingleSide
	if f.combined {
		mode = config.ModeCombined
	}
	if f.color != "" {
		mode = config.ModeColorLegacy
	}

	cfg := config.FromEnv(config.DefaultForMode(mode))
	candidates := cfg.CandidatesPerSlot
	if f.candidates != candidatesUnset {
		candidates = f.candidates
	}
	// --top and --max-pairs override the environment only when given,
	// so their flag defaults do not mask RELICSORT_* values.
	explicit := map[string]bool{}
	flag.Visit(func(fl *flag.Flag) { explicit[fl.Name] = true })
	if explicit["top"] {
		cfg.TopN = f.top
	}
	if explicit["max-pairs"] {
		cfg.MaxPairs = f.maxPairs
	}
	if mode == config.ModeColorLegacy && f.candidates != candidatesUnset {
		cfg.LegacyCandidates = f.candidates
	}

	in := validate.Input{
		Character:  f.character,
		Color:      f.color,
		Combined:   f.combined,
		Deep:       f.deep,
		TopN:       cfg.TopN,
		Candidates: candidates,
		MaxPairs:   cfg.MaxPairs,
		Types:      types,
	}
	if err := validate.Validate(in); err != nil {
		fail(err)
	}

	cfg.CandidatesPerSlot = candidates
	cfg.UseDeep = f.deep
	if f.vessel != "" {
		cfg.VesselKeys = strings.Split(f.vessel, ",")
	}
	if resolved := validate.ResolveTypes(types); len(resolved) > 0 {
		cfg.Types = resolved
	}
	if err := cfg.Validate(); err != nil {
		fail(engineerr.NewInvalidInputError(err.Error()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var mon *monitor.Server
	g, gCtx := errgroup.WithContext(ctx)
	if f.monitorAddr != "" {
		mon = monitor.NewServer(f.monitorAddr)
		g.Go(func() error { return mon.Serve(gCtx) })
	}

	idx, err := catalog.LoadIndex(f.effectsData, f.itemsData, f.vesselsData)
	if err != nil {
		fail(err)
	}

	store, err := inventory.LoadInventory(f.input, idx)
	if err != nil {
		fail(err)
	}

	entries, err := spec.LoadEntries(f.effects)
	if err != nil {
		fail(err)
	}

	effectNames := buildEffectNames(store)
	include, exclude, err := spec.Resolver{}.Resolve(entries, idx, effectNames)
	if err != nil {
		fail(err)
	}

	progress := make(chan aggregate.Progress, 8)
	g.Go(func() error {
		for p := range progress {
			fmt.Printf("PROGRESS:%d/%d\n", p.Done, p.Total)
			log.Info("progress", "done", p.Done, "total", p.Total)
			if mon != nil {
				mon.Progress.Set(p.Done, p.Total, "enumerating")
			}
		}
		return nil
	})

	var counters *monitor.Counters
	if mon != nil {
		counters = mon.Counters
	}
	result, err := aggregate.Run(gCtx, idx, store, include, exclude, cfg, progress, counters)
	close(progress)
	if err != nil {
		fail(err)
	}

	doc := resultdoc.Build(result, idx, store, include, exclude, string(mode), cfg.TopN)

	outFile, err := os.Create(f.output)
	if err != nil {
		fail(engineerr.NewIOError("creating output file", err))
	}
	defer outFile.Close()

	if err := doc.WriteJSON(outFile); err != nil {
		fail(engineerr.NewIOError("writing result document", err))
	}

	stop()
	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Warn("background task error", "error", err.Error())
	}

	log.Info("run complete", "output", f.output, "global_results", len(result.Global))
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.input, "input", "", "path to relic inventory JSON (required)")
	flag.StringVar(&f.output, "output", "combinations.json", "result output path")
	flag.StringVar(&f.character, "character", "", "character identifier")
	flag.StringVar(&f.vessel, "vessel", "", "comma-separated vessel keys to restrict to")
	flag.BoolVar(&f.deep, "deep", false, "use deep-slot patterns in single-side mode")
	flag.BoolVar(&f.combined, "combined", false, "six-slot mode (ordinary triple + deep triple)")
	flag.StringVar(&f.color, "color", "", "legacy color-only mode, mutually exclusive with --character")
	flag.StringVar(&f.types, "types", "Relic", "comma-separated allowed item types")
	flag.StringVar(&f.effects, "effects", "", "path to spec file (JSON)")
	flag.StringVar(&f.effectsData, "effects-data", "effects.json", "path to effect catalog override")
	flag.StringVar(&f.itemsData, "items-data", "items.json", "path to item catalog override")
	flag.StringVar(&f.vesselsData, "vessels-data", "vessels.json", "path to vessels catalog override")
	flag.IntVar(&f.top, "top", 10, "N in top-N per vessel and globally")
	flag.IntVar(&f.candidates, "candidates", candidatesUnset, "candidates_per_slot cap (default: mode-dependent)")
	flag.IntVar(&f.maxPairs, "max-pairs", 500, "max pairs per side in combined mode")
	flag.StringVar(&f.monitorAddr, "monitor-addr", "", "optional host:port to expose /healthz, /progress, /metrics")
	flag.Parse()

	if f.input == "" {
		fail(engineerr.NewInvalidInputError("--input is required"))
	}
	if f.effects == "" {
		fail(engineerr.NewInvalidInputError("--effects is required"))
	}
	return f
}

func loadEnvFile() {
	for _, path := range []string{".env", ".env.local", "../.env"} {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}

// buildEffectNames collects each effect's localized names as observed
// on the player's own relics, since the effect catalog itself carries
// no localized text (section 6: names live on the inventory file's
// effect listings, not the reference catalogs).
func buildEffectNames(store *inventory.Store) map[int][2]string {
	out := make(map[int][2]string)
	for _, r := range store.All() {
		for _, eff := range r.Effects {
			if eff.EffectID < 0 {
				continue
			}
			if _, ok := out[eff.EffectID]; !ok {
				out[eff.EffectID] = [2]string{eff.NameEN, eff.NameJA}
			}
		}
	}
	return out
}

func fail(err error) {
	if ee, ok := err.(*engineerr.EngineError); ok {
		log.Error("fatal error", "kind", ee.Kind, "message", ee.Error())
		if ee.Fatal {
			os.Exit(1)
		}
		return
	}
	log.Error("fatal error", "message", err.Error())
	os.Exit(1)
}
