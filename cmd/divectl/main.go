package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"example.com/divelog/internal/archive"
	"example.com/divelog/internal/common"
	"example.com/divelog/internal/dict"
	"example.com/divelog/internal/export"
	"example.com/divelog/internal/report"
	"example.com/divelog/internal/shearwater"
	"example.com/divelog/internal/synth"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	cmd := os.Args[1]
	switch cmd {
	case "info":
		infoCmd(os.Args[2:])
	case "samples":
		samplesCmd(os.Args[2:])
	case "report":
		reportCmd(os.Args[2:])
	case "archive":
		archiveCmd(os.Args[2:])
	case "batch":
		batchCmd(os.Args[2:])
	case "generate":
		generateCmd(os.Args[2:])
	case "version":
		fmt.Printf("divectl %s (built %s)\n", version, buildDate)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("divectl commands:")
	fmt.Println("  info     --in <divelog> --model <n> --serial <n> [--dict models.json] [--json out.json]")
	fmt.Println("  samples  --in <divelog> --model <n> --serial <n> [--out samples.ndjson]")
	fmt.Println("  report   --in <divelog> --model <n> --serial <n> --out report.pdf [--lang en|de]")
	fmt.Println("  archive  put|list|get ...")
	fmt.Println("  batch    --in <dir> --out-dir <dir> --model <n> --serial <n> [--jobs n]")
	fmt.Println("  generate --out <divelog> [--layout native|petrel|predator] [--samples n]")
	fmt.Println("  version")
}

// decodeFlags is the flag trio shared by every command that reads a dive
// log from disk.
type decodeFlags struct {
	in     *string
	model  *uint
	serial *uint
	dict   *string
}

func addDecodeFlags(fs *flag.FlagSet) decodeFlags {
	return decodeFlags{
		in:     fs.String("in", "", "dive log file"),
		model:  fs.Uint("model", 3, "hardware model number"),
		serial: fs.Uint("serial", 0, "device serial number"),
		dict:   fs.String("dict", "", "model dictionary JSON (optional)"),
	}
}

func (d decodeFlags) open() (*shearwater.Parser, *dict.Store, []byte, error) {
	if *d.in == "" {
		return nil, nil, nil, fmt.Errorf("required: --in")
	}
	models, err := dict.EnsureLoaded(*d.dict)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load dictionary: %w", err)
	}
	data, err := os.ReadFile(*d.in)
	if err != nil {
		return nil, nil, nil, err
	}
	p, err := newParser(data, uint32(*d.model), uint32(*d.serial), models)
	if err != nil {
		return nil, nil, nil, err
	}
	return p, models, data, nil
}

func newParser(data []byte, model, serial uint32, models *dict.Store) (*shearwater.Parser, error) {
	if models.Petrel(model) {
		return shearwater.NewPetrel(data, model, serial)
	}
	return shearwater.NewPredator(data, model, serial)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func infoCmd(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	df := addDecodeFlags(fs)
	jsonOut := fs.String("json", "", "write the summary as JSON instead of text")
	fs.Parse(args)

	p, models, data, err := df.open()
	if err != nil {
		fatalf("info: %v", err)
	}
	sum, err := export.Summarize(p, models, data)
	if err != nil {
		fatalf("decode %s: %v", *df.in, err)
	}

	if *jsonOut != "" {
		if err := report.SaveSummaryJSON(sum, *jsonOut); err != nil {
			fatalf("write %s: %v", *jsonOut, err)
		}
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Computer:\t%s (model %d)\n", sum.Product, sum.Model)
	fmt.Fprintf(w, "Serial:\t%s\n", sum.Serial)
	fmt.Fprintf(w, "Layout:\t%s (log version %d)\n", sum.Layout, sum.LogVersion)
	fmt.Fprintf(w, "Start:\t%s\n", sum.Start.Format(time.RFC1123))
	fmt.Fprintf(w, "Duration:\t%s\n", time.Duration(sum.Duration)*time.Second)
	fmt.Fprintf(w, "Max depth:\t%.1f m\n", sum.MaxDepth)
	fmt.Fprintf(w, "Mode:\t%s\n", sum.Mode)
	fmt.Fprintf(w, "Water:\t%s (%.0f kg/m3)\n", sum.WaterType, sum.Density)
	fmt.Fprintf(w, "Samples:\t%d\n", sum.SampleCount)
	for i, mix := range sum.GasMixes {
		fmt.Fprintf(w, "Gas %d:\tO2 %.0f%% He %.0f%% N2 %.0f%%\n",
			i, mix.Oxygen*100, mix.Helium*100, mix.Nitrogen*100)
	}
	for _, m := range sum.Metadata {
		fmt.Fprintf(w, "%s:\t%s\n", m.Desc, m.Value)
	}
	fmt.Fprintf(w, "Fingerprint:\t%s\n", sum.Fingerprint)
	w.Flush()
}

func samplesCmd(args []string) {
	fs := flag.NewFlagSet("samples", flag.ExitOnError)
	df := addDecodeFlags(fs)
	out := fs.String("out", "", "output file (default stdout)")
	fs.Parse(args)

	p, _, _, err := df.open()
	if err != nil {
		fatalf("samples: %v", err)
	}

	dst := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fatalf("create %s: %v", *out, err)
		}
		defer f.Close()
		dst = f
	}
	count, err := export.StreamSamples(dst, p)
	if err != nil {
		fatalf("decode %s: %v", *df.in, err)
	}
	if *out != "" {
		common.Logf("wrote %d samples to %s", count, *out)
	}
}

func reportCmd(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	df := addDecodeFlags(fs)
	out := fs.String("out", "report.pdf", "output PDF")
	lang := fs.String("lang", "en", "report language")
	summaryJSON := fs.String("summary-json", "", "also write the summary as JSON")
	fs.Parse(args)

	language, err := report.ParseLanguage(*lang)
	if err != nil {
		fatalf("report: %v", err)
	}
	p, models, data, err := df.open()
	if err != nil {
		fatalf("report: %v", err)
	}
	sum, err := export.Summarize(p, models, data)
	if err != nil {
		fatalf("decode %s: %v", *df.in, err)
	}
	if err := report.SaveDivePDF(sum, *out, language); err != nil {
		fatalf("write %s: %v", *out, err)
	}
	if *summaryJSON != "" {
		if err := report.SaveSummaryJSON(sum, *summaryJSON); err != nil {
			fatalf("write %s: %v", *summaryJSON, err)
		}
	}
	common.Logf("wrote %s", *out)
}

func archiveCmd(args []string) {
	if len(args) == 0 {
		archiveUsage()
		os.Exit(1)
	}
	switch args[0] {
	case "put":
		archivePutCmd(args[1:])
	case "list":
		archiveListCmd(args[1:])
	case "get":
		archiveGetCmd(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown archive subcommand %q\n", args[0])
		archiveUsage()
		os.Exit(1)
	}
}

func archiveUsage() {
	fmt.Println("archive commands:")
	fmt.Println("  put  --db <dir> --in <divelog> --model <n> --serial <n>")
	fmt.Println("  list --db <dir> [--limit n]")
	fmt.Println("  get  --db <dir> --id <dive id>")
}

func openArchive(path string) *archive.Store {
	if path == "" {
		fatalf("required: --db")
	}
	store, err := archive.Open(path)
	if err != nil {
		fatalf("open archive: %v", err)
	}
	return store
}

func archivePutCmd(args []string) {
	fs := flag.NewFlagSet("archive put", flag.ExitOnError)
	df := addDecodeFlags(fs)
	db := fs.String("db", "", "archive directory")
	fs.Parse(args)

	p, models, data, err := df.open()
	if err != nil {
		fatalf("archive put: %v", err)
	}
	sum, err := export.Summarize(p, models, data)
	if err != nil {
		fatalf("decode %s: %v", *df.in, err)
	}

	store := openArchive(*db)
	defer store.Close()
	id, created, err := store.Put(sum)
	if err != nil {
		fatalf("archive put: %v", err)
	}
	if created {
		fmt.Printf("archived %s as %s\n", *df.in, id)
	} else {
		fmt.Printf("already archived as %s\n", id)
	}
}

func archiveListCmd(args []string) {
	fs := flag.NewFlagSet("archive list", flag.ExitOnError)
	db := fs.String("db", "", "archive directory")
	limit := fs.Int("limit", 0, "maximum entries (0 for all)")
	fs.Parse(args)

	store := openArchive(*db)
	defer store.Close()
	dives, err := store.List(*limit)
	if err != nil {
		fatalf("archive list: %v", err)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tComputer\tStart\tDuration\tMax depth")
	for _, d := range dives {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f m\n",
			d.ID, d.Summary.Product,
			d.Summary.Start.Format("2006-01-02 15:04"),
			time.Duration(d.Summary.Duration)*time.Second,
			d.Summary.MaxDepth)
	}
	w.Flush()
}

func archiveGetCmd(args []string) {
	fs := flag.NewFlagSet("archive get", flag.ExitOnError)
	db := fs.String("db", "", "archive directory")
	id := fs.String("id", "", "dive id")
	fs.Parse(args)
	if *id == "" {
		fatalf("required: --id")
	}

	store := openArchive(*db)
	defer store.Close()
	sum, err := store.Get(*id)
	if err != nil {
		fatalf("archive get: %v", err)
	}
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		fatalf("archive get: %v", err)
	}
	os.Stdout.Write(append(data, '\n'))
}

func batchCmd(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	inDir := fs.String("in", ".", "input directory")
	outDir := fs.String("out-dir", "out", "results directory")
	model := fs.Uint("model", 3, "hardware model number")
	serial := fs.Uint("serial", 0, "device serial number")
	dictPath := fs.String("dict", "", "model dictionary JSON (optional)")
	jobs := fs.Int("jobs", 4, "concurrent decodes")
	fs.Parse(args)

	models, err := dict.EnsureLoaded(*dictPath)
	if err != nil {
		fatalf("load dictionary: %v", err)
	}
	inputs, err := collectDiveLogs(*inDir)
	if err != nil {
		fatalf("batch: %v", err)
	}
	if len(inputs) == 0 {
		fatalf("batch: no dive logs under %s", *inDir)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fatalf("batch: %v", err)
	}

	metrics := common.NewMetrics()
	metrics.Start()

	var g errgroup.Group
	g.SetLimit(*jobs)
	outputs := make([][]string, len(inputs))
	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			files, err := decodeOne(input, *outDir, uint32(*model), uint32(*serial), models, metrics)
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			outputs[i] = files
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fatalf("batch: %v", err)
	}
	metrics.Stop()

	var all []string
	for _, files := range outputs {
		all = append(all, files...)
	}
	sort.Strings(all)
	manifest, err := export.BuildManifest(all)
	if err != nil {
		fatalf("batch manifest: %v", err)
	}
	manifestPath := filepath.Join(*outDir, "manifest.json")
	if err := export.SaveManifest(manifest, manifestPath); err != nil {
		fatalf("batch manifest: %v", err)
	}

	snap := metrics.Snapshot()
	common.Logf("decoded %d dives, %d samples, %s in %s (%.1f KiB/s)",
		snap.Dives, snap.Samples, common.FormatBytes(snap.Bytes),
		snap.Duration.Round(time.Millisecond), snap.ThroughputBytesPerSecond()/1024)
	fmt.Printf("wrote %s (%d items, run %s)\n", manifestPath, len(manifest.Items), manifest.RunID)
}

func collectDiveLogs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".bin") || strings.HasSuffix(name, ".dump") || strings.HasSuffix(name, ".swlog") {
			out = append(out, filepath.Join(dir, name))
		}
	}
	sort.Strings(out)
	return out, nil
}

func decodeOne(input, outDir string, model, serial uint32, models *dict.Store, metrics *common.Metrics) ([]string, error) {
	data, err := os.ReadFile(input)
	if err != nil {
		return nil, err
	}
	p, err := newParser(data, model, serial, models)
	if err != nil {
		return nil, err
	}
	sum, err := export.Summarize(p, models, data)
	if err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	summaryPath := filepath.Join(outDir, base+".json")
	if err := report.SaveSummaryJSON(sum, summaryPath); err != nil {
		return nil, err
	}

	samplesPath := filepath.Join(outDir, base+".ndjson")
	f, err := os.Create(samplesPath)
	if err != nil {
		return nil, err
	}
	if _, err := export.StreamSamples(f, p); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	metrics.AddDive(int64(len(data)))
	metrics.AddSamples(int64(sum.SampleCount))
	return []string{summaryPath, samplesPath}, nil
}

func generateCmd(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	out := fs.String("out", "dive.bin", "output file")
	layout := fs.String("layout", "native", "dive log layout: native, petrel or predator")
	samples := fs.Int("samples", 60, "number of dive samples")
	start := fs.Int64("start", 1500000000, "dive start, epoch seconds")
	imperial := fs.Bool("imperial", false, "record imperial display units")
	fs.Parse(args)

	if *samples < 1 {
		fatalf("generate: --samples must be positive")
	}
	bottom := *samples / 2
	header := synth.Header{
		Start:       uint32(*start),
		Imperial:    *imperial,
		DiveTimeRaw: uint32(*samples * 10),  // seconds
		MaxDepthRaw: uint16(bottom * 10),    // tenths
	}

	var data []byte
	switch *layout {
	case "native":
		b := synth.NewPNF(header)
		for _, s := range profileSamples(*samples) {
			b.AddSample(s)
		}
		data = b.Bytes()
	case "petrel", "predator":
		// The legacy footer stores minutes and whole display units.
		header.DiveTimeRaw = uint32(*samples) / 6
		header.MaxDepthRaw = uint16(bottom)
		var b *synth.Legacy
		if *layout == "petrel" {
			b = synth.NewLegacyPetrel(header)
		} else {
			b = synth.NewLegacyPredator(header)
		}
		for _, s := range profileSamples(*samples) {
			b.AddSample(s)
		}
		data = b.Bytes()
	default:
		fatalf("generate: unknown layout %q", *layout)
	}

	if err := os.WriteFile(*out, data, 0o644); err != nil {
		fatalf("write %s: %v", *out, err)
	}
	fmt.Printf("wrote %s (%s, %d samples, %s)\n", *out, *layout, *samples, common.FormatBytes(int64(len(data))))
}

// profileSamples builds a simple descend-bottom-ascend depth profile with a
// gas switch at the halfway point.
func profileSamples(n int) []synth.Sample {
	out := make([]synth.Sample, 0, n)
	bottom := n / 2
	for i := 0; i < n; i++ {
		s := synth.NewSample()
		switch {
		case i < bottom:
			s.DepthRaw = uint16((i + 1) * 10)
		default:
			s.DepthRaw = uint16((n - i) * 10)
		}
		s.Temperature = 19
		if i >= bottom {
			s.O2 = 50 // switch to the deco mix on the way up
		}
		out = append(out, s)
	}
	return out
}
