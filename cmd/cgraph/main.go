// Command cgraph builds a code knowledge graph for one repository and
// writes it to either the SQLite-backed online store or the offline
// binary index (spec.md 6, 7).
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cgraph/cgraph/internal/ignorefile"
	"github.com/cgraph/cgraph/internal/offlineindex"
	"github.com/cgraph/cgraph/internal/pipeline"
	"github.com/cgraph/cgraph/internal/store"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Println("cgraph", version)
		os.Exit(0)
	}
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		repoPath    string
		projectName string
		sinkKind    = "store"
		outPath     string
		ignorePath  string
		batchSize   int
		verbose     bool
	)
	var positional []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch a {
		case "--help", "-h":
			usage()
			return 0
		case "--sink":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "error: --sink requires a value (store|offline)")
				return 1
			}
			sinkKind = args[i]
		case "--project":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "error: --project requires a value")
				return 1
			}
			projectName = args[i]
		case "--out":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "error: --out requires a value")
				return 1
			}
			outPath = args[i]
		case "--ignore-file":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "error: --ignore-file requires a value")
				return 1
			}
			ignorePath = args[i]
		case "--batch-size":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "error: --batch-size requires a value")
				return 1
			}
			if _, err := fmt.Sscanf(args[i], "%d", &batchSize); err != nil {
				fmt.Fprintf(os.Stderr, "error: invalid --batch-size %q\n", args[i])
				return 1
			}
		case "--verbose":
			verbose = true
		default:
			positional = append(positional, a)
		}
	}

	if len(positional) == 0 {
		usage()
		return 1
	}
	repoPath = positional[0]

	absRepo, err := filepath.Abs(repoPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: resolve repo path: %v\n", err)
		return 1
	}

	if verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	rules := ignorefile.Empty()
	if ignorePath != "" {
		loaded, err := ignorefile.Load(ignorePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: load ignore file: %v\n", err)
			return 1
		}
		rules = loaded
	} else if defaultPath := filepath.Join(absRepo, ".cgrignore"); fileExists(defaultPath) {
		loaded, err := ignorefile.Load(defaultPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: load .cgrignore: %v\n", err)
			return 1
		}
		rules = loaded
	}

	if projectName == "" {
		projectName = pipeline.ProjectNameFromPath(absRepo)
	}

	ctx := context.Background()

	var result *pipeline.Result
	switch sinkKind {
	case "store":
		dbPath := outPath
		var s *store.Store
		var err error
		if dbPath == "" {
			s, err = store.Open(projectName)
		} else {
			s, err = store.OpenPath(dbPath)
		}
		if err != nil {
			log.Fatalf("open store: %v", err)
		}
		defer s.Close(ctx)
		if err := s.UseProject(projectName, absRepo); err != nil {
			log.Fatalf("use project: %v", err)
		}
		p := pipeline.New(s, pipeline.RunConfig{
			RepoPath:    absRepo,
			ProjectName: projectName,
			Ignore:      rules,
			BatchSize:   batchSize,
		})
		result, err = p.Run(ctx)
		if err != nil {
			log.Fatalf("run: %v", err)
		}
		fmt.Printf("graph written to %s\n", s.DBPath())

	case "offline":
		if outPath == "" {
			outPath = projectName + ".cgix"
		}
		w, err := offlineindex.NewWriter(outPath)
		if err != nil {
			log.Fatalf("open offline index: %v", err)
		}
		ix := offlineindex.NewIngestor(w, projectName)
		p := pipeline.New(ix, pipeline.RunConfig{
			RepoPath:    absRepo,
			ProjectName: projectName,
			Ignore:      rules,
			BatchSize:   batchSize,
		})
		result, err = p.Run(ctx)
		if err != nil {
			log.Fatalf("run: %v", err)
		}
		if err := ix.Close(ctx); err != nil {
			log.Fatalf("close offline index: %v", err)
		}
		fmt.Printf("graph written to %s\n", outPath)

	default:
		fmt.Fprintf(os.Stderr, "error: unknown --sink %q (want store|offline)\n", sinkKind)
		return 1
	}

	printSummary(result)
	if len(result.Errors) > 0 {
		return 1
	}
	return 0
}

func printSummary(r *pipeline.Result) {
	fmt.Printf("files walked:  %d\n", r.FilesWalked)
	fmt.Printf("files parsed:  %d\n", r.FilesParsed)
	fmt.Printf("nodes written: %d\n", r.NodeCount)
	fmt.Printf("edges written: %d\n", r.EdgeCount)
	fmt.Printf("duration:      %s\n", r.Duration)
	if n := len(r.Errors); n > 0 {
		fmt.Printf("errors:        %d (non-fatal; see --verbose for detail)\n", n)
		for i, e := range r.Errors {
			if i >= 10 {
				fmt.Printf("  ... and %d more\n", n-10)
				break
			}
			fmt.Printf("  - %v\n", e)
		}
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: cgraph [flags] <repo-path>\n\n")
	fmt.Fprintf(os.Stderr, "Flags:\n")
	fmt.Fprintf(os.Stderr, "  --sink store|offline   backend to write to (default store)\n")
	fmt.Fprintf(os.Stderr, "  --project NAME         project name (default derived from repo path)\n")
	fmt.Fprintf(os.Stderr, "  --out PATH             db path (store) or container path (offline)\n")
	fmt.Fprintf(os.Stderr, "  --ignore-file PATH     ignore rules (default <repo>/.cgrignore if present)\n")
	fmt.Fprintf(os.Stderr, "  --batch-size N         ingestor flush batch size\n")
	fmt.Fprintf(os.Stderr, "  --verbose              debug-level logging\n")
	fmt.Fprintf(os.Stderr, "  --version              print version and exit\n")
}
