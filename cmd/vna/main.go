/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Command vna is the Veena Notation Archive toolchain: lint, format and
// typeset .vna notation files, maintain a searchable local archive, talk
// to a shared archive backend, and host the editor integration service.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"vna/internal/archive"
	"vna/internal/backend"
	"vna/internal/config"
	"vna/internal/crash"
	"vna/internal/editor"
	"vna/internal/export"
	applog "vna/internal/log"
	"vna/internal/notation"
	"vna/internal/telemetry"
	"vna/internal/version"
	"vna/internal/watch"
)

// errIssues signals that issues were already printed; main exits 1
// without an extra error line.
var errIssues = errors.New("issues found")

var cli struct {
	Config string `help:"Config file path (overrides VNA_CONFIG)." type:"path"`

	Lint     LintCmd     `cmd:"" help:"Parse and validate notation files."`
	Validate ValidateCmd `cmd:"" help:"Validate a single notation file."`
	Format   FormatCmd   `cmd:"" help:"Render notation files in canonical form."`
	PDF      PDFCmd      `cmd:"" name:"pdf" help:"Typeset a notation file as a PDF sheet."`
	Info     InfoCmd     `cmd:"" help:"Show metadata and structure of a notation file."`
	Index    IndexCmd    `cmd:"" help:"Rebuild the archive search index."`
	Search   SearchCmd   `cmd:"" help:"Search the local or remote archive."`
	Serve    ServeCmd    `cmd:"" help:"Run the editor integration service."`
	Backend  BackendCmd  `cmd:"" help:"Run the shared archive backend server."`
	Push     PushCmd     `cmd:"" help:"Upload a composition to the shared archive."`
	Version  VersionCmd  `cmd:"" help:"Print version information."`
}

func main() {
	ktx := kong.Parse(&cli,
		kong.Name("vna"),
		kong.Description("Veena Notation Archive toolchain for Carnatic notation files."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	if cli.Config != "" {
		_ = os.Setenv(config.EnvConfigPath, cli.Config)
	}
	cfg, err := config.Load()
	if err != nil {
		ktx.FatalIfErrorf(err)
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	defer crash.Recover(cfg.Archive.Root)

	telemetry.Event("command", map[string]any{"name": ktx.Command()})
	err = ktx.Run(&cfg)
	telemetry.Flush(context.Background())
	if errors.Is(err, errIssues) {
		os.Exit(1)
	}
	ktx.FatalIfErrorf(err)
}

// expandPaths resolves the positional file arguments, defaulting to every
// .vna file in the working directory.
func expandPaths(args []string) ([]string, error) {
	if len(args) == 0 {
		matches, err := filepath.Glob("*.vna")
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, errors.New("no .vna files found")
		}
		sort.Strings(matches)
		return matches, nil
	}
	return args, nil
}

// checkFile parses and validates one file and prints its findings. It
// returns the number of error-severity findings (a parse failure counts
// as one).
func checkFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		return 1
	}
	doc, err := notation.Parse(string(data))
	if err != nil {
		if pe, ok := notation.AsParseError(err); ok {
			fmt.Printf("%s:%d: error: %s [%s]\n", path, pe.Line, pe.Message, pe.Kind)
		} else {
			fmt.Printf("%s: error: %v\n", path, err)
		}
		return 1
	}
	issues := notation.Validate(doc)
	errorCount := 0
	for _, is := range issues {
		if is.Severity == notation.SeverityError {
			errorCount++
		}
		fmt.Printf("%s:%d: %s: %s [%s]\n", path, is.Line, is.Severity, is.Message, is.Code)
	}
	return errorCount
}

type LintCmd struct {
	Paths []string `arg:"" optional:"" help:"Notation files (default: *.vna)." type:"path"`
	Fix   bool     `help:"Rewrite parseable files through the formatter."`
	Watch bool     `help:"Re-lint when watched files change."`
}

func (c *LintCmd) Run(cfg *config.AppConfig) error {
	paths, err := expandPaths(c.Paths)
	if err != nil {
		return err
	}

	lint := func(targets []string) int {
		errs := 0
		for _, p := range targets {
			errs += checkFile(p)
			if c.Fix {
				if err := rewriteFormatted(p); err != nil {
					fmt.Fprintf(os.Stderr, "%s: fix failed: %v\n", p, err)
				}
			}
		}
		if errs > 0 {
			fmt.Printf("%d error(s) across %d file(s)\n", errs, len(targets))
		} else {
			fmt.Printf("%d file(s) clean\n", len(targets))
		}
		return errs
	}

	errs := lint(paths)
	telemetry.LintRun(len(paths), errs)

	if c.Watch {
		w, err := watch.New(paths, watch.DefaultDebounce, func(changed []string) {
			fmt.Printf("-- change detected: %s\n", strings.Join(changed, ", "))
			lint(changed)
		})
		if err != nil {
			return err
		}
		defer w.Close()
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt)
		<-stop
		return nil
	}

	if errs > 0 {
		return errIssues
	}
	return nil
}

func rewriteFormatted(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc, err := notation.Parse(string(data))
	if err != nil {
		// unparseable files are reported by the lint pass; nothing to fix
		return nil
	}
	formatted := notation.Format(doc)
	if formatted == string(data) {
		return nil
	}
	return os.WriteFile(path, []byte(formatted), 0o644)
}

type ValidateCmd struct {
	File string `arg:"" help:"Notation file." type:"existingfile"`
}

func (c *ValidateCmd) Run(cfg *config.AppConfig) error {
	if checkFile(c.File) > 0 {
		return errIssues
	}
	fmt.Println("OK")
	return nil
}

type FormatCmd struct {
	Paths []string `arg:"" optional:"" help:"Notation files (default: *.vna)." type:"path"`
	Check bool     `help:"Exit non-zero when a file is not canonically formatted."`
	Write bool     `help:"Rewrite files in place instead of printing."`
}

func (c *FormatCmd) Run(cfg *config.AppConfig) error {
	paths, err := expandPaths(c.Paths)
	if err != nil {
		return err
	}
	dirty := 0
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		doc, err := notation.Parse(string(data))
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		formatted := notation.Format(doc)
		switch {
		case c.Check:
			if formatted != string(data) {
				fmt.Printf("%s: not formatted\n", p)
				dirty++
			}
		case c.Write:
			if formatted != string(data) {
				if err := os.WriteFile(p, []byte(formatted), 0o644); err != nil {
					return err
				}
				fmt.Printf("%s: rewritten\n", p)
			}
		default:
			fmt.Print(formatted)
		}
	}
	if dirty > 0 {
		return errIssues
	}
	return nil
}

type PDFCmd struct {
	File     string `arg:"" help:"Notation file." type:"existingfile"`
	Out      string `short:"o" help:"Output path (default: input with .pdf)." type:"path"`
	Preset   string `help:"Layout preset name or JSON file."`
	PageSize string `help:"Page size override (a4, letter)."`
	Grid     bool   `help:"Draw beat rules." default:"true" negatable:""`
}

func (c *PDFCmd) Run(cfg *config.AppConfig) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}
	doc, err := notation.Parse(string(data))
	if err != nil {
		return fmt.Errorf("%s: %w", c.File, err)
	}

	name := c.Preset
	if name == "" {
		name = cfg.Export.Preset
	}
	var preset export.Preset
	if strings.HasSuffix(name, ".json") {
		preset, err = export.LoadPreset(name)
	} else {
		preset, err = export.PresetByName(name)
	}
	if err != nil {
		return err
	}
	opt := preset.Options()
	if c.PageSize != "" {
		opt.PageSize = c.PageSize
	} else if cfg.Export.PageSize != "" && c.Preset == "" {
		opt.PageSize = cfg.Export.PageSize
	}
	opt.DrawBeatRules = c.Grid

	out := c.Out
	if out == "" {
		out = strings.TrimSuffix(c.File, filepath.Ext(c.File)) + ".pdf"
	}
	if err := export.WritePDF(doc, out, opt); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", out)
	return nil
}

type InfoCmd struct {
	File string `arg:"" help:"Notation file." type:"existingfile"`
}

func (c *InfoCmd) Run(cfg *config.AppConfig) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}
	doc, err := notation.Parse(string(data))
	if err != nil {
		return fmt.Errorf("%s: %w", c.File, err)
	}
	md := doc.Metadata
	fmt.Printf("Title:    %s\n", md.Title)
	fmt.Printf("Raga:     %s\n", md.Raga)
	tala := md.Tala
	if name, ok := notation.TalaName(md.Tala); ok {
		tala = fmt.Sprintf("%s (%s)", md.Tala, name)
	}
	fmt.Printf("Tala:     %s\n", tala)
	if md.Composer != "" {
		fmt.Printf("Composer: %s\n", md.Composer)
	}
	if md.Language != "" {
		fmt.Printf("Language: %s\n", md.Language)
	}
	if md.Tempo != nil {
		fmt.Printf("Tempo:    %d BPM\n", *md.Tempo)
	}
	fmt.Printf("Gati:     %d\n", doc.GatiFor(nil, nil))
	phrases := 0
	for i := range doc.Sections {
		phrases += len(doc.Sections[i].Phrases)
	}
	fmt.Printf("Sections: %d, Phrases: %d\n", len(doc.Sections), phrases)
	for i := range doc.Sections {
		sec := &doc.Sections[i]
		fmt.Printf("  [%s] %d phrase(s) (line %d)\n", sec.Name, len(sec.Phrases), sec.LineNumber)
	}
	return nil
}

type IndexCmd struct {
	Root string `arg:"" optional:"" help:"Archive root (default: configured root or cwd)." type:"path"`
}

func (c *IndexCmd) Run(cfg *config.AppConfig) error {
	root := c.Root
	if root == "" {
		root = cfg.Archive.Root
	}
	if root == "" {
		root = "."
	}
	ctx := context.Background()
	start := time.Now()
	stats, err := archive.Rebuild(ctx, root)
	if err != nil {
		return err
	}
	telemetry.IndexRebuild(stats.Indexed, stats.Failed, time.Since(start))
	fmt.Printf("indexed %d composition(s), %d parse failure(s)\n", stats.Indexed, stats.Failed)
	if stats.Failed > 0 {
		failures, err := archive.Failures(ctx, root)
		if err != nil {
			return err
		}
		for _, f := range failures {
			fmt.Printf("  %s:%d: %s\n", f.Path, f.Line, f.Message)
		}
	}
	return nil
}

type SearchCmd struct {
	Query    string `arg:"" optional:"" help:"Full-text query over titles, ragas, composers and lyrics."`
	Root     string `help:"Local archive root (default: configured root)." type:"path"`
	Remote   bool   `help:"Search the shared archive instead of the local index."`
	Raga     string `help:"Filter by raga."`
	Tala     string `help:"Filter by tala pattern."`
	Composer string `help:"Filter by composer."`
	Language string `help:"Filter by language."`
	Type     string `help:"Filter by composition type."`
	Limit    int    `help:"Maximum results." default:"100"`
}

func (c *SearchCmd) Run(cfg *config.AppConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Backend.Timeout())
	defer cancel()

	if c.Remote {
		client := backend.NewClient(cfg.Backend.BaseURL, config.LoadToken(), cfg.Backend.Timeout())
		hits, err := client.Search(ctx, backend.SearchParams{
			Text: c.Query, Raga: c.Raga, Tala: c.Tala, Composer: c.Composer,
			Language: c.Language, Type: c.Type, Limit: c.Limit,
		})
		if err != nil {
			return err
		}
		for _, h := range hits {
			printHit(h.Title, h.Raga, h.Tala, h.Composer, h.Path, h.Snippet)
		}
		fmt.Printf("%d result(s)\n", len(hits))
		return nil
	}

	root := c.Root
	if root == "" {
		root = cfg.Archive.Root
	}
	if root == "" {
		root = "."
	}
	results, err := archive.Search(ctx, root, archive.Query{
		Text: c.Query, Raga: c.Raga, Tala: c.Tala, Composer: c.Composer,
		Language: c.Language, Type: c.Type, Limit: c.Limit,
	})
	if err != nil {
		return err
	}
	for _, r := range results {
		printHit(r.Title, r.Raga, r.Tala, r.Composer, r.Path, r.Snippet)
	}
	fmt.Printf("%d result(s)\n", len(results))
	return nil
}

func printHit(title, raga, tala, composer, path, snippet string) {
	line := fmt.Sprintf("%s — %s, %s", title, raga, tala)
	if composer != "" {
		line += ", " + composer
	}
	fmt.Printf("%s\n    %s\n", line, path)
	if snippet != "" {
		fmt.Printf("    %s\n", snippet)
	}
}

type ServeCmd struct {
	Addr string `help:"Listen address (default: configured editor addr)."`
}

func (c *ServeCmd) Run(cfg *config.AppConfig) error {
	addr := c.Addr
	if addr == "" {
		addr = cfg.Editor.Addr
	}
	return editor.NewService().Serve(addr)
}

type BackendCmd struct{}

// Run starts the Postgres-backed shared archive server. Connection and
// listen settings come from VNA_PG_DSN and ADDR/PORT.
func (c *BackendCmd) Run(cfg *config.AppConfig) error {
	return backend.Start()
}

type PushCmd struct {
	File   string `arg:"" help:"Notation file." type:"existingfile"`
	Remote string `help:"Backend base URL (default: configured backend)."`
}

func (c *PushCmd) Run(cfg *config.AppConfig) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}
	doc, err := notation.Parse(string(data))
	if err != nil {
		return fmt.Errorf("%s: %w", c.File, err)
	}

	base := c.Remote
	if base == "" {
		base = cfg.Backend.BaseURL
	}
	token := config.LoadToken()
	if token == "" {
		return errors.New("no backend token stored; fetch one and run `vna` again")
	}

	phrases := 0
	for i := range doc.Sections {
		phrases += len(doc.Sections[i].Phrases)
	}
	comp := backend.Composition{
		Path:     filepath.Base(c.File),
		Title:    doc.Metadata.Title,
		Raga:     doc.Metadata.Raga,
		Tala:     doc.Metadata.Tala,
		Composer: doc.Metadata.Composer,
		Language: doc.Metadata.Language,
		Type:     doc.Metadata.CompositionType,
		Sections: len(doc.Sections),
		Phrases:  phrases,
		Source:   string(data),
	}
	if doc.Metadata.Tempo != nil {
		comp.Tempo = *doc.Metadata.Tempo
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Backend.Timeout())
	defer cancel()
	client := backend.NewClient(base, token, cfg.Backend.Timeout())
	res, err := client.Push(ctx, comp)
	if err != nil {
		return err
	}
	fmt.Printf("pushed %s (id %d, version %d)\n", res.StableID, res.ID, res.Version)
	return nil
}

type VersionCmd struct{}

func (c *VersionCmd) Run(cfg *config.AppConfig) error {
	fmt.Printf("vna %s\n", version.String())
	return nil
}
