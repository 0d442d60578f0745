/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"tourdeck/internal/auth"
	"tourdeck/internal/blur"
	"tourdeck/internal/bundle"
	"tourdeck/internal/config"
	"tourdeck/internal/crash"
	"tourdeck/internal/domain"
	"tourdeck/internal/editor"
	"tourdeck/internal/export"
	"tourdeck/internal/httpapi"
	applog "tourdeck/internal/log"
	"tourdeck/internal/storage"
	"tourdeck/internal/telemetry"
	"tourdeck/internal/undo"
	"tourdeck/internal/version"
)

func usage() {
	fmt.Println("TourDeck travel proposal editor")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  tourdeck version|-v|--version                     Show version")
	fmt.Println("  tourdeck init <dir>                               Create a workspace with the default proposal")
	fmt.Println("  tourdeck pages <dir>                              List pages")
	fmt.Println("  tourdeck add <dir> <type> [title]                 Append a page")
	fmt.Println("  tourdeck dup <dir> <index>                        Duplicate a page")
	fmt.Println("  tourdeck rm <dir> <index>                         Remove a page")
	fmt.Println("  tourdeck move <dir> <from> <to>                   Move a page")
	fmt.Println("  tourdeck blur <dir> <index> <x1> <y1> <x2> <y2> <w> <h>")
	fmt.Println("                                                    Blur a dragged area of a w×h page")
	fmt.Println("  tourdeck export <dir>                             Write the full-site JSON export")
	fmt.Println("  tourdeck import <dir> <file>                      Replace the proposal from a full-site export")
	fmt.Println("  tourdeck export-page <dir> <index>                Write a single-page JSON export")
	fmt.Println("  tourdeck import-page <dir> <file>                 Insert a page from a single-page export")
	fmt.Println("  tourdeck pdf <dir> [preset]                       Render the proposal as PDF (" + strings.Join(export.PresetNames(), ", ") + ")")
	fmt.Println("  tourdeck bundle <dir>                             Zip the proposal with its local images")
	fmt.Println("  tourdeck unbundle <dir> <zip>                     Install a bundle's images and import its proposal")
	fmt.Println("  tourdeck reset <dir>                              Restore the default proposal")
	fmt.Println("  tourdeck passwd                                   Set the editor password (read from stdin)")
	fmt.Println("  tourdeck serve <dir> [addr]                       Serve the JSON API")
	fmt.Println()
	fmt.Println("Page types: " + strings.Join(pageTypeNames(), ", "))
}

func pageTypeNames() []string {
	var out []string
	for _, t := range domain.PageTypes() {
		out = append(out, string(t))
	}
	return out
}

// command is one CLI verb. minArgs counts arguments after the verb.
type command struct {
	minArgs int
	run     func(ctx context.Context, s *session, args []string) error
}

var commands = map[string]command{
	"init":        {1, runInit},
	"pages":       {1, runPages},
	"add":         {2, runAdd},
	"dup":         {2, runDup},
	"rm":          {2, runRemove},
	"move":        {3, runMove},
	"blur":        {7, runBlur},
	"export":      {1, runExport},
	"import":      {2, runImport},
	"export-page": {2, runExportPage},
	"import-page": {2, runImportPage},
	"pdf":         {1, runPDF},
	"bundle":      {1, runBundle},
	"unbundle":    {2, runUnbundle},
	"reset":       {1, runReset},
	"serve":       {1, runServe},
}

func main() {
	defer crash.Recover(nil)

	args := os.Args
	if len(args) < 2 {
		usage()
		return
	}
	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println(version.String())
		return
	case "help", "-h", "--help":
		usage()
		return
	case "passwd":
		cfg, _, err := config.Load()
		initLogging(cfg)
		if err != nil {
			fail(err)
		}
		if err := runPasswd(); err != nil {
			fail(err)
		}
		return
	}

	cmd, ok := commands[args[1]]
	if !ok {
		fmt.Printf("unknown command %q\n", args[1])
		usage()
		os.Exit(2)
	}
	rest := args[2:]
	if len(rest) < cmd.minArgs {
		fmt.Printf("%s requires %d argument(s)\n", args[1], cmd.minArgs)
		usage()
		os.Exit(2)
	}
	err := runInWorkspace(args[1], cmd, rest)
	telemetry.Event("command", map[string]any{"command": args[1], "ok": err == nil})
	telemetry.Shutdown()
	if err != nil {
		fail(err)
	}
}

func fail(err error) {
	applog.WithComponent("cli").Error("command failed", slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}

func initLogging(cfg config.AppConfig) {
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
}

// session is an open workspace with its editor.
type session struct {
	cfg config.AppConfig
	sec config.Secrets
	ws  *storage.Workspace
	ed  *editor.Editor
	l   *slog.Logger
}

func runInWorkspace(name string, cmd command, args []string) error {
	root, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	cfg, sec, err := config.LoadWorkspace(root)
	initLogging(cfg)
	if err != nil {
		return err
	}
	ctx := applog.ContextWithWorkspace(context.Background(), root)
	l := applog.WithOperation(applog.WithComponent("cli"), name)
	l.DebugContext(ctx, "open workspace", slog.String("backend", cfg.Storage.Backend))

	ws, err := storage.OpenWorkspace(ctx, root, storage.Options{
		Backend:       cfg.Storage.Backend,
		PostgresDSN:   cfg.Storage.PostgresDSN,
		RedisAddr:     cfg.Storage.RedisAddr,
		RedisPassword: sec.RedisPassword,
		RedisDB:       cfg.Storage.RedisDB,
		MaxBackups:    cfg.Storage.MaxBackups,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := ws.Close(); err != nil {
			l.ErrorContext(ctx, "close workspace failed", slog.Any("err", err))
		}
	}()
	defer crash.Recover(ws)

	ed, err := editor.New(ctx, ws.Store, editor.Options{
		DefaultsFile: cfg.General.DefaultsFile,
		History:      undo.Config{MaxDepth: cfg.General.HistoryDepth},
	})
	if err != nil {
		return err
	}
	return cmd.run(ctx, &session{cfg: cfg, sec: sec, ws: ws, ed: ed, l: l}, args[1:])
}

func atoi(name, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, v)
	}
	return n, nil
}

func atof(name, v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", name, v)
	}
	return f, nil
}

func printPages(ed *editor.Editor) {
	cur := ed.Pages.Current()
	for i, p := range ed.Pages.List() {
		mark := " "
		if i == cur {
			mark = "*"
		}
		ref := ""
		if idx, ok := p.AccommodationIndex(); ok {
			ref = fmt.Sprintf(" [accommodation %d]", idx)
		} else if day, ok := p.Day(); ok {
			ref = fmt.Sprintf(" [day %d]", day)
		} else if p.Fork() != nil {
			ref = " [own data]"
		}
		regions := ""
		if n := len(ed.Blur.RegionsFor(p.ID)); n > 0 {
			regions = fmt.Sprintf(" (%d blurred)", n)
		}
		fmt.Printf("%s%3d  %-22s %s%s%s\n", mark, i, p.Type, p.Title, ref, regions)
	}
}

func runInit(_ context.Context, s *session, _ []string) error {
	fmt.Println("Workspace ready at", s.ws.Root)
	fmt.Printf("Backend: %s, pages: %d\n", s.ws.Backend, s.ed.Pages.Len())
	return nil
}

func runPages(_ context.Context, s *session, _ []string) error {
	fmt.Printf("%s (%d pages)\n", s.ed.Docs.Get().Title, s.ed.Pages.Len())
	printPages(s.ed)
	return nil
}

func runAdd(ctx context.Context, s *session, args []string) error {
	pt, err := domain.ParsePageType(args[0])
	if err != nil {
		return err
	}
	title := strings.Join(args[1:], " ")
	p := s.ed.AddPage(ctx, pt, title, s.ed.Pages.Len())
	fmt.Printf("Added %s page %q at %d\n", p.Type, p.Title, s.ed.Pages.IndexOf(p.ID))
	return nil
}

func runDup(ctx context.Context, s *session, args []string) error {
	idx, err := atoi("index", args[0])
	if err != nil {
		return err
	}
	p, ok := s.ed.DuplicatePage(ctx, idx)
	if !ok {
		return fmt.Errorf("no page at index %d", idx)
	}
	fmt.Printf("Duplicated as %q at %d\n", p.Title, s.ed.Pages.IndexOf(p.ID))
	return nil
}

func runRemove(ctx context.Context, s *session, args []string) error {
	idx, err := atoi("index", args[0])
	if err != nil {
		return err
	}
	if idx < 0 || idx >= s.ed.Pages.Len() {
		return fmt.Errorf("no page at index %d", idx)
	}
	if !s.ed.RemovePage(ctx, idx) {
		return errors.New("the last page cannot be removed")
	}
	printPages(s.ed)
	return nil
}

func runMove(ctx context.Context, s *session, args []string) error {
	from, err := atoi("from", args[0])
	if err != nil {
		return err
	}
	to, err := atoi("to", args[1])
	if err != nil {
		return err
	}
	if !s.ed.MovePage(ctx, from, to) {
		return fmt.Errorf("cannot move page %d to %d", from, to)
	}
	printPages(s.ed)
	return nil
}

func runBlur(ctx context.Context, s *session, args []string) error {
	idx, err := atoi("index", args[0])
	if err != nil {
		return err
	}
	p, ok := s.ed.Pages.Get(idx)
	if !ok {
		return fmt.Errorf("no page at index %d", idx)
	}
	names := []string{"x1", "y1", "x2", "y2", "width", "height"}
	var v [6]float64
	for i, name := range names {
		if v[i], err = atof(name, args[i+1]); err != nil {
			return err
		}
	}
	reg, ok := s.ed.AddBlurDrag(ctx, p.ID, blur.Size{Width: v[4], Height: v[5]},
		blur.Point{X: v[0], Y: v[1]}, blur.Point{X: v[2], Y: v[3]})
	if !ok {
		return fmt.Errorf("drag too small: at least %dpx on each axis", blur.MinDragPx)
	}
	fmt.Printf("Blurred %.2f%%,%.2f%% %.2f%%×%.2f%% on %q (%s)\n", reg.X, reg.Y, reg.Width, reg.Height, p.Title, reg.ID)
	return nil
}

func writeExport(s *session, name string, b []byte) error {
	path := filepath.Join(s.ws.ExportsDir(), name)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Println("Wrote", path)
	return nil
}

func runExport(_ context.Context, s *session, _ []string) error {
	b, name, err := s.ed.ExportSite()
	if err != nil {
		return err
	}
	return writeExport(s, name, b)
}

func runImport(ctx context.Context, s *session, args []string) error {
	b, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	if err := s.ed.ImportSite(ctx, b); err != nil {
		return err
	}
	fmt.Println("Imported", args[0])
	printPages(s.ed)
	return nil
}

func runExportPage(_ context.Context, s *session, args []string) error {
	idx, err := atoi("index", args[0])
	if err != nil {
		return err
	}
	b, name, err := s.ed.ExportPage(idx)
	if err != nil {
		return err
	}
	return writeExport(s, name, b)
}

func runImportPage(ctx context.Context, s *session, args []string) error {
	b, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	p, err := s.ed.ImportPage(ctx, b)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %s page %q at %d\n", p.Type, p.Title, s.ed.Pages.IndexOf(p.ID))
	return nil
}

func runPDF(ctx context.Context, s *session, args []string) error {
	preset := s.cfg.Export.Preset
	if len(args) > 0 {
		preset = args[0]
	}
	if _, err := export.LookupPreset(preset); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.ws.ExportsDir(), ".pdf-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	name, err := s.ed.RenderPDF(ctx, tmp, export.PDFOptions{
		Preset:       export.PresetName(preset),
		AssetsDir:    s.ws.AssetsDir(),
		ImageTimeout: s.cfg.Export.ImageTimeout(),
	})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	out := filepath.Join(s.ws.ExportsDir(), name)
	if err := os.Rename(tmp.Name(), out); err != nil {
		return err
	}
	fmt.Println("Wrote", out)
	return nil
}

func runBundle(_ context.Context, s *session, _ []string) error {
	site, _, err := s.ed.ExportSite()
	if err != nil {
		return err
	}
	out := filepath.Join(s.ws.ExportsDir(), bundle.FileName(time.Now()))
	n, err := bundle.Create(out, site, s.ws.AssetsDir())
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d images)\n", out, n)
	return nil
}

func runUnbundle(ctx context.Context, s *session, args []string) error {
	site, n, err := bundle.Install(args[0], s.ws.AssetsDir())
	if err != nil {
		return err
	}
	if err := s.ed.ImportSite(ctx, site); err != nil {
		return err
	}
	fmt.Printf("Installed %d images and imported %s\n", n, args[0])
	printPages(s.ed)
	return nil
}

func runReset(ctx context.Context, s *session, _ []string) error {
	s.ed.Reset(ctx)
	fmt.Println("Restored the default proposal")
	printPages(s.ed)
	return nil
}

func runServe(ctx context.Context, s *session, args []string) error {
	addr := s.cfg.Server.Addr
	if len(args) > 0 {
		addr = args[0]
	}
	if s.sec.PasswordHash == "" {
		s.l.Warn("no editor password configured; the API is open (run tourdeck passwd)")
	}
	srv := httpapi.New(s.ed, httpapi.Config{
		PasswordHash: s.sec.PasswordHash,
		CORSOrigins:  s.cfg.Server.CORSOrigins,
		PDF: export.PDFOptions{
			Preset:       export.PresetName(s.cfg.Export.Preset),
			AssetsDir:    s.ws.AssetsDir(),
			ImageTimeout: s.cfg.Export.ImageTimeout(),
		},
	})
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	fmt.Printf("Serving %s on http://%s\n", s.ws.Root, addr)
	return srv.ListenAndServe(ctx, addr)
}

func runPasswd() error {
	fmt.Print("New editor password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return errors.New("empty password")
	}
	hash, err := auth.HashPassword(pw)
	if err != nil {
		return err
	}
	if err := config.SavePasswordHash(hash); err != nil {
		fmt.Println()
		fmt.Println("Could not store the hash in the OS keyring:", err)
		fmt.Printf("Set it through the environment instead:\n  %s='%s'\n", config.EnvPasswordHash, hash)
		return nil
	}
	fmt.Println()
	fmt.Println("Password stored in the OS keyring.")
	return nil
}
