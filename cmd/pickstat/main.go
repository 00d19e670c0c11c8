// Command pickstat summarizes picking files without the desktop UI and can
// store them as a session or render a PDF report.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"em-picker/internal/app"
	"em-picker/internal/config"
	"em-picker/internal/coords"
	"em-picker/internal/report"
	"em-picker/internal/store"
	"em-picker/internal/version"
)

func main() {
	configPath := flag.String("config", "", "config file (TOML)")
	pdfPath := flag.String("pdf", "", "write a PDF report to this path")
	thumbs := flag.Int("thumbs", 0, "annotated micrograph thumbnails in the PDF")
	dbPath := flag.String("db", "", "session database")
	name := flag.String("name", "", "save the files as a session with this name (needs -db)")
	sessionID := flag.String("session", "", "load this session from -db instead of files")
	list := flag.Bool("list", false, "list sessions in -db")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("pickstat"))
		return
	}
	if err := run(*configPath, *pdfPath, *thumbs, *dbPath, *name, *sessionID, *list, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "pickstat: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, pdfPath string, thumbs int, dbPath, name, sessionID string, list bool, files []string) error {
	if len(files) == 0 && sessionID == "" && !list {
		return fmt.Errorf("usage: pickstat [-pdf out.pdf] [-db sessions.db [-name N | -session ID | -list]] files...")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	state, err := app.NewState(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()
		state.Store = st
	}

	if list {
		return listSessions(ctx, state)
	}

	if sessionID != "" {
		if state.Store == nil {
			return fmt.Errorf("-session needs -db")
		}
		if err := state.LoadSession(ctx, sessionID); err != nil {
			return err
		}
	}

	for _, path := range files {
		if err := load(state, path); err != nil {
			return err
		}
	}

	title := "Picking summary"
	if name != "" {
		title = name
	}
	fmt.Print(report.Text(state.Report(title)))

	if name != "" {
		if state.Store == nil {
			return fmt.Errorf("-name needs -db")
		}
		id, err := state.SaveSession(ctx, name)
		if err != nil {
			return err
		}
		fmt.Printf("saved session %s\n", id)
	}

	if pdfPath != "" {
		if err := state.ExportReport(pdfPath, title, thumbs); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", pdfPath)
	}
	return nil
}

// load adds a picking file, or a coordinate file as a micrograph of its own.
func load(state *app.State, path string) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return state.OpenPickingFile(path, false)
	}
	triples, err := coords.ParseFile(path)
	if err != nil {
		return err
	}
	_, err = state.AddImage(path, triples)
	return err
}

func listSessions(ctx context.Context, state *app.State) error {
	if state.Store == nil {
		return fmt.Errorf("-list needs -db")
	}
	sessions, err := state.Store.ListSessions(ctx)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		fmt.Printf("%s  %-20s  %s  %d micrographs, %d coordinates, box %d\n",
			s.ID, s.Name, s.CreatedAt.Format("2006-01-02 15:04"), s.Micrographs, s.Coordinates, s.BoxSize)
	}
	return nil
}
