// Package main provides the entry point for the EM Picker application.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"em-picker/internal/app"
	"em-picker/internal/config"
	"em-picker/internal/store"
	"em-picker/internal/version"
	"em-picker/ui/mainwindow"
	"em-picker/ui/prefs"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
)

const (
	appTitle = "EM Picker"
	appID    = "org.empicker.picker"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := flag.String("config", "", "config file (TOML)")
	boxSize := flag.Int("boxsize", 0, "box size in pixels")
	shape := flag.String("shape", "", "ROI shape: RECT, CIRCLE, CENTER or SEGMENT")
	mode := flag.String("mode", "", "picking mode: default or filament")
	removeROIs := flag.Bool("remove-rois", true, "allow removing coordinates by right click")
	coordsPath := flag.String("coords", "", "coordinate file for the first image")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] [micrograph|picking.json|coords.box ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String(appTitle))
		return
	}
	log.Printf("Starting %s", version.String(appTitle))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Config: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "boxsize":
			cfg.Picker.BoxSize = *boxSize
		case "shape":
			cfg.Picker.Shape = *shape
		case "mode":
			cfg.Picker.Mode = *mode
		case "remove-rois":
			cfg.Picker.RemoveROIs = *removeROIs
		}
	})

	state, err := app.NewState(cfg)
	if err != nil {
		log.Fatalf("Picker: %v", err)
	}

	if cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			log.Printf("Store: sessions disabled: %v", err)
		} else {
			state.Store = st
			defer st.Close()
		}
	}

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&app.PickerTheme{})

	appPrefs := prefs.Load()
	win := mainwindow.New(fyneApp, state, appPrefs)
	win.SetCloseIntercept(func() {
		win.SavePreferences()
		win.Close()
	})

	openArgs(state, flag.Args(), *coordsPath, appPrefs)

	state.Post = fyne.Do
	watcher := app.NewFileWatcher(2 * time.Second)
	state.WatchCoordinates(watcher)
	watcher.Start()
	defer watcher.Stop()

	win.ShowAndRun()
}

// openArgs opens each command line file; the first image gets coordsPath
// and is shown.
func openArgs(state *app.State, files []string, coordsPath string, p *prefs.Prefs) {
	shown := false
	for _, path := range files {
		opts := app.OpenOptions{Show: !shown}
		if !shown {
			opts.CoordinatePath = coordsPath
		}
		if err := state.OpenFile(path, opts); err != nil {
			log.Printf("Failed to open %s: %v", path, err)
			continue
		}
		p.AddRecent(path)
		if state.Current() != nil {
			shown = true
		}
	}
}
