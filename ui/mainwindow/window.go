// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"em-picker/internal/app"
	"em-picker/internal/config"
	"em-picker/internal/coords"
	"em-picker/internal/image"
	"em-picker/internal/picking"
	"em-picker/internal/version"
	"em-picker/ui/canvas"
	"em-picker/ui/dialogs"
	"em-picker/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const (
	appTitle     = "EM Picker"
	storeTimeout = 30 * time.Second
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app       fyne.App
	state     *app.State
	prefs     *prefs.Prefs
	canvas    *canvas.ImageCanvas
	table     *widget.Table
	statusBar *widget.Label
	toolbar   *toolbar

	fitToWindowItem *fyne.MenuItem
}

// New creates the main window over state.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow(appTitle)

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		state:  state,
		prefs:  p,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.setupKeys()

	w := float32(p.FloatWithFallback(prefs.KeyWindowWidth, 1200))
	h := float32(p.FloatWithFallback(prefs.KeyWindowHeight, 800))
	mw.Resize(fyne.NewSize(w, h))
	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewImageCanvas(mw.state.Picker)
	mw.canvas.SetFitToWindow(mw.prefs.Bool(prefs.KeyFitToWindow, true))
	mw.canvas.OnPointer(func(x, y float64) {
		mw.updateStatus(fmt.Sprintf("x=%.0f y=%.0f", x, y))
	})

	mw.statusBar = widget.NewLabel("Ready")
	mw.table = mw.createTable()
	mw.toolbar = newToolbar(mw)

	canvasArea := container.NewBorder(
		mw.toolbar.container(), // top
		nil,                    // bottom
		nil,                    // left
		nil,                    // right
		mw.canvas.Container(),  // center
	)

	split := container.NewHSplit(mw.table, canvasArea)
	split.SetOffset(0.22)

	content := container.NewBorder(
		nil,
		container.NewPadded(mw.statusBar),
		nil,
		nil,
		split,
	)
	mw.SetContent(content)
}

// createTable builds the micrograph list: name and displayed coordinate count.
func (mw *MainWindow) createTable() *widget.Table {
	rows := mw.state.Table
	t := widget.NewTableWithHeaders(
		func() (int, int) { return rows.Len(), 2 },
		func() fyne.CanvasObject { return widget.NewLabel("micrograph_0000.mrc") },
		func(id widget.TableCellID, o fyne.CanvasObject) {
			row, ok := rows.Row(id.Row)
			if !ok {
				return
			}
			label := o.(*widget.Label)
			if id.Col == 0 {
				label.SetText(row.Name)
			} else {
				label.SetText(fmt.Sprintf("%d", row.Count))
			}
		},
	)
	t.ShowHeaderColumn = false
	t.CreateHeader = func() fyne.CanvasObject { return widget.NewLabel("") }
	t.UpdateHeader = func(id widget.TableCellID, o fyne.CanvasObject) {
		if id.Col == 0 {
			o.(*widget.Label).SetText("Micrograph")
		} else {
			o.(*widget.Label).SetText("Coordinates")
		}
	}
	t.SetColumnWidth(0, 220)
	t.SetColumnWidth(1, 100)
	t.OnSelected = func(id widget.TableCellID) {
		row, ok := rows.Row(id.Row)
		if !ok {
			return
		}
		if cur := mw.state.Current(); cur != nil && cur.ID() == row.ID {
			return
		}
		mw.state.Select(row.ID)
	}
	rows.OnChanged(func(int) { t.Refresh() })
	return t
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open...", mw.onOpen),
		fyne.NewMenuItem("Load Coordinates...", func() { mw.onLoadCoordinates(false) }),
		fyne.NewMenuItem("Append Coordinates...", func() { mw.onLoadCoordinates(true) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save Picking...", mw.onSavePicking),
		fyne.NewMenuItem("Export Box File...", mw.onExportBox),
		fyne.NewMenuItem("Export Report...", mw.onExportReport),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save Session...", mw.onSaveSession),
		fyne.NewMenuItem("Load Session...", mw.onLoadSession),
	)

	mw.fitToWindowItem = fyne.NewMenuItem("Fit to Window", mw.onToggleFitToWindow)
	mw.fitToWindowItem.Checked = mw.canvas.FitsToWindow()
	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.onZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.onZoomOut),
		mw.fitToWindowItem,
		fyne.NewMenuItem("Actual Size", mw.onActualSize),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Show/Hide Coordinates", mw.toolbar.toggleROIs),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Settings...", mw.onSettings),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, viewMenu, helpMenu))
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventMicrographSelected, func(data interface{}) {
		sel, ok := data.(app.Selection)
		if !ok {
			return
		}
		mw.canvas.SetImage(sel.Image)
		mw.SetTitle(appTitle + " - " + sel.Micrograph.Name())
		if i := mw.state.Table.IndexOf(sel.Micrograph.ID()); i >= 0 {
			mw.table.Select(widget.TableCellID{Row: i, Col: 0})
		}
		mw.updateStatus(fmt.Sprintf("%s: %d coordinates", sel.Micrograph.Name(), sel.Micrograph.Len()))
	})

	mw.state.On(app.EventMicrographAdded, func(data interface{}) {
		mw.table.Refresh()
	})

	mw.state.On(app.EventBoxSizeChanged, func(data interface{}) {
		if size, ok := data.(int); ok {
			mw.toolbar.showBoxSize(size)
		}
	})

	mw.state.On(app.EventCoordinatesChanged, func(data interface{}) {
		if ev, ok := data.(picking.CoordinateEvent); ok {
			mw.updateStatus(fmt.Sprintf("%s: %d coordinates", ev.Kind, ev.Count))
		}
	})

	mw.state.On(app.EventModified, func(data interface{}) {
		title := appTitle
		if mic := mw.state.Current(); mic != nil {
			title += " - " + mic.Name()
		}
		if modified, ok := data.(bool); ok && modified {
			title += " *"
		}
		mw.SetTitle(title)
	})

	mw.state.On(app.EventSessionSaved, func(data interface{}) {
		mw.updateStatus(fmt.Sprintf("Session saved (%v)", data))
	})

	mw.state.On(app.EventError, func(data interface{}) {
		if err, ok := data.(error); ok {
			dialog.ShowError(err, mw.Window)
		}
	})

	mw.state.Picker.OnRedraw(func() {
		mw.toolbar.showBoxSize(mw.state.Session.BoxSize())
	})
}

// setupKeys binds keyboard shortcuts on the window canvas.
func (mw *MainWindow) setupKeys() {
	mw.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyEscape:
			mw.state.Picker.CancelSegment()
		case fyne.KeyE:
			mw.toolbar.toggleErase()
		case fyne.KeyH:
			mw.toolbar.toggleROIs()
		case fyne.KeyDown, fyne.KeyPageDown:
			mw.selectRelative(1)
		case fyne.KeyUp, fyne.KeyPageUp:
			mw.selectRelative(-1)
		case fyne.KeyPlus, fyne.KeyEqual:
			mw.state.SetBoxSize(mw.state.Session.BoxSize() + 5)
		case fyne.KeyMinus:
			mw.state.SetBoxSize(mw.state.Session.BoxSize() - 5)
		}
	})
}

// selectRelative moves the selection by delta rows in the micrograph table.
func (mw *MainWindow) selectRelative(delta int) {
	rows := mw.state.Table
	if rows.Len() == 0 {
		return
	}
	i := 0
	if cur := mw.state.Current(); cur != nil {
		i = rows.IndexOf(cur.ID()) + delta
	}
	if i < 0 || i >= rows.Len() {
		return
	}
	if row, ok := rows.Row(i); ok {
		mw.state.Select(row.ID)
	}
}

// SavePreferences stores window geometry and view settings.
func (mw *MainWindow) SavePreferences() {
	size := mw.Canvas().Size()
	mw.prefs.SetFloat(prefs.KeyWindowWidth, float64(size.Width))
	mw.prefs.SetFloat(prefs.KeyWindowHeight, float64(size.Height))
	mw.prefs.SetBool(prefs.KeyFitToWindow, mw.canvas.FitsToWindow())
	if err := mw.prefs.SaveIfChanged(); err != nil {
		log.Printf("Failed to save preferences: %v", err)
	}
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// lastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) lastDir() fyne.ListableURI {
	path := mw.prefs.String(prefs.KeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefs.KeyLastDir, filepath.Dir(filePath))
}

// showOpen runs a file-open dialog filtered to exts and calls fn with the chosen path.
func (mw *MainWindow) showOpen(exts []string, fn func(path string)) {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		fn(path)
	}, mw.Window)
	if len(exts) > 0 {
		fd.SetFilter(storage.NewExtensionFileFilter(exts))
	}
	if loc := mw.lastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// showSave runs a file-save dialog and calls fn with the chosen path, forcing ext.
func (mw *MainWindow) showSave(name, ext string, fn func(path string)) {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != ext {
			path += ext
		}
		mw.saveLastDir(path)
		fn(path)
	}, mw.Window)
	fd.SetFileName(name)
	if loc := mw.lastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// Menu action handlers

func (mw *MainWindow) onOpen() {
	exts := append([]string{".json"}, image.SupportedFormats()...)
	mw.showOpen(exts, func(path string) {
		if err := mw.state.OpenFile(path, app.OpenOptions{Show: true}); err == nil {
			mw.prefs.AddRecent(path)
		}
	})
}

func (mw *MainWindow) onLoadCoordinates(appendTo bool) {
	mw.showOpen([]string{".box", ".txt"}, func(path string) {
		mw.state.LoadCoordinates(path, coords.ParseFile, !appendTo)
	})
}

func (mw *MainWindow) onSavePicking() {
	mic := mw.state.Current()
	if mic == nil {
		dialog.ShowError(picking.ErrNoMicrograph, mw.Window)
		return
	}
	mw.showSave(stem(mic.Name())+".json", ".json", func(path string) {
		if err := mw.state.SavePicking(path); err == nil {
			mw.updateStatus("Saved " + filepath.Base(path))
		}
	})
}

func (mw *MainWindow) onExportBox() {
	mic := mw.state.Current()
	if mic == nil {
		dialog.ShowError(picking.ErrNoMicrograph, mw.Window)
		return
	}
	mw.showSave(stem(mic.Name())+".box", ".box", func(path string) {
		if err := mw.state.ExportBox(path); err == nil {
			mw.updateStatus("Exported " + filepath.Base(path))
		}
	})
}

func (mw *MainWindow) onExportReport() {
	mw.showSave("picking-report.pdf", ".pdf", func(path string) {
		if err := mw.state.ExportReport(path, appTitle+" report", 6); err == nil {
			mw.updateStatus("Wrote " + filepath.Base(path))
		}
	})
}

func (mw *MainWindow) onSaveSession() {
	if mw.state.Store == nil {
		dialog.ShowError(errors.New("no session database configured"), mw.Window)
		return
	}
	name := widget.NewEntry()
	name.SetPlaceHolder("session name")
	dialog.ShowForm("Save Session", "Save", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("Name", name)},
		func(ok bool) {
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
			defer cancel()
			mw.state.SaveSession(ctx, name.Text)
		}, mw.Window)
}

func (mw *MainWindow) onLoadSession() {
	if mw.state.Store == nil {
		dialog.ShowError(errors.New("no session database configured"), mw.Window)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	sessions, err := mw.state.Store.ListSessions(ctx)
	cancel()
	if err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	if len(sessions) == 0 {
		dialog.ShowInformation("Load Session", "No saved sessions.", mw.Window)
		return
	}

	chosen := -1
	list := widget.NewList(
		func() int { return len(sessions) },
		func() fyne.CanvasObject { return widget.NewLabel("session name - 2006-01-02 15:04") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			s := sessions[i]
			o.(*widget.Label).SetText(fmt.Sprintf("%s - %s (%d micrographs)",
				s.Name, s.CreatedAt.Format("2006-01-02 15:04"), s.Micrographs))
		},
	)
	list.OnSelected = func(i widget.ListItemID) { chosen = i }

	d := dialog.NewCustomConfirm("Load Session", "Load", "Cancel", container.NewGridWrap(fyne.NewSize(420, 260), list),
		func(ok bool) {
			if !ok || chosen < 0 {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
			defer cancel()
			mw.state.LoadSession(ctx, sessions[chosen].ID)
		}, mw.Window)
	d.Show()
}

func (mw *MainWindow) onZoomIn() {
	mw.disableFitToWindow()
	mw.canvas.ZoomIn()
}

func (mw *MainWindow) onZoomOut() {
	mw.disableFitToWindow()
	mw.canvas.ZoomOut()
}

func (mw *MainWindow) onToggleFitToWindow() {
	enabled := !mw.canvas.FitsToWindow()
	mw.canvas.SetFitToWindow(enabled)
	mw.fitToWindowItem.Checked = enabled
	mw.MainMenu().Refresh()
}

func (mw *MainWindow) onActualSize() {
	mw.disableFitToWindow()
	mw.canvas.SetZoom(1.0)
}

func (mw *MainWindow) disableFitToWindow() {
	if mw.canvas.FitsToWindow() {
		mw.canvas.SetFitToWindow(false)
		mw.fitToWindowItem.Checked = false
		mw.MainMenu().Refresh()
	}
}

func (mw *MainWindow) onSettings() {
	dialogs.NewSettingsDialog(mw.state.Config, mw.Window, mw.applySettings).Show()
}

// applySettings takes cfg into the session and stores it as the user config.
func (mw *MainWindow) applySettings(cfg config.Config) {
	mw.state.ApplyConfig(cfg)
	mw.toolbar.sync()
	mw.canvas.Refresh()

	path, err := config.UserPath()
	if err == nil {
		err = config.Save(cfg, path)
	}
	if err != nil {
		log.Printf("Failed to save settings: %v", err)
		mw.updateStatus("Settings applied but not saved")
		return
	}
	mw.updateStatus("Settings saved to " + path)
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+appTitle,
		version.String(appTitle)+"\n\n"+
			"Manual particle and filament picking for electron micrographs.\n\n"+
			"Click to pick, drag to move, right-click to remove.\n"+
			"E toggles the eraser, Esc cancels a filament.",
		mw.Window)
}

func stem(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
