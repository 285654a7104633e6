// Command bestel is the interactive terminal client for the group friet
// order. It walks the three-step wizard (kiezen, aantallen, bevestigen),
// shows the live order-window status, and remembers the previous order for
// a quick pre-fill.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/frietavond/bestel/internal/api"
	"github.com/frietavond/bestel/internal/config"
	"github.com/frietavond/bestel/internal/menu"
	"github.com/frietavond/bestel/internal/order"
	"github.com/frietavond/bestel/internal/persist"
	"github.com/frietavond/bestel/internal/status"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	store, err := persist.Open(cfg.StateDir)
	if err != nil {
		log.Fatalf("state dir: %v", err)
	}

	client := api.New(cfg.APIBaseURL)
	ctx := context.Background()

	raw, err := client.FetchMenu(ctx)
	if err != nil {
		log.Fatalf("menu: %v", err)
	}
	catalog, err := menu.Normalize(raw)
	if err != nil {
		log.Fatalf("menu: %v", err)
	}

	tracker := status.NewTracker(client, status.Options{
		PollInterval:  cfg.StatusPollInterval,
		WarnThreshold: cfg.DeadlineWarnThreshold,
		OpenedTTL:     cfg.OpenedMessageTTL,
		WarningTTL:    cfg.WarningTTL,
		SettleDelay:   cfg.ExpirySettleDelay,
		OpeningBuffer: cfg.NextOpeningBuffer,
	})
	defer tracker.Close()
	tracker.Start(ctx)

	sess := order.NewSession(catalog, tracker, client, store, cfg.SubmitTimeout)

	app := &app{
		in:      bufio.NewScanner(os.Stdin),
		catalog: catalog,
		sess:    sess,
		tracker: tracker,
		store:   store,
	}
	app.run(ctx)
}

// app owns the prompt loop. All wizard logic lives in the session; this
// layer only renders and translates key presses.
type app struct {
	in      *bufio.Scanner
	catalog *menu.Catalog
	sess    *order.Session
	tracker *status.Tracker
	store   *persist.Store

	offeredLastOrder bool
	moreOpen         bool
}

func (a *app) run(ctx context.Context) {
	fmt.Println("=== Frietavond ===")

	for {
		a.statusBanner()

		if a.sess.Complete() {
			fmt.Println("\nJe bestelling is geplaatst. Eet smakelijk!")
			if !a.ask("Nog een bestelling plaatsen? (j/n)") {
				return
			}
			a.sess.NewOrder()
			a.offeredLastOrder = false
			continue
		}

		if msg, informational := a.sess.Error(); msg != "" {
			if informational {
				fmt.Printf("\nℹ %s\n", msg)
			} else {
				fmt.Printf("\n✗ %s\n", msg)
			}
			if !a.ask("Verder? (j/n)") {
				return
			}
			a.sess.DismissError()
			continue
		}

		switch a.sess.Step() {
		case order.StepSelecting:
			if !a.stepSelect() {
				return
			}
		case order.StepQuantifying:
			a.stepQuantities()
		case order.StepConfirming:
			a.stepConfirm(ctx)
		}
	}
}

// --- Status banner ---

func (a *app) statusBanner() {
	snap := a.tracker.Snapshot()
	fmt.Println()
	switch {
	case snap.Checking:
		fmt.Println("[status] bezig met controleren...")
	case snap.Status == nil:
		fmt.Println("[status] onbekend")
	case snap.Status.IsOpen:
		line := "[status] bestellen is open"
		if snap.Countdown != "" {
			line += " (sluit over " + snap.Countdown + ")"
		}
		fmt.Println(line)
	default:
		fmt.Printf("[status] %s", status.ClosedLabel)
		if snap.Status.NextOpening != nil {
			fmt.Printf(", opent over ongeveer %s", status.FormatUntil(time.Now(), snap.Status.NextOpening))
		}
		fmt.Println()
	}
	if snap.ShowOpened {
		fmt.Println("★ Bestellen is zojuist geopend!")
	}
	if snap.ShowWarning {
		fmt.Println("⚠ De deadline nadert, rond je bestelling af!")
	}
}

// --- Step 1: selection ---

func (a *app) stepSelect() bool {
	fmt.Println("\n--- Stap 1: kies je items ---")

	if !a.offeredLastOrder {
		a.offeredLastOrder = true
		if p, ok := a.store.Pending(); ok {
			fmt.Println("Er staat nog een opgeslagen bestelling klaar van toen het gesloten was.")
			if a.ask("Die bestelling gebruiken? (j/n)") {
				a.sess.Restore(p)
			}
		} else if p, ok := a.store.LastOrder(); ok {
			if a.ask(fmt.Sprintf("Vorige bestelling van %s opnieuw gebruiken? (j/n)", p.UserName)) {
				a.sess.Restore(p)
			}
		}
	}

	if a.sess.Name() == "" {
		a.sess.SetName(a.prompt("Je naam"))
	} else {
		fmt.Printf("Naam: %s\n", a.sess.Name())
	}

	regular, folded := a.catalog.Partition(menu.CollapsibleCategories)
	for _, cat := range regular {
		a.selectCategory(cat)
	}
	if len(folded) > 0 {
		if !a.moreOpen {
			a.moreOpen = a.ask("Meer opties tonen (sauzen, extra's)? (j/n)")
		}
		if a.moreOpen {
			for _, cat := range folded {
				a.selectCategory(cat)
			}
		}
	}

	if err := a.sess.Continue(); err != nil {
		switch {
		case errors.Is(err, order.ErrNothingSelected):
			fmt.Println("Kies eerst minstens één item.")
			return a.ask("Opnieuw proberen? (j/n)")
		case errors.Is(err, order.ErrNameRequired):
			fmt.Println("Vul eerst je naam in.")
			a.sess.SetName("")
			return a.ask("Opnieuw proberen? (j/n)")
		}
	}
	return true
}

// selectCategory shows one category as a numbered list and reads a
// comma-separated selection. Empty input keeps the current selection.
func (a *app) selectCategory(cat menu.Category) {
	fmt.Printf("\n%s:\n", cat.DisplayName)
	selected := make(map[string]bool)
	for _, it := range a.sess.Selection().Selected(cat.Type) {
		selected[it.ID] = true
	}
	for i, it := range cat.Items {
		mark := " "
		if selected[it.ID] {
			mark = "x"
		}
		fmt.Printf("  [%s] %d. %s\n", mark, i+1, it.Name)
	}

	line := a.prompt("Nummers (bijv. 1,3; leeg = laten staan)")
	if strings.TrimSpace(line) == "" {
		return
	}

	var items []menu.Item
	for _, part := range strings.Split(line, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 || n > len(cat.Items) {
			continue
		}
		items = append(items, cat.Items[n-1])
	}
	a.sess.SelectItems(cat.Type, items)
}

// --- Step 2: quantities ---

func (a *app) stepQuantities() {
	fmt.Println("\n--- Stap 2: aantallen ---")

	for _, it := range a.sess.Selection().AllSelected() {
		cur := a.sess.Selection().Quantity(it.ID)
		line := a.prompt(fmt.Sprintf("%s (nu %d, leeg = ok, 0 = verwijderen)", it.Name, cur))
		if strings.TrimSpace(line) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			continue
		}
		if n == 0 {
			a.sess.RemoveItem(it.ID)
			continue
		}
		a.sess.SetQuantity(it.ID, n)
	}

	if a.sess.Step() != order.StepQuantifying {
		// Everything was removed; the session fell back to selection.
		return
	}
	if a.ask("Verder naar bevestigen? (j/n)") {
		_ = a.sess.Continue()
	} else {
		a.sess.Back()
	}
}

// --- Step 3: confirmation ---

func (a *app) stepConfirm(ctx context.Context) {
	fmt.Println("\n--- Stap 3: bevestigen ---")
	fmt.Printf("Bestelling van %s:\n", a.sess.Name())
	for _, it := range a.sess.Selection().AllSelected() {
		fmt.Printf("  %dx %s (%s)\n", a.sess.Selection().Quantity(it.ID), it.Name, menu.DisplayName(it.Category))
	}

	switch strings.ToLower(a.prompt("Versturen (v), terug (t) of stoppen (s)?")) {
	case "v":
		fmt.Println("Bezig met versturen...")
		if err := a.sess.Submit(ctx); err != nil && !errors.Is(err, order.ErrSubmitUnavailable) {
			// The session already holds the user-facing message; the loop
			// renders it on the next pass.
			return
		}
	case "t":
		a.sess.Back()
	case "s":
		os.Exit(0)
	}
}

// --- Input helpers ---

func (a *app) prompt(label string) string {
	fmt.Printf("%s: ", label)
	if !a.in.Scan() {
		os.Exit(0)
	}
	return strings.TrimSpace(a.in.Text())
}

func (a *app) ask(label string) bool {
	answer := strings.ToLower(a.prompt(label))
	return answer == "j" || answer == "ja" || answer == "y"
}
