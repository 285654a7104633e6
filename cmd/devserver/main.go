package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/frietavond/bestel/internal/devserver"
	"github.com/frietavond/bestel/internal/menu"
)

func main() {
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	srv := devserver.New(sampleMenu())

	// Open for the next half hour so a freshly started client has a live
	// window to order against.
	deadline := time.Now().Add(30 * time.Minute)
	srv.SetWindow(devserver.Window{IsOpen: true, Deadline: &deadline})

	log.Printf("Starting dev server on :%s (window open until %s)", port, deadline.Format(time.Kitchen))
	if err := http.ListenAndServe(fmt.Sprintf(":%s", port), srv.Router()); err != nil {
		log.Fatal(err)
	}
}

func sampleMenu() map[string][]menu.RawItem {
	return map[string][]menu.RawItem{
		"friet": {
			{ID: "f1", Name: "Friet klein"},
			{ID: "f2", Name: "Friet groot"},
		},
		"snacks": {
			{ID: "s1", Name: "Frikandel"},
			{ID: "s2", Name: "Kroket"},
			{ID: "s3", Name: "Kaassoufflé"},
		},
		"dranken": {
			{ID: "d1", Name: "Cola"},
			{ID: "d2", Name: "Fanta"},
			{ID: "d3", Name: "Spa blauw"},
		},
		"sauzen": {
			{ID: "z1", Name: "Mayonaise"},
			{ID: "z2", Name: "Curry"},
			{ID: "z3", Name: "Speciaal"},
		},
	}
}
