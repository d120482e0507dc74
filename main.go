package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/sparkybotassistant-commits/meka-command-center/pkg/auth"
	"github.com/sparkybotassistant-commits/meka-command-center/pkg/colors"
	"github.com/sparkybotassistant-commits/meka-command-center/pkg/config"
	"github.com/sparkybotassistant-commits/meka-command-center/pkg/store"
	"github.com/sparkybotassistant-commits/meka-command-center/pkg/ui"
)

func main() {
	// 1. Parse flags
	project := flag.String("project", "", "Firestore project id (overrides config)")
	setProject := flag.String("set-project", "", "Set the default Firestore project id")
	doAuth := flag.Bool("auth", false, "Sign in with Google, replacing any cached session")
	doLogout := flag.Bool("logout", false, "Sign out and clear the cached session")
	demo := flag.Bool("demo", false, "Run against an in-memory store with sample data")
	flag.Parse()

	ctx := context.Background()

	// 2. Handle set-project
	if *setProject != "" {
		if err := config.Save(&config.Config{Project: *setProject}); err != nil {
			log.Fatalf("Error saving config: %v", err)
		}
		fmt.Printf("Default project set to: %s\n", *setProject)
		return
	}

	// 3. Determine project (priority: flag > env > config)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	selectedProject := cfg.Project
	if *project != "" {
		selectedProject = *project
	}

	configDir, err := config.Dir()
	if err != nil {
		log.Fatalf("Could not find config directory: %v", err)
	}
	session := auth.NewSession(configDir)

	// 4. Handle authentication
	if *doAuth {
		tokenFile := filepath.Join(configDir, auth.TokenFile)
		if _, err := os.Stat(tokenFile); err == nil {
			log.Printf("Removing existing token file at %s", tokenFile)
			if err := os.Remove(tokenFile); err != nil {
				log.Fatalf("Could not delete token file %s: %v. Please delete it manually", tokenFile, err)
			}
		}

		if err := session.SignIn(ctx); err != nil {
			log.Fatalf("Authentication failed: %v", err)
		}
		log.Printf("Authentication successful! Token saved to %s", tokenFile)
		return
	}

	if *doLogout {
		session.Resolve(ctx)
		if err := session.SignOut(ctx); err != nil {
			log.Printf("Warning: token revocation failed: %v (local session cleared)", err)
		}
		fmt.Println("Signed out.")
		return
	}

	projectColors, err := colors.Open(configDir)
	if err != nil {
		log.Fatalf("Could not open project color cache: %v", err)
	}

	// 5. Demo mode: in-memory store, fixed principal, seeded data
	if *demo {
		memory := store.NewMemory()
		principal := &auth.Principal{ID: "demo", DisplayName: "Demo User"}
		seedDemo(ctx, memory, principal.ID)

		err := ui.Run(ctx, auth.NewStatic(principal), func(context.Context) (store.Store, error) {
			return memory, nil
		}, projectColors)
		if err != nil {
			log.Fatalf("Dashboard error: %v", err)
		}
		return
	}

	// 6. Dashboard against Firestore
	if selectedProject == "" {
		log.Fatal("No Firestore project configured. Use --set-project, --project or MEKA_PROJECT")
	}

	session.Resolve(ctx)

	newStore := func(ctx context.Context) (store.Store, error) {
		ts, err := session.TokenSource(ctx)
		if err != nil {
			return nil, err
		}
		return store.NewFirestore(ctx, selectedProject, ts)
	}

	if err := ui.Run(ctx, session, newStore, projectColors); err != nil {
		log.Fatalf("Dashboard error: %v", err)
	}
}

// seedDemo writes a handful of records so the demo dashboard has something
// to show.
func seedDemo(ctx context.Context, m *store.Memory, owner string) {
	tasks := []map[string]any{
		{"title": "Review quarterly goals", "category": "have", "status": "pending", "project": "work"},
		{"title": "Plan weekend hike", "category": "want", "status": "pending"},
		{"title": "Renew passport", "category": "have", "status": "completed", "project": "admin"},
	}
	for _, fields := range tasks {
		fields["userId"] = owner
		fields["createdAt"] = store.ServerTimestamp
		fields["updatedAt"] = store.ServerTimestamp
		if _, err := m.Create(ctx, "tasks", fields); err != nil {
			log.Printf("seeding task: %v", err)
		}
	}

	habits := []map[string]any{
		{"name": "Gym", "streak": 4},
		{"name": "Read 20 pages", "streak": 11},
	}
	for _, fields := range habits {
		fields["userId"] = owner
		fields["createdAt"] = store.ServerTimestamp
		if _, err := m.Create(ctx, "habits", fields); err != nil {
			log.Printf("seeding habit: %v", err)
		}
	}

	sparky := []map[string]any{
		{"description": "Researching flight options for Lisbon", "status": "in-progress", "priority": "high"},
		{"description": "Drafted summary of unread newsletters", "status": "completed", "priority": "low", "notes": "Saved to your notes folder"},
	}
	for _, fields := range sparky {
		fields["userId"] = owner
		fields["createdAt"] = store.ServerTimestamp
		fields["updatedAt"] = store.ServerTimestamp
		if _, err := m.Create(ctx, "sparkyTasks", fields); err != nil {
			log.Printf("seeding sparky task: %v", err)
		}
	}
}
