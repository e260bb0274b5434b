package main

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/memorylane/backend/internal/auth"
	"github.com/memorylane/backend/internal/database"
	"github.com/memorylane/backend/internal/insights"
	"github.com/memorylane/backend/internal/models"
	"github.com/memorylane/backend/internal/quiz"
	"github.com/memorylane/backend/internal/scheduler"
	"github.com/memorylane/backend/internal/snapshots"
	"github.com/memorylane/backend/internal/speech"
)

const syntheticTrainingRows = 200

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize database
	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if err := database.SeedMemoryItems(db); err != nil {
		log.Fatalf("Failed to seed memory items: %v", err)
	}

	snapshotStore := snapshots.NewPostgresStore(db)

	// Speech model: restore the last fitted snapshot, or bootstrap on
	// synthetic data for a fresh deployment.
	speechModel, err := speech.Load(snapshotStore)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			log.Printf("WARN: speech snapshot unusable, refitting: %v", err)
		}
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		rows, targets := speech.SyntheticTrainingSet(rng, syntheticTrainingRows)
		speechModel, err = speech.Fit(rows, targets, 1.0)
		if err != nil {
			log.Fatalf("Failed to fit speech model: %v", err)
		}
		if err := speech.Save(snapshotStore, speechModel); err != nil {
			log.Printf("WARN: failed to save speech snapshot: %v", err)
		}
		log.Println("Speech model fitted on synthetic bootstrap data")
	} else {
		log.Println("Speech model restored from snapshot")
	}

	bands := speech.NewBandRegistry()

	// Review scheduler: restore the Q-table if one was checkpointed.
	sched := scheduler.New(scheduler.Config{})
	if err := scheduler.LoadInto(snapshotStore, sched); err != nil {
		log.Printf("WARN: Q-table snapshot unusable, starting empty: %v", err)
	}

	quizStore := quiz.NewStore(db)
	engine := quiz.NewEngine(quiz.EngineConfig{
		Bank:      quizStore,
		Scheduler: sched,
		Bands:     bands,
	})
	quizService := quiz.NewService(engine, quizStore)

	summarizer := insights.NewSummarizer(insights.NewClient())

	// Initialize handlers
	authHandler := auth.NewHandler(db)
	speechHandler := speech.NewHandler(speechModel, bands)
	schedulerHandler := scheduler.NewHandler(sched)
	quizHandler := quiz.NewHandler(quizService)
	insightsHandler := insights.NewHandler(summarizer, quizService)

	// Periodic Q-table checkpoint so learned values survive restarts.
	cron := gocron.NewScheduler(time.UTC)
	cron.Every(5).Minutes().Do(func() {
		if err := sched.Checkpoint(snapshotStore); err != nil {
			log.Printf("WARN: Q-table checkpoint failed: %v", err)
		}
	})
	cron.StartAsync()

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(auth.Middleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")

	protected.HandleFunc("/sessions", quizHandler.CreateSession).Methods("POST")
	protected.HandleFunc("/sessions/{id}/answers", quizHandler.SubmitAnswer).Methods("POST")
	protected.HandleFunc("/sessions/{id}/complete", quizHandler.CompleteSession).Methods("POST")
	protected.HandleFunc("/sessions/{id}/summary", quizHandler.SessionSummary).Methods("GET")

	protected.HandleFunc("/items", quizHandler.ListItems).Methods("GET")
	protected.HandleFunc("/items", quizHandler.CreateItem).Methods("POST")
	protected.HandleFunc("/items/{id}", quizHandler.GetItem).Methods("GET")

	protected.HandleFunc("/users/{id}/progress", quizHandler.UserProgress).Methods("GET")

	protected.HandleFunc("/speech/analyze", speechHandler.Analyze).Methods("POST")

	protected.HandleFunc("/scheduler/next-interval", schedulerHandler.NextInterval).Methods("POST")
	protected.HandleFunc("/scheduler/record-result", schedulerHandler.RecordResult).Methods("POST")
	protected.HandleFunc("/scheduler/items/{id}/stats", schedulerHandler.ItemStats).Methods("GET")

	protected.HandleFunc("/insights/sessions/{id}", insightsHandler.SessionNarrative).Methods("GET")
	protected.HandleFunc("/insights/users/{id}/progress", insightsHandler.ProgressNarrative).Methods("GET")
	protected.HandleFunc("/insights/users/{id}/report", insightsHandler.ClinicianReport).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: c.Handler(r),
	}

	go func() {
		log.Printf("Server starting on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down")
	cron.Stop()

	// Final checkpoint so the latest Q-values are not lost.
	if err := sched.Checkpoint(snapshotStore); err != nil {
		log.Printf("WARN: final Q-table checkpoint failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("WARN: server shutdown: %v", err)
	}
}
