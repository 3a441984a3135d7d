// seed inserts a demo client and starter survey questions for local testing.
// Idempotent: skips everything if the demo client already exists. Prints the
// site key and raw API key once; the API key is stored only as a hash.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	clientdomain "github.com/habibshah-ds/survay-captcha-saas/internal/client/domain"
	clientrepo "github.com/habibshah-ds/survay-captcha-saas/internal/client/repository"
	"github.com/habibshah-ds/survay-captcha-saas/internal/config"
	"github.com/habibshah-ds/survay-captcha-saas/internal/db"
	"github.com/habibshah-ds/survay-captcha-saas/internal/security"
	surveydomain "github.com/habibshah-ds/survay-captcha-saas/internal/survey/domain"
	surveyrepo "github.com/habibshah-ds/survay-captcha-saas/internal/survey/repository"
)

const demoSiteKey = "demo-site-key"

func intPtr(v int) *int { return &v }

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; set it in the environment or .env")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clients := clientrepo.NewPostgresRepository(conn)
	if _, err := clients.GetBySiteKey(ctx, demoSiteKey); err == nil {
		log.Printf("demo client already seeded (site key %s)", demoSiteKey)
		return
	} else if !errors.Is(err, clientrepo.ErrNotFound) {
		log.Fatalf("check demo client: %v", err)
	}

	apiKey, err := security.RandomBase62(32)
	if err != nil {
		log.Fatalf("generate api key: %v", err)
	}
	err = clients.Create(ctx, &clientdomain.Client{
		ID:           uuid.NewString(),
		Name:         "Demo Client",
		SiteKey:      demoSiteKey,
		APIKeyHash:   security.HashAPIKey(cfg.APIKeyPepper, apiKey),
		Plan:         "free",
		MonthlyLimit: 10000,
	})
	if err != nil {
		log.Fatalf("create demo client: %v", err)
	}

	questions := surveyrepo.NewPostgresRepository(conn)
	starter := []*surveydomain.Question{
		{
			ID:   uuid.NewString(),
			Text: "Which of these is a fruit?",
			Type: surveydomain.QuestionTypeMultipleChoice,
			Options: []surveydomain.Option{
				{ID: "apple", Text: "Apple"},
				{ID: "hammer", Text: "Hammer"},
				{ID: "cloud", Text: "Cloud"},
			},
		},
		{
			ID:       uuid.NewString(),
			Text:     "How would you rate your day so far?",
			Type:     surveydomain.QuestionTypeRating,
			ScaleMin: intPtr(1),
			ScaleMax: intPtr(5),
		},
		{
			ID:   uuid.NewString(),
			Text: "In one word, what brings you here today?",
			Type: surveydomain.QuestionTypeText,
		},
	}
	for _, q := range starter {
		if err := questions.Create(ctx, q); err != nil {
			log.Fatalf("create question %q: %v", q.Text, err)
		}
	}

	fmt.Println("seeded demo client and starter questions")
	fmt.Printf("  site key: %s\n", demoSiteKey)
	fmt.Printf("  api key:  %s  (store it now; only its hash is kept)\n", apiKey)
}
