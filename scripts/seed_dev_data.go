package main

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/youdub-team/youdub-backend/internal/domain/entities"
	"github.com/youdub-team/youdub-backend/internal/infrastructure/database"
	"github.com/youdub-team/youdub-backend/pkg/config"
	pkgjwt "github.com/youdub-team/youdub-backend/pkg/jwt"
)

// Seeds a couple of test users with access tokens, paid credits and one
// sample transcript so the dubbing endpoints can be exercised locally.
func main() {
	log.Println("🚀 Starting dev data seeding...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Println("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	log.Println("✅ Database connected successfully")

	jwtManager := pkgjwt.NewManager(cfg.JWT.AccessSecret, cfg.JWT.AccessExpiry)

	testUsers := []struct {
		Email string
		Name  string
	}{
		{Email: "alice@test.local", Name: "Alice"},
		{Email: "bob@test.local", Name: "Bob"},
	}

	log.Println("🗑️  Cleaning up existing test data...")
	db.Where("user_id IN (SELECT id FROM users WHERE email LIKE ?)", "%@test.local").Delete(&entities.DubbingSession{})
	db.Where("user_id IN (SELECT id FROM users WHERE email LIKE ?)", "%@test.local").Delete(&entities.UserCredits{})
	db.Where("email LIKE ?", "%@test.local").Delete(&entities.User{})

	log.Println("🔑 Creating test users and tokens...")

	for i, testUser := range testUsers {
		user := &entities.User{
			ID:          uuid.New(),
			Email:       testUser.Email,
			DisplayName: testUser.Name,
		}
		if err := db.Create(user).Error; err != nil {
			log.Printf("❌ Failed to create user %s: %v", testUser.Email, err)
			continue
		}

		credits := &entities.UserCredits{UserID: user.ID, PaidCredits: 10}
		if err := db.Create(credits).Error; err != nil {
			log.Printf("❌ Failed to create credits for %s: %v", testUser.Email, err)
			continue
		}

		accessToken, err := jwtManager.GenerateAccessToken(user.ID, user.Email)
		if err != nil {
			log.Printf("❌ Failed to generate access token for %s: %v", testUser.Email, err)
			continue
		}

		fmt.Printf("═══════════════════════════════════════════════════════\n")
		fmt.Printf("🟢 User %d: %s\n", i+1, testUser.Name)
		fmt.Printf("Email:        %s\n", user.Email)
		fmt.Printf("User ID:      %s\n", user.ID)
		fmt.Printf("Paid credits: %d\n", credits.PaidCredits)
		fmt.Printf("\n📋 Access Token (Copy to Postman):\n%s\n\n", accessToken)
	}

	log.Println("🎬 Creating sample transcript...")

	transcript := &entities.Transcript{
		ID:                 uuid.New(),
		BackgroundAudioURL: "http://localhost:9000/youdub/samples/ice-age-background.wav",
		VoicesAudioURL:     "http://localhost:9000/youdub/samples/ice-age-voices.wav",
		Characters: datatypes.JSONSlice[entities.Character]{
			{
				CharacterID:   "char-sid",
				CharacterName: "Sid",
				Dialogues: []entities.Dialogue{
					{DialogueID: "d1", Text: "I'm a sloth, and I'm proud of it.", StartTime: 1.2, EndTime: 3.8},
					{DialogueID: "d2", Text: "Wait up, guys!", StartTime: 6.0, EndTime: 7.1},
				},
			},
			{
				CharacterID:   "char-manny",
				CharacterName: "Manny",
				Dialogues: []entities.Dialogue{
					{DialogueID: "m1", Text: "We stick together, we're a herd.", StartTime: 9.4, EndTime: 12.0},
				},
			},
		},
	}
	if err := db.Create(transcript).Error; err != nil {
		log.Fatalf("❌ Failed to create sample transcript: %v", err)
	}

	fmt.Printf("═══════════════════════════════════════════════════════\n")
	fmt.Printf("🎬 Transcript ID: %s\n\n", transcript.ID)

	log.Println("✅ Dev data seeded successfully!")
	log.Println("\n💡 Usage:")
	log.Println("   1. Copy an Access Token above")
	log.Println("   2. Set header: Authorization: Bearer <access_token>")
	log.Println("   3. POST /v1/dubbing/sessions with the transcript ID")
	log.Println("\n🧹 To clean up, run: DELETE FROM users WHERE email LIKE '%@test.local'")
}
