// File: cmd/seed/main.go
// Seeds a sample published interview, its questions, and a verified resume so
// the service can be exercised locally without the authoring service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"ai-interview-platform/internal/config"
	"ai-interview-platform/internal/domain/model"
	pg "ai-interview-platform/internal/infra/db/postgres"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	var existing int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM interviews`).Scan(&existing); err != nil {
		log.Fatalf("count interviews: %v", err)
	}
	if existing > 0 {
		fmt.Printf("%d interviews already present. No changes.\n", existing)
		return
	}

	interviewID := uuid.NewString()
	_, err = pool.Exec(ctx,
		`INSERT INTO interviews (id, owner_id, title, published) VALUES ($1, $2, $3, TRUE)`,
		interviewID, "recruiter-demo", "Backend Engineer Screen")
	if err != nil {
		log.Fatalf("insert interview: %v", err)
	}

	questions := []struct {
		Type       model.QuestionType
		Difficulty model.Difficulty
		Prompt     string
		Limit      int
		Points     float64
		Grading    model.GradingMaterial
	}{
		{
			Type:       model.QuestionTypeMCQ,
			Difficulty: model.DifficultyEasy,
			Prompt:     "Which isolation level prevents dirty reads but allows non-repeatable reads?",
			Limit:      60,
			Points:     5,
			Grading: model.GradingMaterial{
				Options:       []string{"Read Uncommitted", "Read Committed", "Repeatable Read", "Serializable"},
				CorrectOption: "Read Committed",
			},
		},
		{
			Type:       model.QuestionTypeShortAnswer,
			Difficulty: model.DifficultyMedium,
			Prompt:     "Explain how a database index speeds up queries and what it costs on writes.",
			Limit:      300,
			Points:     10,
			Grading: model.GradingMaterial{
				ExpectedKeywords: []string{"b-tree", "lookup", "write amplification", "storage"},
				MinWords:         30,
				MaxWords:         250,
			},
		},
		{
			Type:       model.QuestionTypeCode,
			Difficulty: model.DifficultyHard,
			Prompt:     "Implement a rate limiter allowing N requests per minute per key.",
			Limit:      900,
			Points:     20,
			Grading: model.GradingMaterial{
				StarterCode: "func Allow(key string) bool {\n\t// TODO\n}\n",
				RubricCriteria: []string{
					"Correctly limits to N requests per sliding or fixed window",
					"Safe under concurrent access",
					"Memory does not grow unboundedly with idle keys",
				},
			},
		},
	}
	for i, q := range questions {
		grading, err := json.Marshal(q.Grading)
		if err != nil {
			log.Fatalf("marshal grading: %v", err)
		}
		_, err = pool.Exec(ctx,
			`INSERT INTO interview_questions (id, interview_id, position, question_type, difficulty, prompt, time_limit_seconds, points, grading)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			uuid.NewString(), interviewID, i, string(q.Type), string(q.Difficulty), q.Prompt, q.Limit, q.Points, grading)
		if err != nil {
			log.Fatalf("insert question %d: %v", i, err)
		}
		fmt.Printf("seeded question %d: %s (%s, %.0f pts)\n", i, q.Type, q.Difficulty, q.Points)
	}

	resumeID := uuid.NewString()
	_, err = pool.Exec(ctx,
		`INSERT INTO resumes (id, candidate_id, verified) VALUES ($1, $2, TRUE)`,
		resumeID, "candidate-demo")
	if err != nil {
		log.Fatalf("insert resume: %v", err)
	}

	fmt.Printf("seeded interview %s with %d questions; resume %s for candidate-demo\n", interviewID, len(questions), resumeID)
}
