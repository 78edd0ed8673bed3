package main

import (
	"log"

	"resume-qa-be/internal/config"
	"resume-qa-be/internal/model"
	"resume-qa-be/pkg/database"
)

func main() {
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.Environment == "production")
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}
	defer database.Close(db)

	log.Println("Step 1: Setting up extensions...")

	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	}

	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Fatalf("Error: Failed to execute setup SQL: %v", err)
		}
	}

	log.Println("Step 2: Running AutoMigrate...")

	models := []interface{}{
		&model.VectorEntry{},
		&model.Escalation{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	log.Println("Step 3: Creating similarity and purge indexes...")

	postMigrationSQL := []string{
		`CREATE INDEX IF NOT EXISTS idx_vector_entries_embedding_hnsw
		 ON vector_entries USING hnsw (embedding_value vector_cosine_ops);`,

		`CREATE INDEX IF NOT EXISTS idx_vector_entries_collection_created
		 ON vector_entries (collection, created_at);`,

		// rows written before updated_at existed would hide from the corpus revision
		`UPDATE vector_entries SET updated_at = created_at WHERE updated_at IS NULL;`,

		`CREATE INDEX IF NOT EXISTS idx_vector_entries_collection_updated
		 ON vector_entries (collection, updated_at);`,

		// janitor filters cached answers by the snapshot they were written against
		`CREATE INDEX IF NOT EXISTS idx_vector_entries_snapshot
		 ON vector_entries ((metadata->>'corpus_snapshot_id'))
		 WHERE collection <> 'resume_data';`,
	}

	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
