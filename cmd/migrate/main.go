// Command migrate applies or rolls back the database schema migrations
// embedded in the db package.
//
//	go run ./cmd/migrate -direction up
//	go run ./cmd/migrate -direction down -steps 1
package main

import (
	"flag"
	"os"

	"github.com/2beens/fittracker/internal/config"
	"github.com/2beens/fittracker/internal/db"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development | ddev | dockerdev ]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	envFile := flag.String("env-file", ".env", "optional dotenv file with secrets")
	direction := flag.String("direction", "up", "migration direction [up | down]")
	steps := flag.Int("steps", 1, "number of migrations to roll back (down only)")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Debugf("no env file loaded from [%s]: %s", *envFile, err)
	}

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	dbURL := db.NewDBPoolParams{
		DBHost:     cfg.PostgresHost,
		DBPort:     cfg.PostgresPort,
		DBName:     cfg.PostgresDBName,
		DBUser:     cfg.PostgresUser,
		DBPassword: os.Getenv("FITTRACKER_DB_PASSWORD"),
	}.URL()

	switch *direction {
	case "up":
		err = db.RunMigrations(dbURL)
	case "down":
		err = db.RollbackMigrations(dbURL, *steps)
	default:
		log.Fatalf("unknown direction [%s], use up or down", *direction)
	}
	if err != nil {
		log.Fatalf("migrate %s: %s", *direction, err)
	}

	log.Infof("migrate %s done", *direction)
}
